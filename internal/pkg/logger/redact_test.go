package logger_test

import (
	"testing"

	"github.com/rowforge/tabular-import/internal/pkg/logger"
)

func TestRedactEmailMasksLocalPart(t *testing.T) {
	if got := logger.RedactEmail("john.doe@example.com"); got != "jo***@example.com" {
		t.Fatalf("got %q", got)
	}
}

func TestRedactEmailFullyMasksShortLocalPart(t *testing.T) {
	if got := logger.RedactEmail("ab@example.com"); got != "***@example.com" {
		t.Fatalf("got %q", got)
	}
}

func TestRedactEmailHandlesMalformedInput(t *testing.T) {
	if got := logger.RedactEmail("not-an-email"); got != "***@***" {
		t.Fatalf("got %q", got)
	}
}

func TestLoggerLogLevelsDoNotPanic(t *testing.T) {
	logger.SetLevel(logger.DEBUG)
	logger.Debug("row rejected", "job_id", "job-1", "email", "john.doe@example.com")
	logger.Info("chunk processed", "job_id", "job-1", "rows", 100)
	logger.Warn("counter lock unavailable", "job_id", "job-1")
	logger.Error("transition failed", "job_id", "job-1", "error", "connection reset")
	logger.SetLevel(logger.INFO)
}

package staging

import (
	"context"
	"io"
)

// Store is the Blob Staging contract: write the uploaded file once, then
// let the worker open it for streaming reads any number of times (the
// spreadsheet reader may need more than one pass - header validation, row
// counting, then chunked reads).
type Store interface {
	// Put stores the full contents of r under jobID and returns the number
	// of bytes written.
	Put(ctx context.Context, jobID string, r io.Reader) (int64, error)

	// Open returns a fresh reader positioned at the start of the staged
	// file. Callers must Close it.
	Open(ctx context.Context, jobID string) (io.ReadCloser, error)

	// Delete removes the staged file. Safe to call on a missing file.
	Delete(ctx context.Context, jobID string) error
}

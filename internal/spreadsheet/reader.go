package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrNoHeaderRow is returned when a file has fewer than one row.
var ErrNoHeaderRow = errors.New("spreadsheet: file has no header row")

// ErrUnsupportedFormat is returned for file extensions with no registered Reader.
var ErrUnsupportedFormat = errors.New("spreadsheet: unsupported file format")

// Opener produces a fresh stream over the same underlying file. Readers may
// call it more than once (once to validate the header, again to count
// rows, again to stream chunks) since staged files support repeat reads.
type Opener func() (io.ReadCloser, error)

// ChunkFunc receives one chunk of rows, each a map from header column name
// to raw cell value. Returning an error aborts ReadChunks.
type ChunkFunc func(rows []map[string]string) error

// Reader is the Spreadsheet Reader contract (spec.md §2.4).
type Reader interface {
	// Header returns the column names from the first row.
	Header() ([]string, error)

	// CountRows returns the number of data rows (excluding the header).
	CountRows() (int64, error)

	// ReadChunks streams data rows in groups of at most chunkSize, calling
	// fn once per chunk in order.
	ReadChunks(chunkSize int, fn ChunkFunc) error
}

// NewReader selects a Reader implementation by the file extension in
// filename (spec.md §2.4: csv, xlsx, xls).
func NewReader(filename string, open Opener) (Reader, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return &CSVReader{open: open}, nil
	case ".xlsx":
		return &XLSXReader{open: open}, nil
	case ".xls":
		return &XLSReader{open: open}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

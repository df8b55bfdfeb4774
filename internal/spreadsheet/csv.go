package spreadsheet

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
)

// csvReadBufferSize matches the teacher's processCSVStreaming 1MB buffer.
const csvReadBufferSize = 1024 * 1024

// CSVReader implements Reader over comma-separated files using the standard
// library's encoding/csv, the same way the teacher streams mailing list
// uploads: a buffered reader, FieldsPerRecord disabled, lazy quoting.
type CSVReader struct {
	open Opener
}

func (r *CSVReader) newCSVReader(f io.Reader) *csv.Reader {
	cr := csv.NewReader(bufio.NewReaderSize(f, csvReadBufferSize))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

func (r *CSVReader) Header() ([]string, error) {
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := r.newCSVReader(f)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeaderRow
	}
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	return header, nil
}

func (r *CSVReader) CountRows() (int64, error) {
	f, err := r.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cr := r.newCSVReader(f)
	if _, err := cr.Read(); err == io.EOF {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("read header row: %w", err)
	}

	var count int64
	for {
		if _, err := cr.Read(); err == io.EOF {
			break
		} else if err != nil {
			return count, fmt.Errorf("count rows: %w", err)
		}
		count++
	}
	return count, nil
}

func (r *CSVReader) ReadChunks(chunkSize int, fn ChunkFunc) error {
	f, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	cr := r.newCSVReader(f)
	header, err := cr.Read()
	if err == io.EOF {
		return ErrNoHeaderRow
	}
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}

	chunk := make([]map[string]string, 0, chunkSize)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		chunk = append(chunk, row)

		if len(chunk) >= chunkSize {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = make([]map[string]string, 0, chunkSize)
		}
	}

	if len(chunk) > 0 {
		return fn(chunk)
	}
	return nil
}

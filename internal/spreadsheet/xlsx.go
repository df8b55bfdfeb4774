package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXReader implements Reader over .xlsx workbooks using excelize's
// streaming row iterator, reading only the first worksheet.
type XLSXReader struct {
	open Opener
}

func (r *XLSXReader) openSheet() (*excelize.File, *excelize.Rows, error) {
	f, err := r.open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	wb, err := excelize.OpenReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx workbook: %w", err)
	}

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		wb.Close()
		return nil, nil, ErrNoHeaderRow
	}

	rows, err := wb.Rows(sheets[0])
	if err != nil {
		wb.Close()
		return nil, nil, fmt.Errorf("open xlsx sheet %s: %w", sheets[0], err)
	}
	return wb, rows, nil
}

func (r *XLSXReader) Header() ([]string, error) {
	wb, rows, err := r.openSheet()
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNoHeaderRow
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read xlsx header row: %w", err)
	}
	return header, nil
}

func (r *XLSXReader) CountRows() (int64, error) {
	wb, rows, err := r.openSheet()
	if err != nil {
		return 0, err
	}
	defer wb.Close()
	defer rows.Close()

	if !rows.Next() {
		return 0, nil
	}

	var count int64
	for rows.Next() {
		count++
	}
	return count, nil
}

func (r *XLSXReader) ReadChunks(chunkSize int, fn ChunkFunc) error {
	wb, rows, err := r.openSheet()
	if err != nil {
		return err
	}
	defer wb.Close()
	defer rows.Close()

	if !rows.Next() {
		return ErrNoHeaderRow
	}
	header, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read xlsx header row: %w", err)
	}

	chunk := make([]map[string]string, 0, chunkSize)
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("read xlsx row: %w", err)
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

	if err := rows.Error(); err != nil {
		return fmt.Errorf("iterate xlsx rows: %w", err)
	}
	if len(chunk) > 0 {
		return fn(chunk)
	}
	return nil
}

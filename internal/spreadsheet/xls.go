package spreadsheet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// XLSReader implements Reader over legacy .xls workbooks (OLE2/BIFF) via
// extrame/xls, which needs an io.ReadSeeker; legacy uploads are read into
// memory once per pass rather than assumed seekable at the staging layer.
type XLSReader struct {
	open Opener
}

func (r *XLSReader) openSheet() (*xls.WorkBook, *xls.WorkSheet, error) {
	f, err := r.open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read xls file: %w", err)
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, nil, fmt.Errorf("open xls workbook: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil, ErrNoHeaderRow
	}
	return wb, sheet, nil
}

func cellString(sheet *xls.WorkSheet, rowIdx, col int) string {
	row := sheet.Row(rowIdx)
	if row == nil {
		return ""
	}
	return row.Col(col)
}

func (r *XLSReader) Header() ([]string, error) {
	_, sheet, err := r.openSheet()
	if err != nil {
		return nil, err
	}
	if sheet.MaxRow == 0 {
		return nil, ErrNoHeaderRow
	}

	row := sheet.Row(0)
	header := make([]string, 0, row.LastCol())
	for c := row.FirstCol(); c < row.LastCol(); c++ {
		header = append(header, row.Col(c))
	}
	return header, nil
}

func (r *XLSReader) CountRows() (int64, error) {
	_, sheet, err := r.openSheet()
	if err != nil {
		return 0, err
	}
	if sheet.MaxRow == 0 {
		return 0, nil
	}
	return int64(sheet.MaxRow), nil
}

func (r *XLSReader) ReadChunks(chunkSize int, fn ChunkFunc) error {
	_, sheet, err := r.openSheet()
	if err != nil {
		return err
	}
	if sheet.MaxRow == 0 {
		return ErrNoHeaderRow
	}

	headerRow := sheet.Row(0)
	header := make([]string, 0, headerRow.LastCol())
	for c := headerRow.FirstCol(); c < headerRow.LastCol(); c++ {
		header = append(header, headerRow.Col(c))
	}

	chunk := make([]map[string]string, 0, chunkSize)
	for i := 1; i <= int(sheet.MaxRow); i++ {
		row := make(map[string]string, len(header))
		for idx, col := range header {
			row[col] = cellString(sheet, i, idx)
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

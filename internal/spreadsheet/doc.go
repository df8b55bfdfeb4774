// Package spreadsheet implements the Spreadsheet Reader (spec.md §2.4):
// streaming, chunked access to an uploaded tabular file regardless of its
// on-disk format.
//
// The streaming-CSV idiom (bufio reader, encoding/csv, FieldsPerRecord -1,
// process-in-chunks) is grounded on the teacher's
// internal/worker/list_upload.go processCSVStreaming. Format dispatch by
// file extension is grounded on other_examples' go-importer dispatcher
// (switch on config.InputFormat to construct the right Importer). XLSX and
// XLS support reach outside the pack for xuri/excelize and extrame/xls -
// named, not grounded, per DESIGN.md.
package spreadsheet

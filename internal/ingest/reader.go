package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// maxXLSRows bounds legacy workbook reads.
const maxXLSRows = 1_000_000

// Sheet is the untyped content of the first worksheet of an upload.
type Sheet struct {
	Header   []string
	Rows     [][]string
	Date1904 bool
}

// SupportedExtension reports whether filename has a spreadsheet extension
// the reader understands.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// Parse reads the first worksheet of an .xlsx or .xls upload. The first
// non-blank row is the header.
func Parse(filename string, r io.Reader) (*Sheet, error) {
	if !SupportedExtension(filename) {
		return nil, fmt.Errorf("%w: %q (expected .xlsx or .xls)", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %v", ErrUnreadable, err)
	}

	var (
		rows     [][]string
		date1904 bool
	)
	if strings.ToLower(filepath.Ext(filename)) == ".xls" {
		rows, err = readXLS(data)
	} else {
		rows, date1904, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}

	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return &Sheet{Header: rows[0], Rows: rows[1:], Date1904: date1904}, nil
}

func readXLSX(data []byte) ([][]string, bool, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, false, fmt.Errorf("%w: no worksheet found", ErrEmptyWorkbook)
	}

	// Raw values keep dates as serials and amounts free of display formats.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	return rows, date1904, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// The legacy decoder panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			rows, err = nil, fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("%w: no worksheet found", ErrEmptyWorkbook)
	}
	return workbook.ReadAllCells(maxXLSRows), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook writes header and rows to the first sheet of a new .xlsx.
func workbook(t *testing.T, header []string, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetList()[0]
	all := make([][]any, 0, len(rows)+1)
	h := make([]any, len(header))
	for i, v := range header {
		h[i] = v
	}
	all = append(all, h)
	all = append(all, rows...)
	for i := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &all[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func row(center, date, tm, stype, gender, nat, dob, service string, amount any) []any {
	return []any{center, date, tm, stype, gender, nat, dob, service, amount}
}

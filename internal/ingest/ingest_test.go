package ingest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loadedAt = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func TestIngestKeepsValidRowsAndDropsBadAmount(t *testing.T) {
	buf := workbook(t, RequiredColumns,
		row("Main", "2024-01-06", "10:15:00", "Private Services", "Female", "UAE", "1990-02-01", "Massage", 100),
		row("Main", "2024-01-07", "11:00:00", "Gov", "Male", "India", "1985-07-12", "Visa", "abc"),
		row("North", "2024-01-08", "12:30:00", "Private Services", "Male", "Egypt", "2001-11-30", "Facial", "200.50"),
	)

	res, err := Ingest(context.Background(), "report.xlsx", buf, loadedAt)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Table.Len())
	assert.Equal(t, 3, res.Report.RowsRead)
	assert.Equal(t, 2, res.Report.RowsKept)
	assert.Equal(t, 1, res.Report.RowsDropped)
	assert.Equal(t, 1, res.Report.BadAmounts)

	recs := res.Table.Records()
	assert.Equal(t, "Main", recs[0].CenterName)
	assert.Equal(t, "2024-01-06", recs[0].TransactionDate.String())
	assert.Equal(t, "1990-02-01", recs[0].DOB.String())
	assert.Equal(t, int64(10000), recs[0].ServicePaidAmount.Cents)
	assert.Equal(t, int64(20050), recs[1].ServicePaidAmount.Cents)
	assert.Equal(t, "report.xlsx", res.Table.Source())
	assert.Equal(t, loadedAt, res.Table.LoadedAt())
}

func TestIngestDropsRowsWithUnparsableDates(t *testing.T) {
	buf := workbook(t, RequiredColumns,
		row("Main", "not a date", "10:15:00", "Gov", "Female", "UAE", "1990-02-01", "Visa", 10),
		row("Main", "2024-01-07", "10:15:00", "Gov", "Female", "UAE", "", "Visa", 10),
		row("Main", "2024-01-07", "10:15:00", "Gov", "Female", "UAE", "1990-02-01", "Visa", ""),
		row("Main", "2024-01-07", "bad", "Gov", "Female", "UAE", "1990-02-01", "Visa", 10),
	)

	res, err := Ingest(context.Background(), "report.xlsx", buf, loadedAt)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Table.Len())
	assert.Equal(t, 1, res.Report.BadDates)
	assert.Equal(t, 1, res.Report.BadDOBs)
	assert.Equal(t, 1, res.Report.BadAmounts)
	assert.Equal(t, 3, res.Report.RowsDropped)
	// an unparsable time never drops a row
	assert.Equal(t, 1, res.Report.BadTimes)
	assert.Equal(t, "bad", res.Table.Records()[0].TransactionTime)
}

func TestIngestReportsAllMissingColumns(t *testing.T) {
	header := []string{"CenterName", "TransactionDate", "TransactionTime", "ServiceType", "Nationality", "ServiceName", "ServicePaidAmount", "gender"}
	buf := workbook(t, header, []any{"Main", "2024-01-06", "10:00:00", "Gov", "UAE", "Visa", 10, "Male"})

	_, err := Ingest(context.Background(), "report.xlsx", buf, loadedAt)
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, []string{"Gender", "DOB"}, missing.Columns)
	assert.Equal(t, "the uploaded file is missing the following columns: Gender, DOB", err.Error())
}

func TestIngestProjectsAwayExtraColumns(t *testing.T) {
	header := append([]string{"Receipt"}, RequiredColumns...)
	header = append(header, "Cashier")
	buf := workbook(t, header,
		append([]any{"R-1"}, append(row("Main", "2024-01-06", "10:00:00", "Gov", "Male", "UAE", "1980-01-01", "Visa", 5), "Ann")...),
	)

	res, err := Ingest(context.Background(), "Report.XLSX", buf, loadedAt)
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, []string{"Receipt", "Cashier"}, res.Report.ExtraColumns)
	rec := res.Table.Records()[0]
	assert.Equal(t, "Main", rec.CenterName)
	assert.Equal(t, "Visa", rec.ServiceName)
}

func TestIngestReadsExcelSerialDatesAndTimes(t *testing.T) {
	buf := workbook(t, RequiredColumns,
		[]any{"Main", 45296, 0.5, "Gov", "Male", "UAE", 32874, "Visa", 5.25},
	)

	res, err := Ingest(context.Background(), "report.xlsx", buf, loadedAt)
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	rec := res.Table.Records()[0]
	assert.Equal(t, "2024-01-05", rec.TransactionDate.String())
	assert.Equal(t, "1990-01-01", rec.DOB.String())
	assert.Equal(t, int64(525), rec.ServicePaidAmount.Cents)
	hour, ok := ParseHour(rec.TransactionTime)
	assert.True(t, ok)
	assert.Equal(t, 12, hour)
}

func TestIngestSkipsBlankRows(t *testing.T) {
	buf := workbook(t, RequiredColumns,
		row("Main", "2024-01-06", "10:00:00", "Gov", "Male", "UAE", "1980-01-01", "Visa", 5),
		[]any{"", "", "", "", "", "", "", "", ""},
		row("Main", "2024-01-07", "10:00:00", "Gov", "Male", "UAE", "1980-01-01", "Visa", 5),
	)
	res, err := Ingest(context.Background(), "report.xlsx", buf, loadedAt)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Report.RowsRead)
	assert.Equal(t, 2, res.Table.Len())
}

func TestIngestHeaderOnlyYieldsEmptyTable(t *testing.T) {
	res, err := Ingest(context.Background(), "report.xlsx", workbook(t, RequiredColumns), loadedAt)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Table.Len())
}

func TestParseRejectsUnsupportedExtension(t *testing.T) {
	_, err := Parse("report.csv", strings.NewReader("a,b\n1,2\n"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = Parse("report", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseReportsCorruptFiles(t *testing.T) {
	for _, name := range []string{"broken.xlsx", "broken.xls"} {
		_, err := Parse(name, bytes.NewReader([]byte("definitely not a spreadsheet")))
		assert.ErrorIs(t, err, ErrUnreadable, name)
	}
}

func TestParseEmptyWorksheet(t *testing.T) {
	buf := workbook(t, []string{""})
	_, err := Parse("empty.xlsx", buf)
	assert.ErrorIs(t, err, ErrEmptyWorkbook)
}

func TestSupportedExtension(t *testing.T) {
	assert.True(t, SupportedExtension("a.xlsx"))
	assert.True(t, SupportedExtension("A.XLS"))
	assert.False(t, SupportedExtension("a.xlsm"))
	assert.False(t, SupportedExtension("a.csv"))
}

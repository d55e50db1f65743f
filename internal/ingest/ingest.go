// Package ingest turns an uploaded spreadsheet into a cleaned, typed table.
//
// Ingestion is strict about the schema and lenient about rows: a missing
// required column aborts the upload, while a row whose transaction date, date
// of birth or paid amount cannot be coerced is dropped and only counted.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"corpdash/internal/core"
	"corpdash/internal/log"
)

// Report summarizes what happened to the rows of an upload.
type Report struct {
	RowsRead     int
	RowsKept     int
	RowsDropped  int
	BadDates     int // unparsable TransactionDate
	BadDOBs      int
	BadAmounts   int
	BadTimes     int // kept rows whose hour is unknown
	ExtraColumns []string
}

// Result is a successful ingestion.
type Result struct {
	Table  *core.Table
	Report Report
}

// Ingest parses, validates and cleans an upload.
func Ingest(ctx context.Context, filename string, r io.Reader, loadedAt time.Time) (*Result, error) {
	sheet, err := Parse(filename, r)
	if err != nil {
		return nil, err
	}
	res, err := Clean(filename, sheet, loadedAt)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).DebugContext(ctx, "Upload cleaned",
		log.FieldOperation, log.OpIngest,
		log.FieldFilename, filename,
		log.FieldRowsRead, res.Report.RowsRead,
		log.FieldRowsKept, res.Report.RowsKept,
		log.FieldRowsDropped, res.Report.RowsDropped)
	return res, nil
}

// Clean projects sheet onto the required columns, coerces types and drops
// rows missing an essential value.
func Clean(source string, sheet *Sheet, loadedAt time.Time) (*Result, error) {
	proj, extras, err := project(sheet.Header)
	if err != nil {
		return nil, err
	}

	rep := Report{ExtraColumns: extras}
	records := make([]core.Transaction, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if blank(row) {
			continue
		}
		rep.RowsRead++

		txDate, okDate := ParseDate(proj.cell(row, ColTransactionDate), sheet.Date1904)
		dob, okDOB := ParseDate(proj.cell(row, ColDOB), sheet.Date1904)
		amount, amtErr := core.ParseAmount(proj.cell(row, ColServicePaidAmount))
		if !okDate {
			rep.BadDates++
		}
		if !okDOB {
			rep.BadDOBs++
		}
		if amtErr != nil {
			rep.BadAmounts++
		}
		if !okDate || !okDOB || amtErr != nil {
			rep.RowsDropped++
			continue
		}

		tx := core.Transaction{
			CenterName:        proj.cell(row, ColCenterName),
			TransactionDate:   txDate,
			TransactionTime:   proj.cell(row, ColTransactionTime),
			ServiceType:       proj.cell(row, ColServiceType),
			Gender:            proj.cell(row, ColGender),
			Nationality:       proj.cell(row, ColNationality),
			DOB:               dob,
			ServiceName:       proj.cell(row, ColServiceName),
			ServicePaidAmount: amount,
		}
		if _, ok := ParseHour(tx.TransactionTime); !ok {
			rep.BadTimes++
		}
		records = append(records, tx)
	}
	rep.RowsKept = len(records)

	table, err := core.NewTable(source, loadedAt, records)
	if err != nil {
		return nil, fmt.Errorf("build table: %w", err)
	}
	return &Result{Table: table, Report: rep}, nil
}

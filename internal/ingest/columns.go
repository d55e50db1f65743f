package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Column names an upload must carry, matched exactly and case-sensitively.
const (
	ColCenterName        = "CenterName"
	ColTransactionDate   = "TransactionDate"
	ColTransactionTime   = "TransactionTime"
	ColServiceType       = "ServiceType"
	ColGender            = "Gender"
	ColNationality       = "Nationality"
	ColDOB               = "DOB"
	ColServiceName       = "ServiceName"
	ColServicePaidAmount = "ServicePaidAmount"
)

// RequiredColumns lists the projected schema in its canonical order.
var RequiredColumns = []string{
	ColCenterName, ColTransactionDate, ColTransactionTime, ColServiceType,
	ColGender, ColNationality, ColDOB, ColServiceName, ColServicePaidAmount,
}

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnreadable        = errors.New("unable to read spreadsheet")
	ErrEmptyWorkbook     = errors.New("worksheet is empty")
)

// MissingColumnsError reports required columns absent from the header row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("the uploaded file is missing the following columns: %s", strings.Join(e.Columns, ", "))
}

// projection maps each required column to its index in the header.
type projection map[string]int

// project locates the required columns in header. The first occurrence of a
// duplicated name wins. Columns not in the schema are returned as extras.
func project(header []string) (projection, []string, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	proj := make(projection, len(RequiredColumns))
	var missing []string
	for _, col := range RequiredColumns {
		i, ok := index[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		proj[col] = i
	}
	if len(missing) > 0 {
		return nil, nil, &MissingColumnsError{Columns: missing}
	}

	required := make(map[string]struct{}, len(RequiredColumns))
	for _, col := range RequiredColumns {
		required[col] = struct{}{}
	}
	var extras []string
	for _, h := range header {
		if _, ok := required[h]; !ok && strings.TrimSpace(h) != "" {
			extras = append(extras, h)
		}
	}
	return proj, extras, nil
}

// cell returns the projected value of col in row, or "" when the row is short.
func (p projection) cell(row []string, col string) string {
	i := p[col]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

package core

import (
	"errors"
	"fmt"
	"time"
)

type (
	// Date is a calendar date; the time-of-day part is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is one cleaned row of an uploaded report.
	Transaction struct {
		CenterName        string
		TransactionDate   Date
		TransactionTime   string // raw HH:MM:SS text as uploaded
		ServiceType       string
		Gender            string
		Nationality       string
		DOB               Date
		ServiceName       string
		ServicePaidAmount Money
	}

	// Table is the immutable result of a successful upload.
	Table struct {
		source   string
		loadedAt time.Time
		records  []Transaction
	}
)

var (
	ErrZeroDate       = errors.New("date cannot be zero")
	ErrMissingDate    = errors.New("missing transaction date")
	ErrMissingDOB     = errors.New("missing date of birth")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyTableName = errors.New("empty table source")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Validate checks the invariants every cleaned row must satisfy.
func (t Transaction) Validate() error {
	if t.TransactionDate.IsEmpty() {
		return ErrMissingDate
	}
	if t.DOB.IsEmpty() {
		return ErrMissingDOB
	}
	return nil
}

// NewTable copies records into a new immutable table.
func NewTable(source string, loadedAt time.Time, records []Transaction) (*Table, error) {
	if source == "" {
		return nil, ErrEmptyTableName
	}
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	cp := make([]Transaction, len(records))
	copy(cp, records)
	return &Table{source: source, loadedAt: loadedAt, records: cp}, nil
}

// Source is the uploaded file name the table was built from.
func (t *Table) Source() string { return t.source }

// LoadedAt is when the table was published.
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Records returns a copy of the rows so callers cannot mutate the table.
func (t *Table) Records() []Transaction {
	if t == nil {
		return nil
	}
	out := make([]Transaction, len(t.records))
	copy(out, t.records)
	return out
}

package core

import (
	"errors"
	"testing"
	"time"
)

func sampleTx() Transaction {
	return Transaction{
		CenterName:        "Main",
		TransactionDate:   NewDate(2024, 3, 2),
		TransactionTime:   "10:15:00",
		ServiceType:       "Private Services",
		Gender:            "Female",
		Nationality:       "UAE",
		DOB:               NewDate(1990, 6, 1),
		ServiceName:       "Massage",
		ServicePaidAmount: Money{Cents: 12000},
	}
}

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{}).Validate(); !errors.Is(err, ErrZeroDate) {
		t.Fatalf("expected ErrZeroDate, got %v", err)
	}
}

func TestDateOfTruncates(t *testing.T) {
	d := DateOf(time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC))
	if d.String() != "2024-02-29" || d.Hour() != 0 {
		t.Fatalf("unexpected date %v", d.Time)
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := sampleTx().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := sampleTx()
	bad.DOB = Date{}
	if err := bad.Validate(); !errors.Is(err, ErrMissingDOB) {
		t.Fatalf("expected ErrMissingDOB, got %v", err)
	}
	bad = sampleTx()
	bad.TransactionDate = Date{}
	if err := bad.Validate(); !errors.Is(err, ErrMissingDate) {
		t.Fatalf("expected ErrMissingDate, got %v", err)
	}
}

func TestTableIsImmutable(t *testing.T) {
	src := []Transaction{sampleTx(), sampleTx()}
	tbl, err := NewTable("report.xlsx", time.Now(), src)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	src[0].CenterName = "changed"
	recs := tbl.Records()
	recs[1].CenterName = "changed too"
	for _, r := range tbl.Records() {
		if r.CenterName != "Main" {
			t.Fatalf("table mutated through caller slice: %+v", r)
		}
	}
	if tbl.Len() != 2 || tbl.Source() != "report.xlsx" {
		t.Fatalf("unexpected table metadata: len=%d source=%q", tbl.Len(), tbl.Source())
	}
}

func TestNewTableRejectsInvalidRows(t *testing.T) {
	bad := sampleTx()
	bad.TransactionDate = Date{}
	if _, err := NewTable("x.xlsx", time.Now(), []Transaction{sampleTx(), bad}); !errors.Is(err, ErrMissingDate) {
		t.Fatalf("expected ErrMissingDate, got %v", err)
	}
	if _, err := NewTable("", time.Now(), nil); !errors.Is(err, ErrEmptyTableName) {
		t.Fatalf("expected ErrEmptyTableName, got %v", err)
	}
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	if tbl.Len() != 0 || tbl.Records() != nil {
		t.Fatalf("nil table should be empty")
	}
}

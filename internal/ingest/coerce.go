package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"corpdash/internal/core"
)

// dateLayouts are tried in order; slash and dash short forms are month-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06",
	"01-02-06",
	"1-2-06",
	"02-Jan-2006",
	"2-Jan-06",
	"2 January 2006",
	"January 2, 2006",
}

// Bounds of a plausible Excel serial date (1900-01-01 .. 9999-12-31).
const (
	minSerial = 1
	maxSerial = 2958465
)

// ParseDate coerces a raw cell into a calendar date. Numeric cells are read
// as Excel serial dates. ok is false when nothing matches.
func ParseDate(raw string, date1904 bool) (core.Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return core.Date{}, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || v < minSerial || v > maxSerial {
			return core.Date{}, false
		}
		t, err := excelize.ExcelDateToTime(v, date1904)
		if err != nil {
			return core.Date{}, false
		}
		return core.DateOf(t), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), true
		}
	}
	return core.Date{}, false
}

// ParseHour extracts the hour from an HH:MM:SS cell. A time-formatted Excel
// cell arrives as a day fraction in [0,1) and is accepted too.
func ParseHour(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t.Hour(), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v >= 1 {
		return 0, false
	}
	secs := int(math.Round(v * 86400))
	return (secs / 3600) % 24, true
}

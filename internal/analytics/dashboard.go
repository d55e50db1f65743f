// Package analytics computes the dashboard aggregates of a cleaned table.
//
// Every view is a pure function of the cohort selected by the service-type
// toggle. Grouping and summing run on a gota dataframe; ordering, top-N
// truncation and zero filling are applied to the grouped result.
package analytics

import (
	"fmt"

	"corpdash/internal/core"
)

// Dashboard is every view of one cohort.
type Dashboard struct {
	Cohort                 Cohort
	Headline               Headline
	TopServices            []RevenuePoint
	RevenueByCenter        []RevenuePoint
	TransactionsByGender   []CountPoint
	TopNationalities       []CountPoint
	TransactionsByAgeGroup []CountPoint
	Daily                  []DailyPoint
	TransactionsByWeekday  []CountPoint
	TransactionsByHour     []HourPoint
}

// Build filters table to cohort c and computes all views. It returns
// ErrNoData for a nil table and ErrEmptyCohort when no row matches.
func Build(table *core.Table, c Cohort) (*Dashboard, error) {
	if table == nil {
		return nil, ErrNoData
	}
	cohort, err := NewFrame(table).Filter(c)
	if err != nil {
		return nil, err
	}
	if cohort.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCohort, c.Label())
	}

	d := &Dashboard{Cohort: c, Headline: cohort.Headline()}
	steps := []struct {
		name string
		run  func() error
	}{
		{"top services", func() (err error) { d.TopServices, err = cohort.TopServices(); return }},
		{"revenue by center", func() (err error) { d.RevenueByCenter, err = cohort.RevenueByCenter(); return }},
		{"gender", func() (err error) { d.TransactionsByGender, err = cohort.TransactionsByGender(); return }},
		{"nationalities", func() (err error) { d.TopNationalities, err = cohort.TopNationalities(); return }},
		{"age groups", func() (err error) { d.TransactionsByAgeGroup, err = cohort.TransactionsByAgeGroup(); return }},
		{"daily", func() (err error) { d.Daily, err = cohort.Daily(); return }},
		{"weekday", func() (err error) { d.TransactionsByWeekday, err = cohort.TransactionsByWeekday(); return }},
		{"hour", func() (err error) { d.TransactionsByHour, err = cohort.TransactionsByHour(); return }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("%s view: %w", s.name, err)
		}
	}
	return d, nil
}

package http

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"corpdash/internal/analytics"
	"corpdash/internal/audit"
	"corpdash/internal/core"
	"corpdash/internal/ingest"
)

var templateFuncs = template.FuncMap{
	"aed":       formatAED,
	"count":     formatCount,
	"timestamp": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"join":      strings.Join,
	"plural":    pluralize,
}

type (
	indexPage struct {
		Title          string
		Accept         string
		MaxUploadMB    int64
		Current        *loadedTable
		Success        *uploadSummary
		Error          string
		MissingColumns []string
		Recent         []audit.Event
	}

	loadedTable struct {
		Source   string
		LoadedAt time.Time
		Rows     int
	}

	uploadSummary struct {
		Filename string
		Report   ingest.Report
	}

	errorPage struct {
		Title   string
		Message string
	}

	dashboardPage struct {
		Title    string
		Cohort   analytics.Cohort
		Options  []cohortOption
		Source   string
		LoadedAt time.Time
		NoData   bool
		Empty    bool
		Error    string
		Headline headlineView
		Charts   chartData
	}

	cohortOption struct {
		Value  analytics.Cohort
		Label  string
		Active bool
	}

	headlineView struct {
		TotalRevenue  string
		Transactions  string
		AverageTicket string
	}
)

func newCohortOptions(active analytics.Cohort) []cohortOption {
	opts := make([]cohortOption, 0, len(analytics.Cohorts))
	for _, c := range analytics.Cohorts {
		opts = append(opts, cohortOption{Value: c, Label: c.Label(), Active: c == active})
	}
	return opts
}

// chartData is the payload handed to the charting script and served by
// /api/dashboard. Revenue is in AED.
type chartData struct {
	Cohort          analytics.Cohort `json:"cohort"`
	Empty           bool             `json:"empty"`
	Headline        *headlineData    `json:"headline,omitempty"`
	TopServices     *series          `json:"top_services,omitempty"`
	RevenueByCenter *series          `json:"revenue_by_center,omitempty"`
	Gender          *series          `json:"gender,omitempty"`
	Nationalities   *series          `json:"nationalities,omitempty"`
	AgeGroups       *series          `json:"age_groups,omitempty"`
	Weekdays        *series          `json:"weekdays,omitempty"`
	Hours           *series          `json:"hours,omitempty"`
	Daily           *dailySeries     `json:"daily,omitempty"`
}

type headlineData struct {
	TotalRevenue  float64 `json:"total_revenue"`
	Transactions  int     `json:"transactions"`
	AverageTicket float64 `json:"average_ticket"`
}

type series struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type dailySeries struct {
	Labels       []string  `json:"labels"`
	Revenue      []float64 `json:"revenue"`
	Transactions []int     `json:"transactions"`
}

func newChartData(d *analytics.Dashboard) chartData {
	daily := &dailySeries{
		Labels:       make([]string, len(d.Daily)),
		Revenue:      make([]float64, len(d.Daily)),
		Transactions: make([]int, len(d.Daily)),
	}
	for i, p := range d.Daily {
		daily.Labels[i] = p.Date.String()
		daily.Revenue[i] = aedFloat(p.Revenue)
		daily.Transactions[i] = p.Transactions
	}

	hours := &series{Labels: make([]string, len(d.TransactionsByHour)), Values: make([]float64, len(d.TransactionsByHour))}
	for i, p := range d.TransactionsByHour {
		hours.Labels[i] = fmt.Sprintf("%02d:00", p.Hour)
		hours.Values[i] = float64(p.Count)
	}

	return chartData{
		Cohort: d.Cohort,
		Headline: &headlineData{
			TotalRevenue:  aedFloat(d.Headline.TotalRevenue),
			Transactions:  d.Headline.Transactions,
			AverageTicket: d.Headline.AverageTicket.Round(2).InexactFloat64(),
		},
		TopServices:     revenueSeries(d.TopServices),
		RevenueByCenter: revenueSeries(d.RevenueByCenter),
		Gender:          countSeries(d.TransactionsByGender),
		Nationalities:   countSeries(d.TopNationalities),
		AgeGroups:       countSeries(d.TransactionsByAgeGroup),
		Weekdays:        countSeries(d.TransactionsByWeekday),
		Hours:           hours,
		Daily:           daily,
	}
}

func newHeadlineView(h analytics.Headline) headlineView {
	return headlineView{
		TotalRevenue:  formatAED(h.TotalRevenue),
		Transactions:  formatCount(h.Transactions),
		AverageTicket: "AED " + core.FormatWhole(h.AverageTicket),
	}
}

func revenueSeries(points []analytics.RevenuePoint) *series {
	s := &series{Labels: make([]string, len(points)), Values: make([]float64, len(points))}
	for i, p := range points {
		s.Labels[i] = p.Label
		s.Values[i] = aedFloat(p.Revenue)
	}
	return s
}

func countSeries(points []analytics.CountPoint) *series {
	s := &series{Labels: make([]string, len(points)), Values: make([]float64, len(points))}
	for i, p := range points {
		s.Labels[i] = p.Label
		s.Values[i] = float64(p.Count)
	}
	return s
}

func aedFloat(m core.Money) float64 {
	return m.Decimal().InexactFloat64()
}

// formatAED renders an amount in whole dirhams, e.g. "AED 1,234".
func formatAED(m core.Money) string {
	return "AED " + core.FormatWhole(m.Decimal())
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	return core.FormatWhole(decimal.NewFromInt(int64(n)))
}

// pluralize renders "1 row", "3 rows".
func pluralize(n int, singular string) string {
	if n == 1 {
		return "1 " + singular
	}
	return formatCount(n) + " " + singular + "s"
}

package analytics

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/shopspring/decimal"

	"corpdash/internal/core"
)

// TopN bounds the ranked views.
const TopN = 10

type (
	RevenuePoint struct {
		Label   string
		Revenue core.Money
	}

	CountPoint struct {
		Label string
		Count int
	}

	DailyPoint struct {
		Date         core.Date
		Revenue      core.Money
		Transactions int
	}

	HourPoint struct {
		Hour  int
		Count int
	}

	Headline struct {
		TotalRevenue  core.Money
		Transactions  int
		AverageTicket decimal.Decimal
	}
)

// Headline returns total, count and mean of the paid amount.
func (f *Frame) Headline() Headline {
	total := f.Total()
	n := f.Len()
	return Headline{TotalRevenue: total, Transactions: n, AverageTicket: core.Mean(total, n)}
}

// TopServices ranks services by revenue, highest first, at most TopN.
func (f *Frame) TopServices() ([]RevenuePoint, error) {
	sums, err := f.sumBy(colService)
	if err != nil {
		return nil, err
	}
	pts := f.revenuePoints(colService, sums)
	sort.SliceStable(pts, func(i, j int) bool {
		if pts[i].Revenue.Cents != pts[j].Revenue.Cents {
			return pts[i].Revenue.Cents > pts[j].Revenue.Cents
		}
		return pts[i].Label < pts[j].Label
	})
	return truncate(pts, TopN), nil
}

// RevenueByCenter returns every center's revenue ordered by name.
func (f *Frame) RevenueByCenter() ([]RevenuePoint, error) {
	sums, err := f.sumBy(colCenter)
	if err != nil {
		return nil, err
	}
	pts := f.revenuePoints(colCenter, sums)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Label < pts[j].Label })
	return pts, nil
}

// TransactionsByGender counts rows per gender ordered by name.
func (f *Frame) TransactionsByGender() ([]CountPoint, error) {
	counts, err := f.countBy(colGender)
	if err != nil {
		return nil, err
	}
	pts := f.countPoints(colGender, counts)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Label < pts[j].Label })
	return pts, nil
}

// TopNationalities ranks nationalities by transaction count, at most TopN.
func (f *Frame) TopNationalities() ([]CountPoint, error) {
	counts, err := f.countBy(colNationality)
	if err != nil {
		return nil, err
	}
	pts := f.countPoints(colNationality, counts)
	sort.SliceStable(pts, func(i, j int) bool {
		if pts[i].Count != pts[j].Count {
			return pts[i].Count > pts[j].Count
		}
		return pts[i].Label < pts[j].Label
	})
	return truncate(pts, TopN), nil
}

// TransactionsByAgeGroup returns all six bins in order, zero when empty.
// Rows whose age falls outside every bin are not counted.
func (f *Frame) TransactionsByAgeGroup() ([]CountPoint, error) {
	counts, err := f.countBy(colAgeGroup)
	if err != nil {
		return nil, err
	}
	pts := make([]CountPoint, len(AgeGroupLabels))
	for i, label := range AgeGroupLabels {
		pts[i] = CountPoint{Label: label, Count: counts[i]}
	}
	return pts, nil
}

// Daily returns revenue and transaction count per calendar day from the
// first to the last transaction date, with empty days as zero.
func (f *Frame) Daily() ([]DailyPoint, error) {
	codes, values, err := f.aggregate(colDay, dataframe.Aggregation_SUM, dataframe.Aggregation_COUNT)
	if err != nil || len(codes) == 0 {
		return nil, err
	}
	byDay := make(map[int]DailyPoint, len(codes))
	first, last := codes[0], codes[0]
	for i, day := range codes {
		byDay[day] = DailyPoint{
			Revenue:      core.Money{Cents: int64(math.Round(values[0][i]))},
			Transactions: int(math.Round(values[1][i])),
		}
		first = min(first, day)
		last = max(last, day)
	}
	pts := make([]DailyPoint, 0, last-first+1)
	for day := first; day <= last; day++ {
		p := byDay[day]
		p.Date = fromEpochDay(day)
		pts = append(pts, p)
	}
	return pts, nil
}

// TransactionsByWeekday always returns seven entries, Saturday first.
func (f *Frame) TransactionsByWeekday() ([]CountPoint, error) {
	counts, err := f.countBy(colWeekday)
	if err != nil {
		return nil, err
	}
	pts := make([]CountPoint, len(WeekOrder))
	for i, wd := range WeekOrder {
		pts[i] = CountPoint{Label: wd.String(), Count: counts[int(wd)]}
	}
	return pts, nil
}

// TransactionsByHour counts rows per hour of day in ascending order. Hours
// with no transactions and rows with an unknown hour are left out.
func (f *Frame) TransactionsByHour() ([]HourPoint, error) {
	counts, err := f.countBy(colHour)
	if err != nil {
		return nil, err
	}
	pts := make([]HourPoint, 0, 24)
	for h := 0; h < 24; h++ {
		if c, ok := counts[h]; ok && c > 0 {
			pts = append(pts, HourPoint{Hour: h, Count: c})
		}
	}
	return pts, nil
}

func (f *Frame) revenuePoints(key string, sums map[int]core.Money) []RevenuePoint {
	pts := make([]RevenuePoint, 0, len(sums))
	for code, m := range sums {
		pts = append(pts, RevenuePoint{Label: f.label(key, code), Revenue: m})
	}
	return pts
}

func (f *Frame) countPoints(key string, counts map[int]int) []CountPoint {
	pts := make([]CountPoint, 0, len(counts))
	for code, c := range counts {
		pts = append(pts, CountPoint{Label: f.label(key, code), Count: c})
	}
	return pts
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

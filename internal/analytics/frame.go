package analytics

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"corpdash/internal/core"
)

const (
	colCenter      = "CenterName"
	colService     = "ServiceName"
	colGender      = "Gender"
	colNationality = "Nationality"
	colPrivate     = "Private"
	colDay         = "Day"
	colWeekday     = "DayOfWeek"
	colAge         = "Age"
	colAgeGroup    = "AgeGroup"
	colHour        = "Hour"
	colAmount      = "ServicePaidAmount" // cents
)

// UnknownLabel stands in for blank grouping keys.
const UnknownLabel = "Unknown"

// dictionary encodes labels as dense integer codes. Grouping on codes keeps
// gota from reading labels such as "NA" or "NaN" as missing values.
type dictionary struct {
	codes  map[string]int
	labels []string
}

func newDictionary() *dictionary {
	return &dictionary{codes: make(map[string]int)}
}

func (d *dictionary) code(label string) int {
	if strings.TrimSpace(label) == "" {
		label = UnknownLabel
	}
	if c, ok := d.codes[label]; ok {
		return c
	}
	c := len(d.labels)
	d.codes[label] = c
	d.labels = append(d.labels, label)
	return c
}

func (d *dictionary) label(code int) string {
	if code < 0 || code >= len(d.labels) {
		return UnknownLabel
	}
	return d.labels[code]
}

// Frame is a dataframe of transactions with the derived columns attached.
// Frames are never mutated; Filter returns a new one.
type Frame struct {
	df    dataframe.DataFrame
	dicts map[string]*dictionary
}

// NewFrame loads table into a dataframe and derives Age, AgeGroup,
// DayOfWeek and Hour for every row.
func NewFrame(table *core.Table) *Frame {
	recs := table.Records()
	n := len(recs)
	f := &Frame{dicts: map[string]*dictionary{
		colCenter:      newDictionary(),
		colService:     newDictionary(),
		colGender:      newDictionary(),
		colNationality: newDictionary(),
	}}
	if n == 0 {
		return f
	}

	var (
		centers   = make([]int, n)
		services  = make([]int, n)
		genders   = make([]int, n)
		nats      = make([]int, n)
		private   = make([]bool, n)
		days      = make([]int, n)
		weekdays  = make([]int, n)
		ages      = make([]int, n)
		ageGroups = make([]int, n)
		hours     = make([]int, n)
		amounts   = make([]float64, n)
	)
	for i, r := range recs {
		centers[i] = f.dicts[colCenter].code(r.CenterName)
		services[i] = f.dicts[colService].code(r.ServiceName)
		genders[i] = f.dicts[colGender].code(r.Gender)
		nats[i] = f.dicts[colNationality].code(r.Nationality)
		private[i] = Wellness.Includes(r.ServiceType)
		days[i] = epochDay(r.TransactionDate)
		weekdays[i] = int(r.TransactionDate.Weekday())
		ages[i] = AgeOf(r)
		ageGroups[i] = AgeGroupIndex(ages[i])
		hours[i] = noBucket
		if h, ok := HourOf(r); ok {
			hours[i] = h
		}
		amounts[i] = float64(r.ServicePaidAmount.Cents)
	}

	f.df = dataframe.New(
		series.New(centers, series.Int, colCenter),
		series.New(services, series.Int, colService),
		series.New(genders, series.Int, colGender),
		series.New(nats, series.Int, colNationality),
		series.New(private, series.Bool, colPrivate),
		series.New(days, series.Int, colDay),
		series.New(weekdays, series.Int, colWeekday),
		series.New(ages, series.Int, colAge),
		series.New(ageGroups, series.Int, colAgeGroup),
		series.New(hours, series.Int, colHour),
		series.New(amounts, series.Float, colAmount),
	)
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f.df.Ncol() == 0 {
		return 0
	}
	return f.df.Nrow()
}

// Filter keeps the rows of cohort c.
func (f *Frame) Filter(c Cohort) (*Frame, error) {
	if f.Len() == 0 {
		return f, nil
	}
	df := f.df.Filter(dataframe.F{
		Colname:    colPrivate,
		Comparator: series.Eq,
		Comparando: c == Wellness,
	})
	if df.Err != nil {
		return nil, fmt.Errorf("filter cohort %s: %w", c, df.Err)
	}
	return &Frame{df: df, dicts: f.dicts}, nil
}

// Total is the summed amount of all rows.
func (f *Frame) Total() core.Money {
	if f.Len() == 0 {
		return core.Money{}
	}
	return core.Money{Cents: int64(math.Round(f.df.Col(colAmount).Sum()))}
}

// aggregate groups by an integer key column and applies each aggregation
// to the amount column. Codes come back in the dataframe's group order.
func (f *Frame) aggregate(key string, aggs ...dataframe.AggregationType) ([]int, [][]float64, error) {
	if f.Len() == 0 {
		return nil, nil, nil
	}
	cols := make([]string, len(aggs))
	for i := range aggs {
		cols[i] = colAmount
	}
	out := f.df.GroupBy(key).Aggregation(aggs, cols)
	if out.Err != nil {
		return nil, nil, fmt.Errorf("aggregate by %s: %w", key, out.Err)
	}
	codes, err := out.Col(key).Int()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s codes: %w", key, err)
	}
	values := make([][]float64, len(aggs))
	for i, agg := range aggs {
		col := out.Col(fmt.Sprintf("%s_%s", colAmount, agg))
		if col.Err != nil {
			return nil, nil, fmt.Errorf("read %s of %s: %w", agg, key, col.Err)
		}
		values[i] = col.Float()
	}
	return codes, values, nil
}

func (f *Frame) sumBy(key string) (map[int]core.Money, error) {
	codes, values, err := f.aggregate(key, dataframe.Aggregation_SUM)
	if err != nil {
		return nil, err
	}
	out := make(map[int]core.Money, len(codes))
	for i, c := range codes {
		out[c] = core.Money{Cents: int64(math.Round(values[0][i]))}
	}
	return out, nil
}

func (f *Frame) countBy(key string) (map[int]int, error) {
	codes, values, err := f.aggregate(key, dataframe.Aggregation_COUNT)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(codes))
	for i, c := range codes {
		out[c] = int(math.Round(values[0][i]))
	}
	return out, nil
}

func (f *Frame) label(key string, code int) string {
	return f.dicts[key].label(code)
}

package analytics

import (
	"time"

	"corpdash/internal/core"
	"corpdash/internal/ingest"
)

// Age group bins are half-open: [0,18) [18,30) [30,40) [40,50) [50,60) [60,100).
var (
	ageEdges       = []int{0, 18, 30, 40, 50, 60, 100}
	AgeGroupLabels = []string{"<18", "18-29", "30-39", "40-49", "50-59", "60+"}
)

// WeekOrder is the Saturday-first week used by the day-of-week view.
var WeekOrder = []time.Weekday{
	time.Saturday, time.Sunday, time.Monday, time.Tuesday,
	time.Wednesday, time.Thursday, time.Friday,
}

// noBucket marks a derived key with no value (unknown hour, age outside bins).
const noBucket = -1

// AgeOf is the difference of calendar years; month and day are ignored, so
// it can overstate the age by one.
func AgeOf(tx core.Transaction) int {
	return tx.TransactionDate.Year() - tx.DOB.Year()
}

// AgeGroupIndex returns the bin of age, or -1 when age is outside [0,100).
func AgeGroupIndex(age int) int {
	for i := 0; i+1 < len(ageEdges); i++ {
		if age >= ageEdges[i] && age < ageEdges[i+1] {
			return i
		}
	}
	return noBucket
}

// AgeGroupOf returns the bin label of age.
func AgeGroupOf(age int) (string, bool) {
	i := AgeGroupIndex(age)
	if i == noBucket {
		return "", false
	}
	return AgeGroupLabels[i], true
}

// DayOfWeek is the English weekday name of the transaction date.
func DayOfWeek(tx core.Transaction) string {
	return tx.TransactionDate.Weekday().String()
}

// HourOf is the hour of TransactionTime; ok is false when it does not parse.
func HourOf(tx core.Transaction) (int, bool) {
	return ingest.ParseHour(tx.TransactionTime)
}

// epochDay numbers calendar days so they can be grouped as integers.
func epochDay(d core.Date) int {
	return int(d.Unix() / 86400)
}

func fromEpochDay(n int) core.Date {
	return core.DateOf(time.Unix(int64(n)*86400, 0).UTC())
}

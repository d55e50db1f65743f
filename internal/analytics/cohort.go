package analytics

import (
	"errors"
	"fmt"
	"strings"
)

// PrivateServices is the ServiceType value that marks the wellness cohort.
const PrivateServices = "Private Services"

// Cohort selects one side of the service-type partition.
type Cohort string

const (
	Wellness     Cohort = "wellness"
	Governmental Cohort = "governmental"
)

// Cohorts lists the toggle options in display order.
var Cohorts = []Cohort{Wellness, Governmental}

var (
	ErrNoData        = errors.New("no data uploaded")
	ErrEmptyCohort   = errors.New("no data for this selection")
	ErrUnknownCohort = errors.New("unknown service type")
)

// ParseCohort reads a toggle value; the empty string selects Wellness.
func ParseCohort(s string) (Cohort, error) {
	switch Cohort(strings.ToLower(strings.TrimSpace(s))) {
	case "", Wellness:
		return Wellness, nil
	case Governmental:
		return Governmental, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCohort, s)
}

// Label is the name shown on the toggle.
func (c Cohort) Label() string {
	if c == Governmental {
		return "Governmental"
	}
	return "Wellness"
}

// Includes reports whether a row with serviceType belongs to c. Governmental
// is the complement of Wellness, not a list of values.
func (c Cohort) Includes(serviceType string) bool {
	return (serviceType == PrivateServices) == (c == Wellness)
}

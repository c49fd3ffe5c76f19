package standings

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	rateWindowDays = 30
	daysPerYear    = 365
	daysPerMonth   = 30
)

// Project returns the number of whole days until a reference airline growing
// at refRate flights/day overtakes a candidate growing at candRate, or nil when
// the trend never closes the gap. refRate must be positive.
func Project(refTotal int, refRate float64, candTotal int, candRate float64) *int {
	if candRate >= refRate || candTotal <= refTotal {
		return nil
	}
	days := int(math.Round(float64(candTotal-refTotal) / (refRate - candRate)))
	return &days
}

// trailingRate converts a 30-day flight count into flights per day.
// A missing count yields 0.
func trailingRate(month *int) float64 {
	if month == nil {
		return 0
	}
	return float64(*month) / rateWindowDays
}

// ApplyProjections fills DaysToPass, DaysToPassStr and Reference on every
// airline in place. It reports whether projections could be computed at all;
// when the reference is missing or has no positive 30-day figure, every row is
// marked not applicable and false is returned.
func ApplyProjections(airlines []Airline, referenceID int) bool {
	var ref *Airline
	for i := range airlines {
		airlines[i].Reference = airlines[i].ID == referenceID
		airlines[i].DaysToPass = nil
		airlines[i].DaysToPassStr = NotApplicable
		if airlines[i].Reference {
			ref = &airlines[i]
		}
	}

	if ref == nil || ref.TotalFlights == nil || ref.FlightsLast30Days == nil || *ref.FlightsLast30Days <= 0 {
		return false
	}
	refTotal := *ref.TotalFlights
	refRate := trailingRate(ref.FlightsLast30Days)

	for i := range airlines {
		a := &airlines[i]
		if a.Reference || a.TotalFlights == nil {
			continue
		}
		days := Project(refTotal, refRate, *a.TotalFlights, trailingRate(a.FlightsLast30Days))
		a.DaysToPass = days
		a.DaysToPassStr = FormatDays(days)
	}
	return true
}

// FormatDays renders a day count as "N years, N months, N days", leaving out
// zero units. Nil or negative counts render as N/A; zero renders as "0 days".
func FormatDays(days *int) string {
	if days == nil || *days < 0 {
		return NotApplicable
	}

	d := *days
	years := d / daysPerYear
	d %= daysPerYear
	months := d / daysPerMonth
	d %= daysPerMonth

	var parts []string
	if years > 0 {
		parts = append(parts, pluralize(years, "year"))
	}
	if months > 0 {
		parts = append(parts, pluralize(months, "month"))
	}
	if d > 0 || len(parts) == 0 {
		parts = append(parts, pluralize(d, "day"))
	}
	return strings.Join(parts, ", ")
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// SortByTotalFlights orders airlines by lifetime flights descending. The sort
// is stable so ties keep roster order; airlines without a count go last.
func SortByTotalFlights(airlines []Airline) {
	sort.SliceStable(airlines, func(i, j int) bool {
		return flightsOrMinus(airlines[i].TotalFlights) > flightsOrMinus(airlines[j].TotalFlights)
	})
}

func flightsOrMinus(v *int) int {
	if v == nil {
		return -1
	}
	return *v
}

// ApplyDisplayPolicy returns the airlines to show for the given policy.
// The reference is always kept. When the reference has no lifetime count
// nothing is filtered.
func ApplyDisplayPolicy(airlines []Airline, policy DisplayPolicy, referenceID int) []Airline {
	if policy != DisplayAboveReference {
		return airlines
	}

	var refTotal *int
	for _, a := range airlines {
		if a.ID == referenceID {
			refTotal = a.TotalFlights
			break
		}
	}
	if refTotal == nil {
		return airlines
	}

	out := make([]Airline, 0, len(airlines))
	for _, a := range airlines {
		if a.ID == referenceID || (a.TotalFlights != nil && *a.TotalFlights >= *refTotal) {
			out = append(out, a)
		}
	}
	return out
}

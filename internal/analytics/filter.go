package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrInvalidFilter marks malformed filter input. The operation aborts
// and the error is surfaced to the caller.
var ErrInvalidFilter = errors.New("analytics: invalid filter")

// DateRange is an inclusive [From, To] span over order dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Filter is the current dashboard selection. Every field is optional;
// a nil range or empty set means no restriction on that dimension.
// Filters are value objects: rebuilt on each interaction, never mutated.
type Filter struct {
	DateRange *DateRange
	Cities    []string
	Channels  []string
}

// Validate rejects an inverted date range.
func (f Filter) Validate() error {
	if f.DateRange != nil && f.DateRange.From.After(f.DateRange.To) {
		return fmt.Errorf("%w: date range start %s is after end %s",
			ErrInvalidFilter,
			f.DateRange.From.Format("2006-01-02"),
			f.DateRange.To.Format("2006-01-02"))
	}
	return nil
}

// Predicate builds a pure predicate over denormalized rows. The three
// clauses are AND-combined; city and channel membership is matched
// case-insensitively.
func (f Filter) Predicate() (Predicate, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	cities := toLowerSet(f.Cities)
	channels := toLowerSet(f.Channels)
	dr := f.DateRange

	return func(r Row) bool {
		if dr != nil {
			d := r.Order.OrderDate
			if d.Before(dr.From) || d.After(dr.To) {
				return false
			}
		}
		if len(cities) > 0 && !cities[strings.ToLower(r.Customer.City)] {
			return false
		}
		if len(channels) > 0 && !channels[strings.ToLower(r.Order.Channel)] {
			return false
		}
		return true
	}, nil
}

// Fingerprint returns a canonical string for the selection, used as the
// memoization key together with the dataset version. Sets are lowercased
// and sorted so that equivalent selections share a fingerprint.
func (f Filter) Fingerprint() string {
	var b strings.Builder
	if f.DateRange != nil {
		b.WriteString(f.DateRange.From.Format(time.RFC3339))
		b.WriteByte('/')
		b.WriteString(f.DateRange.To.Format(time.RFC3339))
	}
	b.WriteByte('|')
	b.WriteString(canonicalSet(f.Cities))
	b.WriteByte('|')
	b.WriteString(canonicalSet(f.Channels))
	return b.String()
}

func canonicalSet(items []string) string {
	if len(items) == 0 {
		return ""
	}
	lowered := make([]string, len(items))
	for i, s := range items {
		lowered[i] = strings.ToLower(s)
	}
	sort.Strings(lowered)
	return strings.Join(lowered, ",")
}

func toLowerSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[strings.ToLower(s)] = true
	}
	return set
}

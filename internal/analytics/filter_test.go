package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souqplus/analytics/internal/dataset"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFilter_Validate(t *testing.T) {
	ok := Filter{DateRange: &DateRange{From: date("2025-01-01"), To: date("2025-01-31")}}
	assert.NoError(t, ok.Validate())

	inverted := Filter{DateRange: &DateRange{From: date("2025-02-01"), To: date("2025-01-01")}}
	err := inverted.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	assert.NoError(t, Filter{}.Validate())
}

func TestFilter_Predicate(t *testing.T) {
	row := func(day, city, channel string) Row {
		return Row{
			Order:    dataset.Order{OrderDate: date(day), Channel: channel},
			Customer: dataset.Customer{City: city},
		}
	}

	tests := []struct {
		name   string
		filter Filter
		row    Row
		want   bool
	}{
		{"empty_filter_matches_all", Filter{}, row("2025-06-01", "Dubai", "web"), true},
		{
			"inside_date_range",
			Filter{DateRange: &DateRange{From: date("2025-01-01"), To: date("2025-01-31")}},
			row("2025-01-15", "Dubai", "web"),
			true,
		},
		{
			"range_is_inclusive_on_both_ends",
			Filter{DateRange: &DateRange{From: date("2025-01-01"), To: date("2025-01-31")}},
			row("2025-01-31", "Dubai", "web"),
			true,
		},
		{
			"outside_date_range",
			Filter{DateRange: &DateRange{From: date("2025-01-01"), To: date("2025-01-31")}},
			row("2025-02-01", "Dubai", "web"),
			false,
		},
		{
			"city_match_is_case_insensitive",
			Filter{Cities: []string{"DUBAI"}},
			row("2025-06-01", "dubai", "web"),
			true,
		},
		{
			"city_not_in_set",
			Filter{Cities: []string{"Sharjah"}},
			row("2025-06-01", "Dubai", "web"),
			false,
		},
		{
			"channel_filter",
			Filter{Channels: []string{"app"}},
			row("2025-06-01", "Dubai", "web"),
			false,
		},
		{
			"all_clauses_must_hold",
			Filter{
				DateRange: &DateRange{From: date("2025-01-01"), To: date("2025-12-31")},
				Cities:    []string{"Dubai"},
				Channels:  []string{"web"},
			},
			row("2025-06-01", "Dubai", "web"),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := tt.filter.Predicate()
			require.NoError(t, err)
			assert.Equal(t, tt.want, pred(tt.row))
		})
	}
}

func TestFilter_Predicate_InvalidRange(t *testing.T) {
	f := Filter{DateRange: &DateRange{From: date("2025-02-01"), To: date("2025-01-01")}}
	_, err := f.Predicate()
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestFilter_Fingerprint(t *testing.T) {
	a := Filter{Cities: []string{"Dubai", "Sharjah"}, Channels: []string{"Web"}}
	b := Filter{Cities: []string{"sharjah", "DUBAI"}, Channels: []string{"web"}}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "set order and case must not matter")

	c := Filter{Cities: []string{"Dubai"}}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	withRange := Filter{DateRange: &DateRange{From: date("2025-01-01"), To: date("2025-01-31")}}
	assert.NotEqual(t, Filter{}.Fingerprint(), withRange.Fingerprint())
}

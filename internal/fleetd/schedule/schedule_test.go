package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// 2024-03-04 is a Monday
func monday(hour, min int) time.Time {
	return time.Date(2024, 3, 4, hour, min, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestDisabledScheduleFollowsActiveFlag(t *testing.T) {
	past := monday(0, 0).Add(-48 * time.Hour)
	spec := Spec{
		Enabled:   false,
		StartDate: ptr(past.Add(time.Hour)),
		EndDate:   ptr(past.Add(2 * time.Hour)),
		Recurring: &Recurring{Enabled: true, DaysOfWeek: []int{6}, TimeRanges: []TimeRange{{"01:00", "02:00"}}},
	}

	assert.True(t, IsEligible(spec, true, monday(12, 0)))
	assert.False(t, IsEligible(spec, false, monday(12, 0)))
}

func TestDateRangeBoundaries(t *testing.T) {
	start := monday(9, 0)
	end := monday(17, 0)
	spec := Spec{Enabled: true, StartDate: &start, EndDate: &end}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"at start is inclusive", start, true},
		{"before start", start.Add(-time.Second), false},
		{"at end", end, true},
		{"one second past end", end.Add(time.Second), false},
		{"in between", monday(12, 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEligible(spec, true, tt.now))
		})
	}
}

func TestOpenEndedDates(t *testing.T) {
	start := monday(9, 0)
	onlyStart := Spec{Enabled: true, StartDate: &start}
	assert.False(t, IsEligible(onlyStart, true, start.Add(-time.Minute)))
	assert.True(t, IsEligible(onlyStart, true, start.AddDate(1, 0, 0)))

	end := monday(9, 0)
	onlyEnd := Spec{Enabled: true, EndDate: &end}
	assert.True(t, IsEligible(onlyEnd, true, end.AddDate(-1, 0, 0)))
	assert.False(t, IsEligible(onlyEnd, true, end.Add(time.Second)))
}

func TestRecurringBoundaries(t *testing.T) {
	spec := Spec{
		Enabled: true,
		Recurring: &Recurring{
			Enabled:    true,
			DaysOfWeek: []int{1},
			TimeRanges: []TimeRange{{Start: "09:00", End: "17:00"}},
		},
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"exactly start", monday(9, 0), true},
		{"exactly end", monday(17, 0), true},
		{"end minute with seconds", monday(17, 0).Add(59 * time.Second), true},
		{"minute before start", monday(8, 59), false},
		{"minute after end", monday(17, 1), false},
		{"other weekday", monday(12, 0).AddDate(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEligible(spec, true, tt.now))
		})
	}
}

func TestRecurringMatchesAnyRange(t *testing.T) {
	spec := Spec{
		Enabled: true,
		Recurring: &Recurring{
			Enabled:    true,
			DaysOfWeek: []int{0, 1, 2, 3, 4, 5, 6},
			TimeRanges: []TimeRange{{"07:00", "09:00"}, {"17:00", "19:00"}},
		},
	}

	assert.True(t, IsEligible(spec, true, monday(8, 0)))
	assert.True(t, IsEligible(spec, true, monday(18, 0)))
	assert.False(t, IsEligible(spec, true, monday(12, 0)))
}

func TestDateAndRecurringAreConjunctive(t *testing.T) {
	start := monday(0, 0)
	end := monday(23, 59)
	spec := Spec{
		Enabled:   true,
		StartDate: &start,
		EndDate:   &end,
		Recurring: &Recurring{Enabled: true, DaysOfWeek: []int{1}, TimeRanges: []TimeRange{{"09:00", "17:00"}}},
	}

	assert.True(t, IsEligible(spec, true, monday(10, 0)))
	assert.False(t, IsEligible(spec, true, monday(18, 0)), "date passes, recurring fails")
	assert.False(t, IsEligible(spec, true, monday(10, 0).AddDate(0, 0, 7)), "recurring passes, date fails")
}

func TestInactiveItemNeverEligible(t *testing.T) {
	spec := Spec{Enabled: true}
	assert.True(t, IsEligible(spec, true, monday(10, 0)))
	assert.False(t, IsEligible(spec, false, monday(10, 0)))
}

func TestMidnightRangeNeverMatches(t *testing.T) {
	spec := Spec{
		Enabled: true,
		Recurring: &Recurring{
			Enabled:    true,
			DaysOfWeek: []int{1},
			TimeRanges: []TimeRange{{"22:00", "02:00"}},
		},
	}

	assert.NoError(t, spec.Validate())
	assert.Len(t, spec.MidnightRanges(), 1)
	assert.False(t, IsEligible(spec, true, monday(23, 0)))
	assert.False(t, IsEligible(spec, true, monday(1, 0)))
}

func TestValidate(t *testing.T) {
	start := monday(9, 0)
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"disabled with garbage", Spec{Recurring: &Recurring{Enabled: true}}, false},
		{"empty enabled", Spec{Enabled: true}, false},
		{"end equals start", Spec{Enabled: true, StartDate: &start, EndDate: &start}, true},
		{"end before start", Spec{Enabled: true, StartDate: &start, EndDate: ptr(start.Add(-time.Hour))}, true},
		{"recurring without days", Spec{Enabled: true, Recurring: &Recurring{Enabled: true, TimeRanges: []TimeRange{{"09:00", "10:00"}}}}, true},
		{"recurring without ranges", Spec{Enabled: true, Recurring: &Recurring{Enabled: true, DaysOfWeek: []int{1}}}, true},
		{"day out of range", Spec{Enabled: true, Recurring: &Recurring{Enabled: true, DaysOfWeek: []int{7}, TimeRanges: []TimeRange{{"09:00", "10:00"}}}}, true},
		{"bad time", Spec{Enabled: true, Recurring: &Recurring{Enabled: true, DaysOfWeek: []int{1}, TimeRanges: []TimeRange{{"9:00", "10:00"}}}}, true},
		{"recurring disabled skips checks", Spec{Enabled: true, Recurring: &Recurring{Enabled: false}}, false},
		{"valid", Spec{Enabled: true, StartDate: &start, EndDate: ptr(start.Add(time.Hour)), Recurring: &Recurring{Enabled: true, DaysOfWeek: []int{0, 6}, TimeRanges: []TimeRange{{"00:00", "23:59"}}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, werrors.IsInvalidInput(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

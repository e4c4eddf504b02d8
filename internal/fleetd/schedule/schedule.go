// Package schedule decides whether content is eligible to play at a given
// instant from an absolute date range and a recurring weekly rule set.
package schedule

import (
	"fmt"
	"time"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// timeOfDayLayout is the 24-hour HH:MM form used for lexical comparison
const timeOfDayLayout = "15:04"

// Spec is the schedule attached to a content item or playlist
type Spec struct {
	// Enabled switches the schedule on; when off only the manual active flag applies
	Enabled bool `json:"enabled"`
	// StartDate is the first instant content may play (inclusive)
	StartDate *time.Time `json:"startDate,omitempty"`
	// EndDate is the last instant content may play (inclusive)
	EndDate *time.Time `json:"endDate,omitempty"`
	// Recurring restricts play to weekdays and times of day
	Recurring *Recurring `json:"recurring,omitempty"`
}

// Recurring is a weekly day/time rule set
type Recurring struct {
	Enabled bool `json:"enabled"`
	// DaysOfWeek holds 0-6 with 0 meaning Sunday
	DaysOfWeek []int `json:"daysOfWeek"`
	// TimeRanges are matched with OR semantics
	TimeRanges []TimeRange `json:"timeRanges"`
}

// TimeRange is an inclusive HH:MM window within one day
type TimeRange struct {
	Start string `json:"startTime"`
	End   string `json:"endTime"`
}

// CrossesMidnight reports whether the range wraps past 24:00. Such ranges
// are stored as given and never match.
func (r TimeRange) CrossesMidnight() bool {
	return r.Start > r.End
}

// contains compares HH:MM strings lexically, inclusive at both ends
func (r TimeRange) contains(hhmm string) bool {
	return r.Start <= hhmm && hhmm <= r.End
}

// Validate rejects malformed specs at write time. A disabled schedule is
// never rejected since it is not evaluated.
func (s Spec) Validate() error {
	const op = "Schedule.Validate"

	if !s.Enabled {
		return nil
	}
	if s.StartDate != nil && s.EndDate != nil && !s.EndDate.After(*s.StartDate) {
		return werrors.Validation(op, "end date must be after start date")
	}
	if s.Recurring == nil || !s.Recurring.Enabled {
		return nil
	}

	r := s.Recurring
	if len(r.DaysOfWeek) == 0 {
		return werrors.Validation(op, "recurring schedule requires at least one day of week")
	}
	if len(r.TimeRanges) == 0 {
		return werrors.Validation(op, "recurring schedule requires at least one time range")
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return werrors.Validation(op, fmt.Sprintf("day of week %d out of range 0-6", d))
		}
	}
	for _, tr := range r.TimeRanges {
		if !validTimeOfDay(tr.Start) {
			return werrors.Validation(op, fmt.Sprintf("invalid start time %q, want HH:MM", tr.Start))
		}
		if !validTimeOfDay(tr.End) {
			return werrors.Validation(op, fmt.Sprintf("invalid end time %q, want HH:MM", tr.End))
		}
	}
	return nil
}

// MidnightRanges returns the recurring ranges that wrap past midnight
func (s Spec) MidnightRanges() []TimeRange {
	if s.Recurring == nil {
		return nil
	}
	var out []TimeRange
	for _, tr := range s.Recurring.TimeRanges {
		if tr.CrossesMidnight() {
			out = append(out, tr)
		}
	}
	return out
}

// IsEligible reports whether content with this schedule and manual active
// flag may play at now. Day of week and time of day are read from now as
// given, without timezone conversion.
func IsEligible(s Spec, isActive bool, now time.Time) bool {
	if !s.Enabled {
		return isActive
	}
	if s.StartDate != nil && now.Before(*s.StartDate) {
		return false
	}
	if s.EndDate != nil && now.After(*s.EndDate) {
		return false
	}
	if s.Recurring != nil && s.Recurring.Enabled && !s.Recurring.matches(now) {
		return false
	}
	return isActive
}

func (r *Recurring) matches(now time.Time) bool {
	day := int(now.Weekday())
	dayOK := false
	for _, d := range r.DaysOfWeek {
		if d == day {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}

	hhmm := now.Format(timeOfDayLayout)
	for _, tr := range r.TimeRanges {
		if tr.contains(hhmm) {
			return true
		}
	}
	return false
}

func validTimeOfDay(s string) bool {
	if len(s) != len(timeOfDayLayout) {
		return false
	}
	_, err := time.Parse(timeOfDayLayout, s)
	return err == nil
}

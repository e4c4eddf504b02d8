package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
)

var dayNames = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// ScheduleFlags holds the raw schedule flag values of a command
type ScheduleFlags struct {
	Start      string
	End        string
	Days       []string
	TimeRanges []string
}

// Empty reports whether no schedule flag was given
func (f ScheduleFlags) Empty() bool {
	return f.Start == "" && f.End == "" && len(f.Days) == 0 && len(f.TimeRanges) == 0
}

// ParseSchedule builds a Schedule from flag values. No flags yields nil.
func ParseSchedule(f ScheduleFlags) (*v1alpha1.Schedule, error) {
	if f.Empty() {
		return nil, nil
	}

	s := &v1alpha1.Schedule{Enabled: true}
	if f.Start != "" {
		t, err := time.Parse(time.RFC3339, f.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid start time %q: %w", f.Start, err)
		}
		s.StartDate = &t
	}
	if f.End != "" {
		t, err := time.Parse(time.RFC3339, f.End)
		if err != nil {
			return nil, fmt.Errorf("invalid end time %q: %w", f.End, err)
		}
		s.EndDate = &t
	}

	if len(f.Days) == 0 && len(f.TimeRanges) == 0 {
		return s, nil
	}
	rec := &v1alpha1.RecurringSchedule{Enabled: true}
	for _, day := range f.Days {
		d, ok := dayNames[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			return nil, fmt.Errorf("invalid day of week: %s", day)
		}
		rec.DaysOfWeek = append(rec.DaysOfWeek, d)
	}
	for _, tr := range f.TimeRanges {
		start, end, ok := strings.Cut(tr, "-")
		if !ok || start == "" || end == "" {
			return nil, fmt.Errorf("invalid time range %q - use format HH:MM-HH:MM", tr)
		}
		rec.TimeRanges = append(rec.TimeRanges, v1alpha1.TimeRange{Start: start, End: end})
	}
	s.Recurring = rec
	return s, nil
}

// FormatSchedule formats a schedule for display
func FormatSchedule(s *v1alpha1.Schedule) string {
	if s == nil || !s.Enabled {
		return "Always"
	}

	var parts []string
	if s.StartDate != nil {
		parts = append(parts, "from "+s.StartDate.Format(time.RFC3339))
	}
	if s.EndDate != nil {
		parts = append(parts, "until "+s.EndDate.Format(time.RFC3339))
	}
	if r := s.Recurring; r != nil && r.Enabled {
		if len(r.DaysOfWeek) > 0 {
			days := make([]string, 0, len(r.DaysOfWeek))
			for _, d := range r.DaysOfWeek {
				days = append(days, time.Weekday(d).String()[:3])
			}
			parts = append(parts, "on "+strings.Join(days, ","))
		}
		if len(r.TimeRanges) > 0 {
			ranges := make([]string, 0, len(r.TimeRanges))
			for _, tr := range r.TimeRanges {
				ranges = append(ranges, tr.Start+"-"+tr.End)
			}
			parts = append(parts, "at "+strings.Join(ranges, ","))
		}
	}

	if len(parts) == 0 {
		return "Always"
	}
	return strings.Join(parts, " ")
}

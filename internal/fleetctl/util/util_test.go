package util

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piragazh/feasto-signage/api/types/v1alpha1"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	assert.Equal(t, "never", FormatAge(nil, now))
	assert.Equal(t, "just now", FormatAge(at(10*time.Second), now))
	assert.Equal(t, "5m ago", FormatAge(at(5*time.Minute), now))
	assert.Equal(t, "3h ago", FormatAge(at(3*time.Hour+10*time.Minute), now))
	assert.Equal(t, "2d ago", FormatAge(at(50*time.Hour), now))
}

func TestFormatParamsSorted(t *testing.T) {
	assert.Equal(t, "", FormatParams(nil))
	assert.Equal(t, "a=1,b=2,c=", FormatParams(map[string]string{"c": "", "b": "2", "a": "1"}))
}

func TestParseKeyValues(t *testing.T) {
	got, err := ParseKeyValues([]string{"delay=5", "url=http://x/?a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"delay": "5", "url": "http://x/?a=b"}, got)

	got, err = ParseKeyValues(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseKeyValues([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseKeyValues([]string{"=x"})
	assert.Error(t, err)
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule(ScheduleFlags{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = ParseSchedule(ScheduleFlags{
		Start:      "2024-03-01T00:00:00Z",
		Days:       []string{"Mon", "friday"},
		TimeRanges: []string{"09:00-11:00", "17:00-22:00"},
	})
	require.NoError(t, err)
	require.NotNil(t, s.StartDate)
	assert.Nil(t, s.EndDate)
	assert.True(t, s.Enabled)
	require.NotNil(t, s.Recurring)
	assert.Equal(t, []int{1, 5}, s.Recurring.DaysOfWeek)
	assert.Equal(t, []v1alpha1.TimeRange{{Start: "09:00", End: "11:00"}, {Start: "17:00", End: "22:00"}}, s.Recurring.TimeRanges)
	assert.Equal(t, "from 2024-03-01T00:00:00Z on Mon,Fri at 09:00-11:00,17:00-22:00", FormatSchedule(s))

	_, err = ParseSchedule(ScheduleFlags{Days: []string{"someday"}})
	assert.Error(t, err)
	_, err = ParseSchedule(ScheduleFlags{TimeRanges: []string{"09:00"}})
	assert.Error(t, err)
	_, err = ParseSchedule(ScheduleFlags{End: "tomorrow"})
	assert.Error(t, err)
}

func TestFormatScheduleAlways(t *testing.T) {
	assert.Equal(t, "Always", FormatSchedule(nil))
	assert.Equal(t, "Always", FormatSchedule(&v1alpha1.Schedule{Enabled: false}))
	assert.Equal(t, "Always", FormatSchedule(&v1alpha1.Schedule{Enabled: true}))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

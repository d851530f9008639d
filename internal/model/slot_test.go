package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	testCases := []struct {
		in      string
		minutes int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:05", 545, false},
		{"10:15", 615, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"10:60", 0, true},
		{"1015", 0, true},
		{"", 0, true},
		{"aa:bb", 0, true},
	}
	for _, tc := range testCases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.minutes, got, "input %q", tc.in)
	}
}

func TestDeriveStatus(t *testing.T) {
	slot := &InterviewSlot{MaxCapacity: 2, Status: StatusActive}
	assert.Equal(t, StatusActive, DeriveStatus(slot))

	slot.BookedStudents = []Booking{{StudentID: "a"}}
	assert.Equal(t, StatusActive, DeriveStatus(slot))

	slot.BookedStudents = append(slot.BookedStudents, Booking{StudentID: "b"})
	assert.Equal(t, StatusFull, DeriveStatus(slot))

	// Over capacity still reports Full, never panics.
	slot.BookedStudents = append(slot.BookedStudents, Booking{StudentID: "c"})
	assert.Equal(t, StatusFull, DeriveStatus(slot))
	assert.Equal(t, 0, slot.AvailableSpots())

	// Cancelled is sticky regardless of booking count.
	slot.Status = StatusCancelled
	assert.Equal(t, StatusCancelled, DeriveStatus(slot))
}

func TestWindowDefaultsDuration(t *testing.T) {
	slot := &InterviewSlot{StartTime: "10:00"}
	start, end, ok := slot.Window()
	require.True(t, ok)
	assert.Equal(t, 600, start)
	assert.Equal(t, 600+DefaultDurationMinutes, end)

	slot.DurationMinutes = 45
	_, end, ok = slot.Window()
	require.True(t, ok)
	assert.Equal(t, 645, end)

	slot.StartTime = "bogus"
	_, _, ok = slot.Window()
	assert.False(t, ok)
}

func TestConflictsWith(t *testing.T) {
	base := InterviewSlot{Date: "2026-03-01", StartTime: "10:00", DurationMinutes: 30}

	testCases := []struct {
		name  string
		other InterviewSlot
		want  bool
	}{
		{
			name:  "overlapping window on same date",
			other: InterviewSlot{Date: "2026-03-01", StartTime: "10:15", DurationMinutes: 30},
			want:  true,
		},
		{
			name:  "identical window",
			other: InterviewSlot{Date: "2026-03-01", StartTime: "10:00", DurationMinutes: 30},
			want:  true,
		},
		{
			name:  "containing window",
			other: InterviewSlot{Date: "2026-03-01", StartTime: "09:00", DurationMinutes: 180},
			want:  true,
		},
		{
			name:  "back to back does not conflict",
			other: InterviewSlot{Date: "2026-03-01", StartTime: "10:30", DurationMinutes: 30},
			want:  false,
		},
		{
			name:  "same time different date",
			other: InterviewSlot{Date: "2026-03-02", StartTime: "10:00", DurationMinutes: 30},
			want:  false,
		},
		{
			name:  "unparsable start time never conflicts",
			other: InterviewSlot{Date: "2026-03-01", StartTime: "later", DurationMinutes: 30},
			want:  false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.ConflictsWith(&tc.other))
			assert.Equal(t, tc.want, tc.other.ConflictsWith(&base))
		})
	}
}

func TestHasStudent(t *testing.T) {
	slot := &InterviewSlot{BookedStudents: []Booking{{StudentID: "stu-1"}}}
	assert.True(t, slot.HasStudent("stu-1"))
	assert.False(t, slot.HasStudent("stu-2"))
}

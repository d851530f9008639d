package model

import (
	"strconv"
	"strings"
	"time"
)

// Slot status values as persisted in the slots.status column.  Status is a
// cached derivation of booking count versus capacity and must never be set
// directly; use DeriveStatus after every mutation.  StatusCancelled is a
// reserved state: no operation currently transitions a slot into it, but a
// slot carrying it is preserved as-is.
const (
	StatusActive    = "Active"
	StatusFull      = "Full"
	StatusCancelled = "Cancelled"
)

// DefaultDurationMinutes is applied when a slot is created without an
// explicit duration.  The duration, not the end time, is authoritative for
// conflict detection; the two can disagree and the divergence is deliberate.
const DefaultDurationMinutes = 30

// DefaultMaxCapacity is applied when a slot is created without an explicit
// capacity.
const DefaultMaxCapacity = 1

// Booking is one student's claim on a seat within a slot's capacity.  It is
// an element of InterviewSlot.BookedStudents, ordered by BookedAt.
//
// Fields:
//  StudentID – stable identifier supplied by the identity provider.
//  BookedAt  – UTC timestamp recorded when the booking was accepted.
type Booking struct {
	StudentID string    `json:"studentId"` // slot_bookings.student_id
	BookedAt  time.Time `json:"bookedAt"`  // slot_bookings.booked_at
}

// InterviewSlot is a bookable interview time block offered by one company
// for one position.  It corresponds to a row in the `slots` table plus its
// child rows in `slot_bookings`, and is treated as a single document: loads
// return the whole slot, saves write the whole slot back.
//
// Fields:
//  ID              – uuid primary key.
//  Company         – offering company; compared case-insensitively for the
//                    one-booking-per-company rule.
//  Position        – role being interviewed for.
//  Location        – free-text venue.
//  Description     – optional free text.
//  Date            – time-zone-naive civil date, "YYYY-MM-DD".
//  StartTime       – wall-clock time of day, "HH:MM".
//  EndTime         – wall-clock time of day, "HH:MM"; informational only,
//                    the conflict window is Start + DurationMinutes.
//  DurationMinutes – length of the conflict window in minutes.
//  MaxCapacity     – maximum concurrent bookings, always >= 1.
//  BookedStudents  – current bookings, at most MaxCapacity entries, no
//                    duplicate student.
//  CreatedBy       – identifier of the creating administrator.
//  Status          – derived state, see DeriveStatus.
//  Version         – optimistic-lock counter guarding concurrent saves.
type InterviewSlot struct {
	ID              string    `json:"id"`                    // slots.id
	Company         string    `json:"company"`               // slots.company
	Position        string    `json:"position"`              // slots.position
	Location        string    `json:"location"`              // slots.location
	Description     string    `json:"description,omitempty"` // slots.description
	Date            string    `json:"date"`                  // slots.date (DATE)
	StartTime       string    `json:"startTime"`             // slots.start_time
	EndTime         string    `json:"endTime"`               // slots.end_time
	DurationMinutes int       `json:"duration"`              // slots.duration_minutes
	MaxCapacity     int       `json:"maxCapacity"`           // slots.max_capacity
	BookedStudents  []Booking `json:"bookedStudents"`        // slot_bookings rows
	CreatedBy       string    `json:"createdBy"`             // slots.created_by
	Status          string    `json:"status"`                // slots.status
	Version         uint32    `json:"-"`                     // slots.version
	CreatedAt       time.Time `json:"createdAt"`             // slots.created_at
	UpdatedAt       time.Time `json:"updatedAt"`             // slots.updated_at
}

// IsFull reports whether the slot has no remaining capacity.
func (s *InterviewSlot) IsFull() bool {
	return len(s.BookedStudents) >= s.MaxCapacity
}

// AvailableSpots returns the number of seats still open.  It never goes
// negative even if a slot is somehow over capacity.
func (s *InterviewSlot) AvailableSpots() int {
	if n := s.MaxCapacity - len(s.BookedStudents); n > 0 {
		return n
	}
	return 0
}

// HasStudent reports whether the student already holds a booking in this slot.
func (s *InterviewSlot) HasStudent(studentID string) bool {
	for i := range s.BookedStudents {
		if s.BookedStudents[i].StudentID == studentID {
			return true
		}
	}
	return false
}

// DeriveStatus recomputes the persisted status from the booking count and
// capacity.  A cancelled slot stays cancelled; otherwise the status is Full
// exactly when the booking count has reached capacity.
func DeriveStatus(s *InterviewSlot) string {
	if s.Status == StatusCancelled {
		return StatusCancelled
	}
	if s.IsFull() {
		return StatusFull
	}
	return StatusActive
}

// ParseClock converts an "HH:MM" wall-clock string into minutes since
// midnight.  It rejects anything outside 00:00–23:59.
func ParseClock(v string) (int, error) {
	h, m, ok := strings.Cut(v, ":")
	if !ok {
		return 0, &time.ParseError{Layout: "15:04", Value: v, Message: ": missing colon"}
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, &time.ParseError{Layout: "15:04", Value: v, Message: ": invalid hour"}
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, &time.ParseError{Layout: "15:04", Value: v, Message: ": invalid minute"}
	}
	return hh*60 + mm, nil
}

// Window returns the slot's half-open conflict interval [start, start+duration)
// in minutes since midnight.  A missing or non-positive duration falls back
// to DefaultDurationMinutes.  ok is false when the start time cannot be
// parsed, in which case the slot cannot participate in conflict checks.
func (s *InterviewSlot) Window() (start, end int, ok bool) {
	m, err := ParseClock(s.StartTime)
	if err != nil {
		return 0, 0, false
	}
	d := s.DurationMinutes
	if d <= 0 {
		d = DefaultDurationMinutes
	}
	return m, m + d, true
}

// ConflictsWith reports whether two slots on the same calendar date have
// overlapping conflict windows.  The test is half-open: back-to-back slots
// (one ending exactly when the other starts) do not conflict.
func (s *InterviewSlot) ConflictsWith(o *InterviewSlot) bool {
	if s.Date != o.Date {
		return false
	}
	aStart, aEnd, ok := s.Window()
	if !ok {
		return false
	}
	bStart, bEnd, ok := o.Window()
	if !ok {
		return false
	}
	return aStart < bEnd && bStart < aEnd
}

// Package queue defines the message payloads exchanged over the broker and
// the background consumer that records confirmed bookings.
package queue

// SlotBookedEvent is published when a booking is successfully committed.  It
// carries enough context for downstream consumers to log or notify without
// querying the primary database.
type SlotBookedEvent struct {
	SlotID    string `json:"slot_id"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	Location  string `json:"location"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	StudentID string `json:"student_id"`
	BookedAt  string `json:"booked_at"`
	SpotsLeft int    `json:"spots_left"`
}

// Package service contains the booking engine: the single authority that
// decides whether a booking or cancellation may proceed and applies the
// resulting mutation through the slot store.
package service

import "errors"

// Business-rule sentinels.  Every one of these is an expected, recoverable
// condition detected before any mutation is committed; handlers map them to
// specific HTTP responses.  Store and transport failures are anything that
// does not match one of these (or the repository sentinels) via errors.Is.

// ErrSlotFull is returned when the slot's capacity is already reached,
// either during validation or at commit time after losing the final seat to
// a concurrent booking.
var ErrSlotFull = errors.New("slot is already full")

// ErrDuplicateBooking is returned when the student already holds a booking
// in this exact slot.
var ErrDuplicateBooking = errors.New("student has already booked this slot")

// ErrQuotaExceeded is returned when the student already holds the maximum
// number of active bookings across all slots.
var ErrQuotaExceeded = errors.New("maximum number of booked slots reached")

// ErrTimeConflict is returned when the target slot overlaps an existing
// booking on the same calendar date.
var ErrTimeConflict = errors.New("student already has an interview scheduled at this time")

// ErrDuplicateCompany is returned when the student already holds a booking
// with the target slot's company.
var ErrDuplicateCompany = errors.New("student already has a booking with this company")

// ErrBookingNotFound is returned by cancellation when the student holds no
// booking in the slot.
var ErrBookingNotFound = errors.New("booking not found")

// ErrHasBookings is returned when slot deletion is refused because bookings
// still exist; callers must cancel them first.
var ErrHasBookings = errors.New("slot has existing bookings")

// ErrValidation wraps field-level failures on slot creation and update.
// The wrapped message is safe to show to callers.
var ErrValidation = errors.New("validation failed")

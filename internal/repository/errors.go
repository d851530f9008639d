// Package repository implements the Slot Store over MySQL and defines the
// sentinel errors shared with higher layers.  The booking service and the
// handlers compare against these values with errors.Is to distinguish
// store-level outcomes from business-rule failures.
package repository

import "errors"

// ErrSlotNotFound is returned when the referenced slot does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrSlotNotFound = errors.New("slot not found")

// ErrVersionConflict is returned by Save when the slot's version column no
// longer matches the version that was read, meaning a concurrent writer got
// there first.  The booking service reacts by re-reading the slot and
// re-running its validation before trying again.
var ErrVersionConflict = errors.New("slot version conflict")

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careerbridge/slot-booking/internal/model"
	"github.com/careerbridge/slot-booking/internal/repository"
)

// MaxActiveBookings is the global per-student quota: a student may hold at
// most this many bookings across all slots at any time.
const MaxActiveBookings = 2

// maxSaveAttempts bounds the read-validate-write retry cycle when a save
// loses the version race.  Each retry re-reads the slot and re-runs every
// precondition, so a seat taken in the meantime surfaces as ErrSlotFull
// rather than as a silent over-booking.
const maxSaveAttempts = 3

// SlotStore is the persistence contract the booking engine requires.  The
// MySQL implementation lives in the repository package; tests substitute an
// in-memory fake.  GetByID and Delete return repository.ErrSlotNotFound for
// missing slots, and Save must be a conditional full-document write that
// fails with repository.ErrVersionConflict instead of clobbering a
// concurrent update.
type SlotStore interface {
	GetByID(ctx context.Context, id string) (*model.InterviewSlot, error)
	FindByStudent(ctx context.Context, studentID string) ([]model.InterviewSlot, error)
	List(ctx context.Context, f repository.SlotFilter) ([]model.InterviewSlot, error)
	Create(ctx context.Context, s *model.InterviewSlot) error
	Save(ctx context.Context, s *model.InterviewSlot) error
	Delete(ctx context.Context, id string) error
}

// BookingService enforces every booking invariant: per-slot capacity,
// per-student quota, time-conflict and one-booking-per-company.  The student
// identity is always an explicit parameter; the engine reads no ambient
// session state.
//
// Only the per-slot capacity check is race-proof (via the store's
// conditional write).  The quota, conflict and company checks read other
// slots without locks, so two concurrent bookings on different slots can
// transiently exceed the quota by one.  That window is accepted: it is a
// soft over-booking, not data corruption, and self-corrects on the next
// read-validate cycle.
type BookingService struct {
	store    SlotStore
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewBookingService constructs a BookingService.  The logger may not be nil;
// pass zap.NewNop() when logging is unwanted.
func NewBookingService(store SlotStore, logger *zap.Logger) *BookingService {
	if store == nil || logger == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{
		store:    store,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateSlotInput carries the fields an administrator supplies when opening
// a new slot.  Date and times are validated as "YYYY-MM-DD" / "HH:MM".
// Duration and MaxCapacity are optional; zero values take the model defaults.
type CreateSlotInput struct {
	Company     string `json:"company" validate:"required"`
	Position    string `json:"position" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime     string `json:"endTime" validate:"required,datetime=15:04"`
	Duration    int    `json:"duration" validate:"omitempty,min=1"`
	MaxCapacity int    `json:"maxCapacity" validate:"omitempty,min=1"`
}

// UpdateSlotInput carries a partial slot update.  Nil fields are left
// unchanged.  Capacity and schedule stay mutable after creation, but
// capacity may never drop below the current number of bookings.
type UpdateSlotInput struct {
	Company     *string `json:"company" validate:"omitempty,min=1"`
	Position    *string `json:"position" validate:"omitempty,min=1"`
	Location    *string `json:"location" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime   *string `json:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime     *string `json:"endTime" validate:"omitempty,datetime=15:04"`
	Duration    *int    `json:"duration" validate:"omitempty,min=1"`
	MaxCapacity *int    `json:"maxCapacity" validate:"omitempty,min=1"`
}

// CreateSlot validates the input and stores a new slot with no bookings and
// status Active.  No overlap check against other slots is performed: slots
// from different companies may legitimately share a time range.
func (s *BookingService) CreateSlot(ctx context.Context, in CreateSlotInput, createdBy string) (*model.InterviewSlot, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	slot := &model.InterviewSlot{
		ID:              uuid.NewString(),
		Company:         strings.TrimSpace(in.Company),
		Position:        strings.TrimSpace(in.Position),
		Location:        strings.TrimSpace(in.Location),
		Description:     strings.TrimSpace(in.Description),
		Date:            in.Date,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationMinutes: in.Duration,
		MaxCapacity:     in.MaxCapacity,
		BookedStudents:  []model.Booking{},
		CreatedBy:       createdBy,
		Status:          model.StatusActive,
	}
	if slot.DurationMinutes <= 0 {
		slot.DurationMinutes = model.DefaultDurationMinutes
	}
	if slot.MaxCapacity <= 0 {
		slot.MaxCapacity = model.DefaultMaxCapacity
	}
	if err := s.store.Create(ctx, slot); err != nil {
		return nil, err
	}
	s.logger.Info("slot created",
		zap.String("slot_id", slot.ID),
		zap.String("company", slot.Company),
		zap.String("date", slot.Date),
		zap.Int("max_capacity", slot.MaxCapacity))
	return slot, nil
}

// GetSlot returns a single slot by id.
func (s *BookingService) GetSlot(ctx context.Context, slotID string) (*model.InterviewSlot, error) {
	return s.store.GetByID(ctx, slotID)
}

// ListSlots returns slots matching the filter ordered by (date, start time).
func (s *BookingService) ListSlots(ctx context.Context, f repository.SlotFilter) ([]model.InterviewSlot, error) {
	return s.store.List(ctx, f)
}

// ListStudentBookings returns every slot the student currently holds a
// booking in, ordered by (date, start time).
func (s *BookingService) ListStudentBookings(ctx context.Context, studentID string) ([]model.InterviewSlot, error) {
	return s.store.FindByStudent(ctx, studentID)
}

// BookSlot attempts to claim one seat in the slot for the student.  The
// preconditions run in a fixed order, each failing fast with its sentinel:
// slot exists, slot not full, no duplicate booking, quota not exceeded, no
// time conflict on the same date, no second booking with the same company.
// Only then is the booking appended, the status re-derived and the document
// saved conditionally.  Losing the version race restarts the whole cycle.
func (s *BookingService) BookSlot(ctx context.Context, slotID, studentID string) (*model.InterviewSlot, error) {
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		slot, err := s.store.GetByID(ctx, slotID)
		if err != nil {
			return nil, err
		}
		if slot.IsFull() {
			return nil, ErrSlotFull
		}
		if slot.HasStudent(studentID) {
			return nil, ErrDuplicateBooking
		}
		existing, err := s.store.FindByStudent(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if len(existing) >= MaxActiveBookings {
			return nil, ErrQuotaExceeded
		}
		for i := range existing {
			if slot.ConflictsWith(&existing[i]) {
				return nil, ErrTimeConflict
			}
		}
		for i := range existing {
			if strings.EqualFold(existing[i].Company, slot.Company) {
				return nil, ErrDuplicateCompany
			}
		}
		slot.BookedStudents = append(slot.BookedStudents, model.Booking{
			StudentID: studentID,
			BookedAt:  s.now().UTC(),
		})
		slot.Status = model.DeriveStatus(slot)
		if err := s.store.Save(ctx, slot); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		s.logger.Info("slot booked",
			zap.String("slot_id", slot.ID),
			zap.String("student_id", studentID),
			zap.Int("spots_left", slot.AvailableSpots()))
		return slot, nil
	}
	return nil, fmt.Errorf("book slot %s: %w", slotID, lastErr)
}

// CancelBooking removes the student's booking from the slot.  Cancellation
// is unconditional once the booking exists: no quota or conflict checks
// apply, and a slot that was Full drops back to Active.  The conditional
// save is still retried on version conflicts because removal is always
// valid against a fresher copy.
func (s *BookingService) CancelBooking(ctx context.Context, slotID, studentID string) error {
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		slot, err := s.store.GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		idx := -1
		for i := range slot.BookedStudents {
			if slot.BookedStudents[i].StudentID == studentID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrBookingNotFound
		}
		slot.BookedStudents = append(slot.BookedStudents[:idx], slot.BookedStudents[idx+1:]...)
		slot.Status = model.DeriveStatus(slot)
		if err := s.store.Save(ctx, slot); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}
		s.logger.Info("booking cancelled",
			zap.String("slot_id", slot.ID),
			zap.String("student_id", studentID))
		return nil
	}
	return fmt.Errorf("cancel booking %s: %w", slotID, lastErr)
}

// UpdateSlot applies a partial update to a slot's metadata, schedule or
// capacity.  Capacity may not drop below the current booking count; the
// status is re-derived so raising the capacity of a Full slot reopens it.
func (s *BookingService) UpdateSlot(ctx context.Context, slotID string, in UpdateSlotInput) (*model.InterviewSlot, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		slot, err := s.store.GetByID(ctx, slotID)
		if err != nil {
			return nil, err
		}
		if in.Company != nil {
			slot.Company = strings.TrimSpace(*in.Company)
		}
		if in.Position != nil {
			slot.Position = strings.TrimSpace(*in.Position)
		}
		if in.Location != nil {
			slot.Location = strings.TrimSpace(*in.Location)
		}
		if in.Description != nil {
			slot.Description = strings.TrimSpace(*in.Description)
		}
		if in.Date != nil {
			slot.Date = *in.Date
		}
		if in.StartTime != nil {
			slot.StartTime = *in.StartTime
		}
		if in.EndTime != nil {
			slot.EndTime = *in.EndTime
		}
		if in.Duration != nil {
			slot.DurationMinutes = *in.Duration
		}
		if in.MaxCapacity != nil {
			if *in.MaxCapacity < len(slot.BookedStudents) {
				return nil, fmt.Errorf("%w: maxCapacity cannot be lower than the current number of bookings (%d)",
					ErrValidation, len(slot.BookedStudents))
			}
			slot.MaxCapacity = *in.MaxCapacity
		}
		slot.Status = model.DeriveStatus(slot)
		if err := s.store.Save(ctx, slot); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return slot, nil
	}
	return nil, fmt.Errorf("update slot %s: %w", slotID, lastErr)
}

// DeleteSlot removes a slot that has no bookings.  Deleting a slot with any
// booking is refused with ErrHasBookings; callers must cancel them first.
func (s *BookingService) DeleteSlot(ctx context.Context, slotID string) error {
	slot, err := s.store.GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	if len(slot.BookedStudents) > 0 {
		return ErrHasBookings
	}
	if err := s.store.Delete(ctx, slotID); err != nil {
		return err
	}
	s.logger.Info("slot deleted", zap.String("slot_id", slotID))
	return nil
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/careerbridge/slot-booking/internal/model"
	"github.com/careerbridge/slot-booking/internal/queue"
	"github.com/careerbridge/slot-booking/internal/repository"
	"github.com/careerbridge/slot-booking/internal/service"
)

// EventPublisher sends a domain event to the broker.  It is injected so the
// handler can be tested without a running broker; a nil publisher disables
// event emission entirely.
type EventPublisher func(ctx context.Context, logger *zap.Logger, event queue.SlotBookedEvent) error

// BookingHandler exposes the student-facing booking operations.  All
// methods assume that JWT authentication and role validation has already
// been performed by middleware; the student identifier is taken from the
// verified token, never from the request body.
type BookingHandler struct {
	Svc     *service.BookingService
	Logger  *zap.Logger
	Publish EventPublisher
}

// NewBookingHandler constructs a BookingHandler.  Publish may be nil to
// disable event emission (useful in tests).
func NewBookingHandler(svc *service.BookingService, logger *zap.Logger, publish EventPublisher) *BookingHandler {
	if svc == nil || logger == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, Logger: logger, Publish: publish}
}

// Book handles POST /v1/slots/:id/book.  On success it responds 200 with
// the updated slot; every business-rule rejection maps to a specific status
// and message so the client can display it directly.
func (h *BookingHandler) Book(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID := c.Param("id")
	if slotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	slot, err := h.Svc.BookSlot(c.Request().Context(), slotID, studentID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		case errors.Is(err, service.ErrSlotFull):
			return c.JSON(http.StatusConflict, echo.Map{"error": "this slot is already full"})
		case errors.Is(err, service.ErrDuplicateBooking):
			return c.JSON(http.StatusConflict, echo.Map{"error": "you have already booked this slot"})
		case errors.Is(err, service.ErrQuotaExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "you have already booked the maximum of 2 interview slots"})
		case errors.Is(err, service.ErrTimeConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "you already have an interview scheduled at this time"})
		case errors.Is(err, service.ErrDuplicateCompany):
			return c.JSON(http.StatusConflict, echo.Map{"error": "you already have an interview slot booked with this company"})
		case errors.Is(err, repository.ErrVersionConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot was modified concurrently, please retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to book slot"})
	}
	h.publishBooked(slot, studentID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "slot booked successfully",
		"slot":    slot,
	})
}

// Cancel handles DELETE /v1/slots/:id/booking.  Cancellation is always
// allowed once the booking exists; a Full slot reopens automatically.
func (h *BookingHandler) Cancel(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID := c.Param("id")
	if slotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	if err := h.Svc.CancelBooking(c.Request().Context(), slotID, studentID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		case errors.Is(err, service.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled successfully"})
}

// MyBookings handles GET /v1/my-bookings.  It returns all slots containing
// the student, ordered by date and start time.  When no bookings exist an
// empty array is returned.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	studentID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slots, err := h.Svc.ListStudentBookings(c.Request().Context(), studentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": slots})
}

// publishBooked emits a SlotBookedEvent in the background.  Publishing is
// best-effort: the booking has already been committed and a broker failure
// must not affect the response.
func (h *BookingHandler) publishBooked(slot *model.InterviewSlot, studentID string) {
	if h.Publish == nil {
		return
	}
	ev := queue.SlotBookedEvent{
		SlotID:    slot.ID,
		Company:   slot.Company,
		Position:  slot.Position,
		Location:  slot.Location,
		Date:      slot.Date,
		StartTime: slot.StartTime,
		StudentID: studentID,
		SpotsLeft: slot.AvailableSpots(),
	}
	for i := range slot.BookedStudents {
		if slot.BookedStudents[i].StudentID == studentID {
			ev.BookedAt = slot.BookedStudents[i].BookedAt.Format(time.RFC3339)
			break
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Publish(ctx, h.Logger, ev)
	}()
}

package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/careerbridge/slot-booking/internal/repository"
	"github.com/careerbridge/slot-booking/internal/service"
)

// SlotHandler exposes the administrator slot lifecycle (create, update,
// delete) plus the public browse endpoints.  Capacity and schedule stay
// mutable after creation; deletion is refused while bookings exist.
type SlotHandler struct {
	Svc *service.BookingService
}

// NewSlotHandler constructs a SlotHandler and panics on a nil service.
func NewSlotHandler(svc *service.BookingService) *SlotHandler {
	if svc == nil {
		panic("nil service passed to NewSlotHandler")
	}
	return &SlotHandler{Svc: svc}
}

// CreateSlot handles POST /v1/slots.  The creating administrator is taken
// from the verified token and recorded as the slot owner.
func (h *SlotHandler) CreateSlot(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body service.CreateSlotInput
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	slot, err := h.Svc.CreateSlot(c.Request().Context(), body, adminID)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create slot"})
	}
	return c.JSON(http.StatusCreated, slot)
}

// UpdateSlot handles PATCH /v1/slots/:id.  Nil fields are left unchanged;
// lowering capacity below the current booking count is rejected.
func (h *SlotHandler) UpdateSlot(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID := c.Param("id")
	if slotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body service.UpdateSlotInput
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	slot, err := h.Svc.UpdateSlot(c.Request().Context(), slotID, body)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrVersionConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot was modified concurrently, please retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update slot"})
	}
	return c.JSON(http.StatusOK, slot)
}

// DeleteSlot handles DELETE /v1/slots/:id.  A slot with any booking cannot
// be deleted; all bookings must be cancelled first.
func (h *SlotHandler) DeleteSlot(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	slotID := c.Param("id")
	if slotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	if err := h.Svc.DeleteSlot(c.Request().Context(), slotID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		case errors.Is(err, service.ErrHasBookings):
			return c.JSON(http.StatusConflict, echo.Map{"error": "cannot delete slot with existing bookings, please cancel all bookings first"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete slot"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "slot deleted successfully"})
}

// ListSlots handles GET /v1/slots.  Supported query parameters: date
// ("YYYY-MM-DD", exact day), company (case-insensitive substring) and
// available=true to hide full slots.  Results are ordered by date and start
// time.
func (h *SlotHandler) ListSlots(c echo.Context) error {
	f := repository.SlotFilter{
		Date:          strings.TrimSpace(c.QueryParam("date")),
		Company:       strings.TrimSpace(c.QueryParam("company")),
		AvailableOnly: c.QueryParam("available") == "true",
	}
	slots, err := h.Svc.ListSlots(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load slots"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": slots})
}

// GetSlot handles GET /v1/slots/:id.
func (h *SlotHandler) GetSlot(c echo.Context) error {
	slotID := c.Param("id")
	if slotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	slot, err := h.Svc.GetSlot(c.Request().Context(), slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch slot"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": slot})
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/careerbridge/slot-booking/internal/handler"
	"github.com/careerbridge/slot-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check, used by
// load balancers and monitoring systems.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSlots wires the full slot API.
//
// Browse endpoints are public so students can inspect the schedule before
// authenticating; they sit behind the response cache when one is available.
// Booking endpoints require a STUDENT token (administrators may book too,
// e.g. to reserve a seat on a student's behalf), while the slot lifecycle
// is restricted to ADMIN tokens.  Identity always comes from the verified
// token, never from the request body.
func RegisterSlots(e *echo.Echo, slots *handler.SlotHandler, bookings *handler.BookingHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	// Public browse group.
	pub := e.Group("/v1")
	if cache != nil {
		pub.Use(cache)
	}
	pub.GET("/slots", slots.ListSlots)
	pub.GET("/slots/:id", slots.GetSlot)

	// Student booking group.
	student := e.Group("/v1")
	student.Use(middleware.JWTAuth(jwtSecret))
	student.Use(middleware.RequireRole("STUDENT", "ADMIN"))
	student.POST("/slots/:id/book", bookings.Book)
	student.DELETE("/slots/:id/booking", bookings.Cancel)
	student.GET("/my-bookings", bookings.MyBookings)

	// Administrator slot lifecycle group.
	admin := e.Group("/v1")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/slots", slots.CreateSlot)
	admin.PATCH("/slots/:id", slots.UpdateSlot)
	admin.DELETE("/slots/:id", slots.DeleteSlot)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RegisterStaff registers STAFF-scoped endpoints under /v1/staff.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, jwtSecret string) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff),
	)

	g.POST("/bookings/:id/transition", h.Transition)
	g.POST("/bookings/:id/payment", h.Payment)
	g.GET("/rooms/:id/bookings", h.RoomBookings)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RegisterBookings registers the signed-in booking endpoints under /v1.
// Ownership of a single booking is checked in the handler so staff can
// reach any booking through the same routes.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.POST("/bookings", h.Create, middleware.RequireRole(model.RoleGuest, model.RoleStaff))
	g.GET("/my-bookings", h.MyBookings, middleware.RequireRole(model.RoleGuest))
	g.GET("/bookings/:id", h.Get, middleware.RequireRole(model.RoleGuest, model.RoleStaff))
	g.POST("/bookings/:id/cancel", h.Cancel, middleware.RequireRole(model.RoleGuest, model.RoleStaff))
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// StaffHandler drives the front-desk side of the lifecycle.  Routes are
// mounted behind RequireRole(STAFF).
type StaffHandler struct {
	Svc *service.BookingService
	Log *logrus.Logger
}

func NewStaffHandler(svc *service.BookingService, log *logrus.Logger) *StaffHandler {
	return &StaffHandler{Svc: svc, Log: log}
}

type transitionReq struct {
	Status string `json:"status"`
}

type paymentReq struct {
	Method string `json:"method"`
}

// Transition moves a booking to the posted status.
func (h *StaffHandler) Transition(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req transitionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	target, err := booking.ParseStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Svc.Transition(ctx, id, target, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Payment records that the booking has been paid.
func (h *StaffHandler) Payment(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	method := booking.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	b, err := h.Svc.RecordPayment(ctx, id, method, middleware.Actor(c))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// RoomBookings is the calendar of one room.  Optional from/to query
// parameters (YYYY-MM-DD, hotel time) bound the window.
func (h *StaffHandler) RoomBookings(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	loc := h.Svc.Location()
	verr := booking.NewValidationError()

	parse := func(field string) time.Time {
		raw := strings.TrimSpace(c.QueryParam(field))
		if raw == "" {
			return time.Time{}
		}
		t, err := time.ParseInLocation(booking.DateLayout, raw, loc)
		if err != nil {
			verr.Add(field, "date must be YYYY-MM-DD")
		}
		return t
	}

	from, to := parse("from"), parse("to")
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		verr.Add("to", "must be after from")
	}
	if err := verr.Err(); err != nil {
		return respondError(c, h.Log, err)
	}

	items, err := h.Svc.ListBookingsByRoom(c.Request().Context(), id, from, to)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []booking.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

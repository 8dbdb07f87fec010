package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/cache"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

// BookingHandler serves quotes and the guest-facing booking endpoints.
// Idem may be nil, in which case Idempotency-Key headers are ignored.
type BookingHandler struct {
	Svc  *service.BookingService
	Idem *cache.Idempotency
	Log  *logrus.Logger
	Now  func() time.Time
}

func NewBookingHandler(svc *service.BookingService, idem *cache.Idempotency, log *logrus.Logger) *BookingHandler {
	return &BookingHandler{Svc: svc, Idem: idem, Log: log, Now: time.Now}
}

// ----- DTOs -----

type guestsReq struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type quoteReq struct {
	RoomID uint64 `json:"room_id"`
	intervalQuery
	Guests   guestsReq                `json:"guests"`
	Services []booking.ServiceRequest `json:"services"`
}

type createReq struct {
	quoteReq
	PaymentMethod string `json:"payment_method"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (r quoteReq) toService(svc *service.BookingService) (service.QuoteRequest, error) {
	if r.RoomID == 0 {
		verr := booking.NewValidationError()
		verr.Add("room_id", "room_id is required")
		return service.QuoteRequest{}, verr
	}

	iv, err := r.interval(svc)
	if err != nil {
		return service.QuoteRequest{}, err
	}

	return service.QuoteRequest{
		RoomID:   r.RoomID,
		Interval: iv,
		Services: r.Services,
		Guests:   booking.Guests{Adults: r.Guests.Adults, Children: r.Guests.Children},
	}, nil
}

// Quote prices a stay without booking it.
func (h *BookingHandler) Quote(c echo.Context) error {
	var req quoteReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	qr, err := req.toService(h.Svc)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	q, err := h.Svc.Quote(c.Request().Context(), qr)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Create books a room for the caller.  A repeated Idempotency-Key from
// the same user replays the first response instead of booking again;
// reusing the key for a different request is rejected with 422.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	qr, err := req.toService(h.Svc)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
	scope := "user:" + strconv.FormatUint(uid, 10)
	owned := false

	var fingerprint string

	if key != "" && h.Idem != nil {
		payload, err := json.Marshal(req)
		if err != nil {
			return respondError(c, h.Log, err)
		}
		fingerprint = cache.Fingerprint(payload)

		prev, err := h.Idem.Reserve(ctx, scope, key, fingerprint)
		switch {
		case errors.Is(err, cache.ErrInProgress):
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		case errors.Is(err, cache.ErrKeyReused):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
		case err != nil:
			h.Log.WithError(err).Warn("idempotency store unavailable")
		case prev != nil:
			c.Response().Header().Set(headerReplayed, "true")
			return c.JSONBlob(prev.Status, prev.Body)
		default:
			owned = true
		}
	}

	b, err := h.Svc.CreateBooking(ctx, service.CreateRequest{
		QuoteRequest: qr,
		UserID:       uid,
		Payment:      booking.Payment{Method: booking.PaymentMethod(strings.TrimSpace(req.PaymentMethod))},
		Actor:        middleware.Actor(c),
	})
	if err != nil {
		if owned {
			if rerr := h.Idem.Release(ctx, scope, key); rerr != nil {
				h.Log.WithError(rerr).Warn("release idempotency key")
			}
		}
		return respondError(c, h.Log, err)
	}

	if owned {
		body, err := json.Marshal(b)
		if err == nil {
			err = h.Idem.Complete(ctx, scope, key, cache.Response{Status: http.StatusCreated, Body: body, Fingerprint: fingerprint})
		}
		if err != nil {
			h.Log.WithError(err).WithField("booking_id", b.ID).Warn("store idempotent response")
		}
	}

	return c.JSON(http.StatusCreated, b)
}

// MyBookings lists the caller's bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	items, err := h.Svc.ListBookingsByUser(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []booking.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one booking to its owner or to staff.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.visible(c)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel applies the cancellation policy and reports the fee and refund.
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.visible(c)
	if err != nil || b == nil {
		return err
	}

	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Cancel(ctx, b.ID, strings.TrimSpace(req.Reason), middleware.Actor(c), h.Now())
	if err != nil {
		return respondError(c, h.Log, err)
	}

	updated, err := h.Svc.GetBooking(ctx, b.ID)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"booking":      updated,
		"cancellation": res,
	})
}

// visible loads the booking named by :id and checks the caller may see
// it.  A nil booking with a nil error means a response was already
// written.
func (h *BookingHandler) visible(c echo.Context) (*booking.Booking, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, badRequest(c, "invalid id")
	}

	b, err := h.Svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return nil, respondError(c, h.Log, err)
	}

	actor := middleware.Actor(c)
	if !actor.IsStaff() && b.UserID != actor.UserID {
		return nil, c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	return b, nil
}

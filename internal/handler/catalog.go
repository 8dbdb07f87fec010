package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

// CatalogHandler serves the public room and service catalog plus
// availability lookups.  None of its routes require authentication.
type CatalogHandler struct {
	Svc *service.BookingService
	Log *logrus.Logger
}

func NewCatalogHandler(svc *service.BookingService, log *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{Svc: svc, Log: log}
}

// intervalQuery mirrors the date/time fields accepted by every endpoint
// that takes a stay interval.  Times are optional.
type intervalQuery struct {
	CheckInDate  string `json:"check_in_date" query:"check_in_date"`
	CheckInTime  string `json:"check_in_time" query:"check_in_time"`
	CheckOutDate string `json:"check_out_date" query:"check_out_date"`
	CheckOutTime string `json:"check_out_time" query:"check_out_time"`
}

func (q intervalQuery) interval(svc *service.BookingService) (booking.Interval, error) {
	return booking.ParseInterval(q.CheckInDate, q.CheckInTime, q.CheckOutDate, q.CheckOutTime, svc.Location())
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// ListRooms returns every room.  Response JSON contains an "items" array.
func (h *CatalogHandler) ListRooms(c echo.Context) error {
	rooms, err := h.Svc.Rooms(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms})
}

func (h *CatalogHandler) GetRoom(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	room, err := h.Svc.Room(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, room)
}

func (h *CatalogHandler) ListServices(c echo.Context) error {
	services, err := h.Svc.Services(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": services})
}

// Availability answers GET /v1/rooms/:id/availability?check_in_date=...
func (h *CatalogHandler) Availability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var q intervalQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return badRequest(c, "invalid query")
	}

	iv, err := q.interval(h.Svc)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	avail, err := h.Svc.CheckAvailability(c.Request().Context(), id, iv)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	return c.JSON(http.StatusOK, avail)
}

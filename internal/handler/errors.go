package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/booking"
)

// respondError maps booking errors onto HTTP status codes.  Anything
// unrecognised is logged and reported as a 500 without detail.
func respondError(c echo.Context, log *logrus.Logger, err error) error {
	if verr := booking.AsValidationError(err); verr != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields()})
	}
	if cerr := booking.AsConflictError(err); cerr != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "room unavailable", "conflicts": cerr.BookingIDs})
	}

	switch {
	case errors.Is(err, booking.ErrQuantityExceeded):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, booking.ErrConcurrentUpdate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking was modified, retry"})
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrCancellationNotAllowed),
		errors.Is(err, booking.ErrAlreadyFinalized):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	}

	log.WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).WithError(err).Error("request failed")

	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/harborline/ferry-reservation/internal/repository"
	"github.com/harborline/ferry-reservation/internal/service"
)

// parseID parses a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// writeError maps service and repository errors onto HTTP responses.
// Every handler funnels its non-nil errors through here so one error
// always means one status code and one machine-readable code, no
// matter which endpoint surfaced it.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": err.Error()})
	case errors.Is(err, repository.ErrInsufficientCapacity):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient_capacity", "message": err.Error()})
	case errors.Is(err, repository.ErrReservationExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation_expired", "message": "the hold has expired"})
	case errors.Is(err, repository.ErrAlreadyClaimed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already_claimed", "message": "the hold was already converted or closed"})
	case errors.Is(err, repository.ErrScheduleNotFound),
		errors.Is(err, repository.ErrClassNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrTicketNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrCapacityNotFound),
		errors.Is(err, repository.ErrReferenceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": err.Error()})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal server error"})
	}
}

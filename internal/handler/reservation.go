package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/service"
)

// ReservationHandler exposes the hold lifecycle: open, inspect,
// cancel. Holds are anonymous; the session token returned from Open
// is the sole credential for follow-up calls.
type ReservationHandler struct {
	Reservations *service.ReservationService
}

func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	if reservations == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: reservations}
}

// Open handles POST /v1/schedules/:id/reservations. The body carries
// per-class quantities; capacity is debited atomically before the
// token is handed out, so a 201 means the units are held.
func (h *ReservationHandler) Open(c echo.Context) error {
	scheduleID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "invalid schedule id"})
	}

	var body struct {
		Items []struct {
			ClassID  uint64 `json:"class_id"`
			Quantity uint32 `json:"quantity"`
		} `json:"items"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "invalid request body"})
	}
	items := make([]model.ReservationItem, 0, len(body.Items))
	for _, it := range body.Items {
		items = append(items, model.ReservationItem{ClassID: it.ClassID, Quantity: it.Quantity})
	}

	res, err := h.Reservations.Open(c.Request().Context(), scheduleID, items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, reservationJSON(res, time.Now().UTC()))
}

// Get handles GET /v1/reservations/:token.
func (h *ReservationHandler) Get(c echo.Context) error {
	res, err := h.Reservations.Get(c.Request().Context(), c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, reservationJSON(res, time.Now().UTC()))
}

// Cancel handles DELETE /v1/reservations/:token. Cancelling an ACTIVE
// hold releases its capacity immediately instead of waiting for the
// reaper.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	if err := h.Reservations.Cancel(c.Request().Context(), c.Param("token")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.ReservationStatusCancelled})
}

// reservationJSON renders the externally visible view of a hold. The
// status reported is the effective one: an expired-but-unswept hold
// already reads EXPIRED.
func reservationJSON(res *model.Reservation, now time.Time) echo.Map {
	items := make([]echo.Map, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, echo.Map{"class_id": it.ClassID, "quantity": it.Quantity})
	}
	return echo.Map{
		"session_token": res.SessionToken,
		"schedule_id":   res.ScheduleID,
		"status":        res.EffectiveStatus(now),
		"expires_at":    res.ExpiresAt,
		"items":         items,
	}
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/harborline/ferry-reservation/internal/repository"
)

// ScheduleHandler serves read-only sailing data: the schedule itself
// and the per-class availability snapshot. Availability is a snapshot
// with no reservation implied; the hold path re-checks the ledger
// authoritatively.
type ScheduleHandler struct {
	Schedules repository.ScheduleStore
	Ledger    repository.CapacityLedger
}

func NewScheduleHandler(schedules repository.ScheduleStore, ledger repository.CapacityLedger) *ScheduleHandler {
	if schedules == nil || ledger == nil {
		panic("nil dependency passed to NewScheduleHandler")
	}
	return &ScheduleHandler{Schedules: schedules, Ledger: ledger}
}

// Availability handles GET /v1/schedules/:id/availability.
func (h *ScheduleHandler) Availability(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "invalid schedule id"})
	}
	ctx := c.Request().Context()

	sched, err := h.Schedules.ByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	rows, err := h.Ledger.BySchedule(ctx, id)
	if err != nil {
		return writeError(c, err)
	}

	classes := make([]echo.Map, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, echo.Map{
			"class_id":  r.ClassID,
			"total":     r.Total,
			"available": r.Available,
		})
	}
	out := echo.Map{
		"schedule_id": sched.ID,
		"departs_at":  sched.DepartsAt,
		"arrives_at":  sched.ArrivesAt,
		"status":      sched.Status,
		"classes":     classes,
	}
	h.describeSailing(c, sched.ShipID, sched.RouteID, out)
	return c.JSON(http.StatusOK, out)
}

// describeSailing attaches ship and route details to a response.
// Reference-data gaps degrade the description instead of failing the
// availability read; the counts are the payload that matters.
func (h *ScheduleHandler) describeSailing(c echo.Context, shipID, routeID uint64, out echo.Map) {
	ctx := c.Request().Context()
	if ship, err := h.Schedules.ShipByID(ctx, shipID); err == nil {
		out["ship"] = echo.Map{"code": ship.Code, "name": ship.Name}
	}
	route, err := h.Schedules.RouteByID(ctx, routeID)
	if err != nil {
		return
	}
	desc := echo.Map{"duration_minutes": route.DurationMinutes}
	if origin, err := h.Schedules.HarborByID(ctx, route.OriginHarborID); err == nil {
		desc["origin"] = echo.Map{"name": origin.Name, "city": origin.City}
	}
	if dest, err := h.Schedules.HarborByID(ctx, route.DestinationHarborID); err == nil {
		desc["destination"] = echo.Map{"name": dest.Name, "city": dest.City}
	}
	out["route"] = desc
}

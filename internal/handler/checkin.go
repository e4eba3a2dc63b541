package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/harborline/ferry-reservation/internal/service"
)

// CheckInHandler exposes boarding check-in to authenticated staff
// devices. Routes using it sit behind StaffAuth plus RequireRole.
type CheckInHandler struct {
	CheckIns *service.CheckInService
}

func NewCheckInHandler(checkIns *service.CheckInService) *CheckInHandler {
	if checkIns == nil {
		panic("nil service passed to NewCheckInHandler")
	}
	return &CheckInHandler{CheckIns: checkIns}
}

// CheckIn handles POST /v1/tickets/:id/check-in. A repeat scan of the
// same ticket is reported as already_checked_in with a 200, so gate
// devices that retry on flaky links never see a spurious failure.
func (h *CheckInHandler) CheckIn(c echo.Context) error {
	ticketID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "invalid ticket id"})
	}

	result, err := h.CheckIns.CheckIn(c.Request().Context(), ticketID)
	if err != nil {
		return writeError(c, err)
	}
	switch result {
	case service.CheckInNotPaid:
		return c.JSON(http.StatusConflict, echo.Map{"error": "not_paid", "message": "the owning booking is not paid"})
	default:
		return c.JSON(http.StatusOK, echo.Map{"result": string(result)})
	}
}

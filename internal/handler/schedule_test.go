package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/repository"
)

func newScheduleHandler(t *testing.T) *ScheduleHandler {
	t.Helper()
	schedules := repository.NewMemoryScheduleStore()
	schedules.PutHarbor(&model.Harbor{ID: 1, Name: "Merak", City: "Cilegon"})
	schedules.PutHarbor(&model.Harbor{ID: 2, Name: "Bakauheni", City: "Lampung"})
	schedules.PutRoute(&model.Route{ID: 1, OriginHarborID: 1, DestinationHarborID: 2, DurationMinutes: 120})
	schedules.PutShip(&model.Ship{ID: 1, Code: "HL-01", Name: "Harborline One"})
	schedules.Put(&model.Schedule{
		ID:        1,
		ShipID:    1,
		RouteID:   1,
		DepartsAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		ArrivesAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Status:    model.ScheduleStatusScheduled,
	})

	ledger := repository.NewMemoryLedger()
	ledger.SetCapacity(1, 10, 200)
	ledger.SetCapacity(1, 20, 30)
	return NewScheduleHandler(schedules, ledger)
}

func TestAvailabilityEndpoint(t *testing.T) {
	h := newScheduleHandler(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/schedules/:id/availability")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.Availability(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ScheduleID uint64 `json:"schedule_id"`
		Status     string `json:"status"`
		Classes    []struct {
			ClassID   uint64 `json:"class_id"`
			Total     uint32 `json:"total"`
			Available uint32 `json:"available"`
		} `json:"classes"`
		Ship struct {
			Code string `json:"code"`
		} `json:"ship"`
		Route struct {
			DurationMinutes uint32 `json:"duration_minutes"`
			Origin          struct {
				Name string `json:"name"`
			} `json:"origin"`
		} `json:"route"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(1), body.ScheduleID)
	assert.Equal(t, model.ScheduleStatusScheduled, body.Status)
	assert.Len(t, body.Classes, 2)
	assert.Equal(t, "HL-01", body.Ship.Code)
	assert.Equal(t, uint32(120), body.Route.DurationMinutes)
	assert.Equal(t, "Merak", body.Route.Origin.Name)
}

func TestAvailabilityUnknownSchedule(t *testing.T) {
	h := newScheduleHandler(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/schedules/:id/availability")
	c.SetParamNames("id")
	c.SetParamValues("42")

	require.NoError(t, h.Availability(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailabilityBadID(t *testing.T) {
	h := newScheduleHandler(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/schedules/:id/availability")
	c.SetParamNames("id")
	c.SetParamValues("zero")

	require.NoError(t, h.Availability(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/repository"
)

func newCheckInFixture(t *testing.T, bookingStatus string) (*CheckInService, uint64) {
	t.Helper()
	bookings := repository.NewMemoryBookingStore()
	schedules := repository.NewMemoryScheduleStore()
	schedules.Put(&model.Schedule{ID: 1, Status: model.ScheduleStatusScheduled})
	schedules.Put(&model.Schedule{ID: 2, Status: model.ScheduleStatusCancelled})

	b := &model.Booking{
		OrderID:    "ord-checkin",
		ScheduleID: 1,
		Status:     bookingStatus,
		Tickets: []model.Ticket{
			{ClassID: 10, Kind: model.TicketKindPassenger, Status: model.TicketStatusBooked},
		},
	}
	require.NoError(t, bookings.Create(context.Background(), b))
	return NewCheckInService(bookings, schedules), b.Tickets[0].ID
}

func TestCheckInPaidTicket(t *testing.T) {
	svc, ticketID := newCheckInFixture(t, model.BookingStatusPaid)

	result, err := svc.CheckIn(context.Background(), ticketID)
	require.NoError(t, err)
	assert.Equal(t, CheckInOK, result)
}

func TestCheckInRepeatScanIsIdempotent(t *testing.T) {
	svc, ticketID := newCheckInFixture(t, model.BookingStatusPaid)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, ticketID)
	require.NoError(t, err)

	result, err := svc.CheckIn(ctx, ticketID)
	require.NoError(t, err)
	assert.Equal(t, CheckInDuplicate, result)
}

func TestCheckInUnpaidBooking(t *testing.T) {
	svc, ticketID := newCheckInFixture(t, model.BookingStatusPendingPayment)

	result, err := svc.CheckIn(context.Background(), ticketID)
	require.NoError(t, err)
	assert.Equal(t, CheckInNotPaid, result)
}

func TestCheckInFailedBooking(t *testing.T) {
	svc, ticketID := newCheckInFixture(t, model.BookingStatusFailed)

	result, err := svc.CheckIn(context.Background(), ticketID)
	require.NoError(t, err)
	assert.Equal(t, CheckInNotPaid, result)
}

func TestCheckInCancelledSailingRejected(t *testing.T) {
	bookings := repository.NewMemoryBookingStore()
	schedules := repository.NewMemoryScheduleStore()
	schedules.Put(&model.Schedule{ID: 2, Status: model.ScheduleStatusCancelled})

	b := &model.Booking{
		OrderID:    "ord-cancelled",
		ScheduleID: 2,
		Status:     model.BookingStatusPaid,
		Tickets:    []model.Ticket{{ClassID: 10, Kind: model.TicketKindPassenger, Status: model.TicketStatusBooked}},
	}
	require.NoError(t, bookings.Create(context.Background(), b))
	svc := NewCheckInService(bookings, schedules)

	_, err := svc.CheckIn(context.Background(), b.Tickets[0].ID)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCheckInUnknownTicket(t *testing.T) {
	svc, _ := newCheckInFixture(t, model.BookingStatusPaid)

	_, err := svc.CheckIn(context.Background(), 9999)
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
}

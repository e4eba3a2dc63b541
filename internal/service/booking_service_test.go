package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/repository"
)

// deadlineRecorder captures scheduled payment deadlines.
type deadlineRecorder struct {
	bookingIDs []uint64
	at         []time.Time
}

func (d *deadlineRecorder) ScheduleDeadline(_ context.Context, bookingID uint64, at time.Time) error {
	d.bookingIDs = append(d.bookingIDs, bookingID)
	d.at = append(d.at, at)
	return nil
}

type bookingFixture struct {
	res       *repository.MemoryReservationStore
	bookings  *repository.MemoryBookingStore
	classes   *repository.MemoryFareClassStore
	deadlines *deadlineRecorder
	svc       *BookingService
	now       time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		res:       repository.NewMemoryReservationStore(),
		bookings:  repository.NewMemoryBookingStore(),
		classes:   repository.NewMemoryFareClassStore(),
		deadlines: &deadlineRecorder{},
		now:       time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	f.classes.Put(&model.FareClass{ID: 10, Code: "ECO", Kind: model.ClassKindPassenger, PriceCents: 1500})
	f.classes.Put(&model.FareClass{ID: 20, Code: "CAR", Kind: model.ClassKindVehicle, PriceCents: 8000})
	f.svc = NewBookingService(f.res, f.bookings, f.classes, f.deadlines, 30*time.Minute)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *bookingFixture) seedHold(t *testing.T, items ...model.ReservationItem) *model.Reservation {
	t.Helper()
	token, err := repository.NewSessionToken()
	require.NoError(t, err)
	res := &model.Reservation{
		SessionToken: token,
		ScheduleID:   1,
		Status:       model.ReservationStatusActive,
		ExpiresAt:    f.now.Add(10 * time.Minute),
		Items:        items,
	}
	require.NoError(t, f.res.Create(context.Background(), res))
	return res
}

func validCustomer() CustomerInfo {
	return CustomerInfo{Name: "Mara Lindqvist", Email: "mara@example.com", Phone: "+4670000000"}
}

func TestClaimCreatesBookingAndTickets(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	res := f.seedHold(t,
		model.ReservationItem{ClassID: 10, Quantity: 2},
		model.ReservationItem{ClassID: 20, Quantity: 1},
	)

	booking, err := f.svc.Claim(ctx, res.SessionToken, validCustomer(), []TicketEntry{
		{ClassID: 10, PassengerName: "Mara Lindqvist", IdentityNo: "A100"},
		{ClassID: 10, PassengerName: "Nils Lindqvist", IdentityNo: "A101"},
		{ClassID: 20, PlateNo: "ABC123"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, booking.OrderID)
	assert.Equal(t, model.BookingStatusPendingPayment, booking.Status)
	assert.Equal(t, f.now.Add(30*time.Minute), booking.PaymentDeadline)
	assert.Len(t, booking.Tickets, 3)
	assert.Equal(t, uint32(1500+1500+8000), booking.TotalCents())

	// Prices are the fixed class price at claim time.
	for _, ticket := range booking.Tickets {
		if ticket.Kind == model.TicketKindVehicle {
			assert.Equal(t, uint32(8000), ticket.PriceCents)
			assert.Equal(t, "ABC123", ticket.PlateNo)
		} else {
			assert.Equal(t, uint32(1500), ticket.PriceCents)
		}
	}

	// The hold is consumed and the deadline task scheduled.
	got, err := f.res.ByToken(ctx, res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusClaimed, got.Status)
	require.Len(t, f.deadlines.bookingIDs, 1)
	assert.Equal(t, booking.ID, f.deadlines.bookingIDs[0])
	assert.Equal(t, booking.PaymentDeadline, f.deadlines.at[0])
}

func TestClaimExpiredHold(t *testing.T) {
	f := newBookingFixture(t)
	res := f.seedHold(t, model.ReservationItem{ClassID: 10, Quantity: 1})

	f.now = f.now.Add(11 * time.Minute)
	_, err := f.svc.Claim(context.Background(), res.SessionToken, validCustomer(), []TicketEntry{
		{ClassID: 10, PassengerName: "Mara", IdentityNo: "A100"},
	})
	assert.ErrorIs(t, err, repository.ErrReservationExpired)
}

func TestClaimTwiceLosesSecond(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	res := f.seedHold(t, model.ReservationItem{ClassID: 10, Quantity: 1})
	entries := []TicketEntry{{ClassID: 10, PassengerName: "Mara", IdentityNo: "A100"}}

	_, err := f.svc.Claim(ctx, res.SessionToken, validCustomer(), entries)
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, res.SessionToken, validCustomer(), entries)
	assert.ErrorIs(t, err, repository.ErrAlreadyClaimed)
}

func TestClaimEntryCountMustMatchHold(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	res := f.seedHold(t, model.ReservationItem{ClassID: 10, Quantity: 2})

	// One entry short.
	_, err := f.svc.Claim(ctx, res.SessionToken, validCustomer(), []TicketEntry{
		{ClassID: 10, PassengerName: "Mara", IdentityNo: "A100"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// Wrong class.
	_, err = f.svc.Claim(ctx, res.SessionToken, validCustomer(), []TicketEntry{
		{ClassID: 10, PassengerName: "Mara", IdentityNo: "A100"},
		{ClassID: 20, PlateNo: "ABC123"},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// Failed validation must not consume the hold.
	got, err := f.res.ByToken(ctx, res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusActive, got.Status)
}

func TestClaimDetailFieldsPerKind(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	res := f.seedHold(t, model.ReservationItem{ClassID: 10, Quantity: 1})
	_, err := f.svc.Claim(ctx, res.SessionToken, validCustomer(), []TicketEntry{{ClassID: 10}})
	assert.ErrorIs(t, err, ErrValidation)

	res = f.seedHold(t, model.ReservationItem{ClassID: 20, Quantity: 1})
	_, err = f.svc.Claim(ctx, res.SessionToken, validCustomer(), []TicketEntry{{ClassID: 20}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClaimRequiresContact(t *testing.T) {
	f := newBookingFixture(t)
	res := f.seedHold(t, model.ReservationItem{ClassID: 10, Quantity: 1})

	_, err := f.svc.Claim(context.Background(), res.SessionToken, CustomerInfo{Name: "Mara"}, []TicketEntry{
		{ClassID: 10, PassengerName: "Mara", IdentityNo: "A100"},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClaimUnknownToken(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.svc.Claim(context.Background(), "no-such-token", validCustomer(), nil)
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/ferry-reservation/internal/gateway"
	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/queue"
	"github.com/harborline/ferry-reservation/internal/repository"
)

type paymentFixture struct {
	bookings  *repository.MemoryBookingStore
	payments  *repository.MemoryPaymentStore
	ledger    *repository.MemoryLedger
	gateways  *gateway.Registry
	published []queue.BookingPaidEvent
	svc       *PaymentService
	now       time.Time
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		bookings: repository.NewMemoryBookingStore(),
		payments: repository.NewMemoryPaymentStore(),
		ledger:   repository.NewMemoryLedger(),
		gateways: gateway.NewRegistry(),
		now:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	f.ledger.SetCapacity(1, 10, 20)
	f.ledger.SetCapacity(1, 20, 5)
	f.gateways.Register(gateway.NewMockChannel("test-secret"))
	f.svc = NewPaymentService(f.bookings, f.payments, f.ledger, f.gateways,
		func(_ context.Context, ev queue.BookingPaidEvent) error {
			f.published = append(f.published, ev)
			return nil
		})
	f.svc.now = func() time.Time { return f.now }
	return f
}

// seedBooking creates a pending booking whose tickets came out of a
// hold that already debited the ledger.
func (f *paymentFixture) seedBooking(t *testing.T) *model.Booking {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.ledger.Reserve(ctx, 1, 10, 2))
	require.NoError(t, f.ledger.Reserve(ctx, 1, 20, 1))
	b := &model.Booking{
		OrderID:         "ord-" + time.Now().Format("150405.000000000"),
		ScheduleID:      1,
		ContactName:     "Mara Lindqvist",
		ContactEmail:    "mara@example.com",
		Status:          model.BookingStatusPendingPayment,
		PaymentDeadline: f.now.Add(30 * time.Minute),
		Tickets: []model.Ticket{
			{ClassID: 10, Kind: model.TicketKindPassenger, PriceCents: 1500, Status: model.TicketStatusBooked},
			{ClassID: 10, Kind: model.TicketKindPassenger, PriceCents: 1500, Status: model.TicketStatusBooked},
			{ClassID: 20, Kind: model.TicketKindVehicle, PriceCents: 8000, Status: model.TicketStatusBooked},
		},
	}
	require.NoError(t, f.bookings.Create(ctx, b))
	return b
}

func (f *paymentFixture) available(t *testing.T, classID uint64) uint32 {
	t.Helper()
	avail, err := f.ledger.Available(context.Background(), 1, classID)
	require.NoError(t, err)
	return avail
}

func TestInitiateOpensPendingTransaction(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)

	txn, err := f.svc.Initiate(context.Background(), b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, txn.Status)
	assert.Equal(t, uint32(11000), txn.AmountCents)
	assert.NotEmpty(t, txn.Reference)
	assert.NotEmpty(t, txn.PayCode)
}

func TestInitiateSameChannelReturnsExistingAttempt(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	first, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	second, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	assert.Equal(t, first.Reference, second.Reference)
}

func TestInitiateNonPendingBookingRejected(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()
	require.NoError(t, f.bookings.MarkPaid(ctx, b.ID))

	_, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestInitiateUnknownChannel(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)

	_, err := f.svc.Initiate(context.Background(), b.OrderID, "telepathy", false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReconcilePaidSettlesBooking(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	txn, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)

	result, err := f.svc.Reconcile(ctx, &gateway.CallbackNotice{
		Reference:   txn.Reference,
		Status:      gateway.CallbackStatusPaid,
		AmountCents: txn.AmountCents,
	})
	require.NoError(t, err)
	assert.Equal(t, ReconcileApplied, result)

	got, err := f.bookings.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPaid, got.Status)

	// Payment success never credits the ledger.
	assert.Equal(t, uint32(18), f.available(t, 10))
	assert.Equal(t, uint32(4), f.available(t, 20))

	require.Len(t, f.published, 1)
	assert.Equal(t, b.OrderID, f.published[0].OrderID)
	assert.Equal(t, txn.Reference, f.published[0].Reference)
	assert.Equal(t, 3, f.published[0].TicketCount)
}

func TestReconcileDuplicatePaidCallbackIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	txn, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	notice := &gateway.CallbackNotice{
		Reference:   txn.Reference,
		Status:      gateway.CallbackStatusPaid,
		AmountCents: txn.AmountCents,
	}

	for i := 0; i < 3; i++ {
		result, err := f.svc.Reconcile(ctx, notice)
		require.NoError(t, err)
		assert.Equal(t, ReconcileApplied, result)
	}

	// One settlement event, not three.
	assert.Len(t, f.published, 1)
	assert.Equal(t, uint32(18), f.available(t, 10))
}

func TestReconcileFailedReleasesCapacityExactlyOnce(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	txn, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	notice := &gateway.CallbackNotice{
		Reference:   txn.Reference,
		Status:      gateway.CallbackStatusFailed,
		AmountCents: txn.AmountCents,
	}

	result, err := f.svc.Reconcile(ctx, notice)
	require.NoError(t, err)
	assert.Equal(t, ReconcileApplied, result)

	got, err := f.bookings.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusFailed, got.Status)
	assert.Equal(t, uint32(20), f.available(t, 10))
	assert.Equal(t, uint32(5), f.available(t, 20))
	assert.Empty(t, f.published)

	// The duplicate delivery changes nothing; the release flag
	// already flipped.
	result, err = f.svc.Reconcile(ctx, notice)
	require.NoError(t, err)
	assert.Equal(t, ReconcileApplied, result)
	assert.Equal(t, uint32(20), f.available(t, 10))
	assert.Equal(t, uint32(5), f.available(t, 20))
}

func TestReconcileFailedOnPaidBookingKeepsCapacity(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	txn, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)

	// The booking settles while its attempt is still pending, leaving
	// a dangling transaction that a late failure callback will hit.
	require.NoError(t, f.bookings.MarkPaid(ctx, b.ID))

	result, err := f.svc.Reconcile(ctx, &gateway.CallbackNotice{
		Reference:   txn.Reference,
		Status:      gateway.CallbackStatusFailed,
		AmountCents: txn.AmountCents,
	})
	require.NoError(t, err)
	assert.Equal(t, ReconcileApplied, result)

	// Sold units never return to the pool.
	got, err := f.bookings.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPaid, got.Status)
	assert.Equal(t, uint32(18), f.available(t, 10))
	assert.Equal(t, uint32(4), f.available(t, 20))
	assert.False(t, got.CapacityReleased)
}

func TestReconcileReplayedCallbackAmountTamperRejected(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	txn, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	_, err = f.svc.Reconcile(ctx, &gateway.CallbackNotice{
		Reference:   txn.Reference,
		Status:      gateway.CallbackStatusPaid,
		AmountCents: txn.AmountCents,
	})
	require.NoError(t, err)

	// A replay of the final status with a doctored amount is flagged
	// instead of being absorbed as a duplicate.
	_, err = f.svc.Reconcile(ctx, &gateway.CallbackNotice{
		Reference:   txn.Reference,
		Status:      gateway.CallbackStatusPaid,
		AmountCents: txn.AmountCents - 1,
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, f.published, 1)
}

func TestReconcileStaleSupersededTransaction(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	first, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	require.NoError(t, f.payments.Supersede(ctx, first.ID))

	second, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	require.NotEqual(t, first.Reference, second.Reference)

	// A late callback for the retired attempt is absorbed.
	result, err := f.svc.Reconcile(ctx, &gateway.CallbackNotice{
		Reference:   first.Reference,
		Status:      gateway.CallbackStatusPaid,
		AmountCents: first.AmountCents,
	})
	require.NoError(t, err)
	assert.Equal(t, ReconcileStale, result)

	got, err := f.bookings.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingPayment, got.Status)
}

func TestReconcileUnknownReference(t *testing.T) {
	f := newPaymentFixture(t)

	result, err := f.svc.Reconcile(context.Background(), &gateway.CallbackNotice{
		Reference:   "no-such-reference",
		Status:      gateway.CallbackStatusPaid,
		AmountCents: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, ReconcileUnknownReference, result)
}

func TestReconcileAmountMismatchRejected(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	txn, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)

	_, err = f.svc.Reconcile(ctx, &gateway.CallbackNotice{
		Reference:   txn.Reference,
		Status:      gateway.CallbackStatusPaid,
		AmountCents: txn.AmountCents - 1,
	})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := f.bookings.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingPayment, got.Status)
}

func TestEnforceDeadlineFailsOverdueBooking(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	txn, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)

	f.now = b.PaymentDeadline.Add(time.Second)
	require.NoError(t, f.svc.EnforceDeadline(ctx, b.ID))

	got, err := f.bookings.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusFailed, got.Status)
	assert.Equal(t, uint32(20), f.available(t, 10))
	assert.Equal(t, uint32(5), f.available(t, 20))

	// The dangling attempt was expired, so a late paid callback for
	// it reads as a conflict with a final status, not a settlement.
	active, err := f.payments.ByReference(ctx, txn.Reference)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusExpired, active.Status)

	// Running the enforcement again is a no-op.
	require.NoError(t, f.svc.EnforceDeadline(ctx, b.ID))
	assert.Equal(t, uint32(20), f.available(t, 10))
}

func TestEnforceDeadlineLeavesPaidBookingAlone(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	txn, err := f.svc.Initiate(ctx, b.OrderID, gateway.ChannelMock, false)
	require.NoError(t, err)
	_, err = f.svc.Reconcile(ctx, &gateway.CallbackNotice{
		Reference:   txn.Reference,
		Status:      gateway.CallbackStatusPaid,
		AmountCents: txn.AmountCents,
	})
	require.NoError(t, err)

	f.now = b.PaymentDeadline.Add(time.Hour)
	require.NoError(t, f.svc.EnforceDeadline(ctx, b.ID))

	got, err := f.bookings.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPaid, got.Status)
	assert.Equal(t, uint32(18), f.available(t, 10))
}

func TestEnforceDeadlineBeforeWindowCloses(t *testing.T) {
	f := newPaymentFixture(t)
	b := f.seedBooking(t)
	ctx := context.Background()

	require.NoError(t, f.svc.EnforceDeadline(ctx, b.ID))

	got, err := f.bookings.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingPayment, got.Status)
}

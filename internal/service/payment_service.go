package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/ferry-reservation/internal/gateway"
	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/queue"
	"github.com/harborline/ferry-reservation/internal/repository"
)

// ReconcileResult classifies the outcome of applying one provider
// callback. These map 1:1 onto the orchestrator's contract.
type ReconcileResult string

const (
	// ReconcileApplied means the callback changed state, or repeated
	// a final status already applied (idempotent success).
	ReconcileApplied ReconcileResult = "applied"
	// ReconcileStale means the callback references a transaction that
	// is no longer the booking's active attempt. Absorbed, logged,
	// not an error.
	ReconcileStale ReconcileResult = "stale"
	// ReconcileUnknownReference means no transaction matches the
	// callback's reference.
	ReconcileUnknownReference ReconcileResult = "unknown_reference"
)

// PaymentService opens provider transactions for bookings and
// reconciles the asynchronous callbacks against local state. It owns
// the second capacity-release path: an unpaid terminal outcome
// credits every ticket's class back to the ledger exactly once,
// guarded by the booking's release flag.
type PaymentService struct {
	bookings repository.BookingStore
	payments repository.PaymentStore
	ledger   repository.CapacityLedger
	gateways *gateway.Registry

	// publish pushes settlement events to the broker; nil disables
	// publishing (tests, dev without a broker).
	publish func(ctx context.Context, ev queue.BookingPaidEvent) error

	now func() time.Time
}

// NewPaymentService wires a payment orchestrator.
func NewPaymentService(
	bookings repository.BookingStore,
	payments repository.PaymentStore,
	ledger repository.CapacityLedger,
	gateways *gateway.Registry,
	publish func(ctx context.Context, ev queue.BookingPaidEvent) error,
) *PaymentService {
	return &PaymentService{
		bookings: bookings,
		payments: payments,
		ledger:   ledger,
		gateways: gateways,
		publish:  publish,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Initiate opens a provider transaction for a pending booking on the
// given channel. An existing active attempt on the same channel is
// returned as-is; one on a different channel must be superseded
// explicitly (supersede=true), or the call fails with
// repository.ErrConflict; a pending attempt is never left dangling.
func (s *PaymentService) Initiate(ctx context.Context, orderID, channel string, supersede bool) (*model.PaymentTransaction, error) {
	booking, err := s.bookings.ByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusPendingPayment {
		return nil, fmt.Errorf("%w: booking %s is %s", repository.ErrConflict, orderID, booking.Status)
	}

	ch, err := s.gateways.ByCode(channel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	active, err := s.payments.ActiveByBooking(ctx, booking.ID)
	switch {
	case err == nil && active.Status == model.PaymentStatusPending:
		if active.Channel == ch.Name() {
			return active, nil
		}
		if !supersede {
			return nil, fmt.Errorf("%w: booking %s already has a pending %s attempt", repository.ErrConflict, orderID, active.Channel)
		}
		if err := s.payments.Supersede(ctx, active.ID); err != nil {
			return nil, err
		}
	case err == nil:
		// Prior attempt ended in failure or expiry; a new one
		// supersedes it implicitly.
		if err := s.payments.Supersede(ctx, active.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, repository.ErrPaymentNotFound):
		return nil, err
	}

	reference := uuid.New().String()
	items := make([]gateway.TransactionItem, 0, len(booking.Tickets))
	for _, t := range booking.Tickets {
		items = append(items, gateway.TransactionItem{
			Name:       t.Kind,
			Quantity:   1,
			PriceCents: t.PriceCents,
		})
	}
	provider, err := ch.CreateTransaction(ctx, &gateway.CreateTransactionRequest{
		Reference:     reference,
		OrderID:       booking.OrderID,
		AmountCents:   booking.TotalCents(),
		CustomerName:  booking.ContactName,
		CustomerEmail: booking.ContactEmail,
		Description:   fmt.Sprintf("Ferry booking %s", booking.OrderID),
		Items:         items,
	})
	if err != nil {
		return nil, fmt.Errorf("open transaction on %s: %w", ch.Name(), err)
	}

	txn := &model.PaymentTransaction{
		Reference:   reference,
		BookingID:   booking.ID,
		Channel:     ch.Name(),
		AmountCents: booking.TotalCents(),
		Status:      model.PaymentStatusPending,
		PayCode:     provider.PayCode,
		PayURL:      provider.PayURL,
		QRPayload:   provider.QRPayload,
	}
	if err := s.payments.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Reconcile applies one verified provider callback. It is idempotent:
// a repeated final-status callback returns ReconcileApplied with no
// side effects, and callbacks for superseded transactions are
// reported ReconcileStale and absorbed. The capacity ledger is
// touched only on the unpaid-terminal path.
func (s *PaymentService) Reconcile(ctx context.Context, notice *gateway.CallbackNotice) (ReconcileResult, error) {
	txn, err := s.payments.ByReference(ctx, notice.Reference)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return ReconcileUnknownReference, nil
	}
	if err != nil {
		return "", err
	}
	if txn.Superseded {
		log.Printf("payment: stale callback absorbed reference=%s status=%s", notice.Reference, notice.Status)
		return ReconcileStale, nil
	}
	if notice.AmountCents != txn.AmountCents {
		// Checked before the duplicate short-circuit so a replayed
		// callback with a tampered amount is flagged, not absorbed.
		return "", fmt.Errorf("%w: callback amount %d does not match transaction amount %d",
			ErrValidation, notice.AmountCents, txn.AmountCents)
	}
	if txn.Status == notice.Status {
		// Duplicate delivery of a final status: same result, no new
		// side effects.
		return ReconcileApplied, nil
	}

	switch notice.Status {
	case gateway.CallbackStatusPaid:
		return s.applyPaid(ctx, txn)
	case gateway.CallbackStatusFailed, gateway.CallbackStatusExpired:
		return s.applyUnpaid(ctx, txn, notice.Status)
	default:
		return "", fmt.Errorf("%w: unknown callback status %s", ErrValidation, notice.Status)
	}
}

func (s *PaymentService) applyPaid(ctx context.Context, txn *model.PaymentTransaction) (ReconcileResult, error) {
	if err := s.payments.MarkStatus(ctx, txn.ID, model.PaymentStatusPending, model.PaymentStatusPaid); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with another delivery of the same callback.
			return ReconcileApplied, nil
		}
		return "", err
	}
	if err := s.bookings.MarkPaid(ctx, txn.BookingID); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return "", err
		}
		// The booking left PENDING_PAYMENT between transaction
		// settlement and here; the deadline task or an operator
		// already failed it. A paid transaction on a failed booking
		// needs a refund decision, so make it loud.
		log.Printf("payment: INTEGRITY paid callback on non-pending booking=%d reference=%s", txn.BookingID, txn.Reference)
		return ReconcileApplied, nil
	}

	if s.publish != nil {
		booking, err := s.bookings.ByID(ctx, txn.BookingID)
		if err == nil {
			ev := queue.BookingPaidEvent{
				BookingID:   booking.ID,
				OrderID:     booking.OrderID,
				ScheduleID:  booking.ScheduleID,
				Channel:     txn.Channel,
				Reference:   txn.Reference,
				AmountCents: txn.AmountCents,
				TicketCount: len(booking.Tickets),
				PaidAt:      s.now().Format(time.RFC3339),
			}
			if err := s.publish(ctx, ev); err != nil {
				log.Printf("payment: settlement event publish failed booking=%d: %v", booking.ID, err)
			}
		}
	}
	return ReconcileApplied, nil
}

func (s *PaymentService) applyUnpaid(ctx context.Context, txn *model.PaymentTransaction, status string) (ReconcileResult, error) {
	to := model.PaymentStatusFailed
	if status == gateway.CallbackStatusExpired {
		to = model.PaymentStatusExpired
	}
	if err := s.payments.MarkStatus(ctx, txn.ID, model.PaymentStatusPending, to); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ReconcileApplied, nil
		}
		return "", err
	}
	if err := s.failBooking(ctx, txn.BookingID); err != nil {
		return "", err
	}
	return ReconcileApplied, nil
}

// EnforceDeadline fails a booking whose payment window closed without
// a settled transaction. Invoked by the scheduled deadline task; a
// booking that was paid or already failed in the meantime is left
// untouched.
func (s *PaymentService) EnforceDeadline(ctx context.Context, bookingID uint64) error {
	booking, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != model.BookingStatusPendingPayment {
		return nil
	}
	if s.now().Before(booking.PaymentDeadline) {
		return nil
	}
	// Close out the dangling attempt, if any, so late callbacks for
	// it read as duplicates of a final status.
	if active, err := s.payments.ActiveByBooking(ctx, bookingID); err == nil && active.Status == model.PaymentStatusPending {
		if err := s.payments.MarkStatus(ctx, active.ID, model.PaymentStatusPending, model.PaymentStatusExpired); err != nil &&
			!errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return s.failBooking(ctx, bookingID)
}

// failBooking flips the booking to FAILED and credits its capacity
// back exactly once. The release flag is the idempotency guard:
// whichever caller flips it performs the ledger credit, every other
// path is a no-op. Capacity is credited only when the booking really
// ended FAILED: if it was settled between the caller's status read
// and this call, its units are sold and stay out of the pool.
func (s *PaymentService) failBooking(ctx context.Context, bookingID uint64) error {
	if err := s.bookings.MarkFailed(ctx, bookingID); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		booking, berr := s.bookings.ByID(ctx, bookingID)
		if berr != nil {
			return berr
		}
		if booking.Status != model.BookingStatusFailed {
			log.Printf("payment: fail skipped, booking=%d settled as %s", bookingID, booking.Status)
			return nil
		}
	}
	won, err := s.bookings.MarkCapacityReleased(ctx, bookingID)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	booking, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return err
	}
	qtyByClass := make(map[uint64]uint32)
	for _, t := range booking.Tickets {
		qtyByClass[t.ClassID]++
	}
	for classID, qty := range qtyByClass {
		if err := s.ledger.Release(ctx, booking.ScheduleID, classID, qty); err != nil {
			log.Printf("payment: INTEGRITY capacity release failed booking=%d schedule=%d class=%d qty=%d: %v",
				booking.ID, booking.ScheduleID, classID, qty, err)
		}
	}
	return nil
}

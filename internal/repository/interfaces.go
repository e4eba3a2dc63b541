package repository

import (
	"context"
	"time"

	"github.com/harborline/ferry-reservation/internal/model"
)

// CapacityLedger is the authoritative counter of available units per
// (schedule, class). Reserve and Release are atomic with respect to
// concurrent callers on the same key; unrelated keys never contend.
// Payment success never touches the ledger: units leave the pool when
// a hold opens and return only on a terminal non-paid outcome.
type CapacityLedger interface {
	// Reserve decrements availability by qty if at least qty units
	// remain, in one atomic step. Returns ErrInsufficientCapacity
	// without side effects otherwise.
	Reserve(ctx context.Context, scheduleID, classID uint64, qty uint32) error
	// Release credits qty units back. A credit that would exceed
	// total capacity returns ErrCapacityOverflow and applies nothing.
	Release(ctx context.Context, scheduleID, classID uint64, qty uint32) error
	// Available reads the current availability for one class.
	Available(ctx context.Context, scheduleID, classID uint64) (uint32, error)
	// BySchedule lists the ledger rows for a sailing.
	BySchedule(ctx context.Context, scheduleID uint64) ([]model.ClassCapacity, error)
}

// ReservationStore persists reservations and their items and applies
// status transitions with compare-and-swap semantics: each Mark method
// succeeds for exactly one caller and returns ErrConflict to losers.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	ByToken(ctx context.Context, token string) (*model.Reservation, error)
	// MarkClaimed flips ACTIVE -> CLAIMED provided the hold has not
	// expired as of now. Returns ErrConflict when the row is not in
	// the expected state; the caller re-reads to tell claimed from
	// expired.
	MarkClaimed(ctx context.Context, id uint64, now time.Time) error
	// MarkExpired flips ACTIVE -> EXPIRED provided expiry has passed.
	MarkExpired(ctx context.Context, id uint64, now time.Time) error
	// MarkCancelled flips ACTIVE -> CANCELLED.
	MarkCancelled(ctx context.Context, id uint64) error
	// ExpiredActive lists up to limit ACTIVE reservations whose
	// expiry is at or before now, items included, for the reaper.
	ExpiredActive(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
}

// BookingStore persists bookings and tickets. Booking creation writes
// the booking row and all ticket rows in one transaction.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	ByOrderID(ctx context.Context, orderID string) (*model.Booking, error)
	ByID(ctx context.Context, id uint64) (*model.Booking, error)
	// MarkPaid flips PENDING_PAYMENT -> PAID (CAS).
	MarkPaid(ctx context.Context, id uint64) error
	// MarkFailed flips PENDING_PAYMENT -> FAILED (CAS).
	MarkFailed(ctx context.Context, id uint64) error
	// MarkCapacityReleased flips the release guard false -> true and
	// reports whether this caller won the flip. Exactly one winner
	// per booking credits the ledger.
	MarkCapacityReleased(ctx context.Context, id uint64) (bool, error)
	TicketByID(ctx context.Context, id uint64) (*model.Ticket, error)
	// MarkTicketCheckedIn flips BOOKED -> CHECKED_IN (CAS).
	MarkTicketCheckedIn(ctx context.Context, id uint64) error
}

// PaymentStore persists payment transactions. At most one
// non-superseded transaction exists per booking.
type PaymentStore interface {
	Create(ctx context.Context, t *model.PaymentTransaction) error
	ByReference(ctx context.Context, ref string) (*model.PaymentTransaction, error)
	// ActiveByBooking returns the booking's non-superseded
	// transaction, or ErrPaymentNotFound when none exists.
	ActiveByBooking(ctx context.Context, bookingID uint64) (*model.PaymentTransaction, error)
	// Supersede marks a transaction as no longer the active attempt.
	Supersede(ctx context.Context, id uint64) error
	// MarkStatus flips status from -> to (CAS).
	MarkStatus(ctx context.Context, id uint64, from, to string) error
}

// ScheduleStore reads sailing reference data: the schedule itself and
// the ship, route and harbor records that describe it.
type ScheduleStore interface {
	ByID(ctx context.Context, id uint64) (*model.Schedule, error)
	ShipByID(ctx context.Context, id uint64) (*model.Ship, error)
	RouteByID(ctx context.Context, id uint64) (*model.Route, error)
	HarborByID(ctx context.Context, id uint64) (*model.Harbor, error)
}

// FareClassStore reads fare class reference data.
type FareClassStore interface {
	ByID(ctx context.Context, id uint64) (*model.FareClass, error)
}

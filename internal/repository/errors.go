// Package repository defines the persistence interfaces of the
// reservation engine together with the sentinel errors shared across
// implementations. The sentinels let the service and handler layers
// distinguish failure modes without inspecting driver errors: a
// capacity shortfall is a normal user-facing outcome, a release
// overflow is a data-integrity fault that must be surfaced loudly.
package repository

import "errors"

// ErrInsufficientCapacity is returned by CapacityLedger.Reserve when
// the requested quantity exceeds what is available for the class.
// This is a retryable, user-facing condition, not a system fault.
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// ErrCapacityOverflow is returned by CapacityLedger.Release when the
// credit would push available above total. It indicates a lost
// debit/credit pairing and must be logged and alerted, never clamped
// silently.
var ErrCapacityOverflow = errors.New("capacity release exceeds total")

// ErrCapacityNotFound is returned when no ledger row exists for the
// (schedule, class) pair.
var ErrCapacityNotFound = errors.New("capacity row not found")

// ErrScheduleNotFound is returned when a schedule lookup matches no row.
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrReferenceNotFound is returned when a ship, route or harbor
// lookup matches no row. These are reference tables maintained
// elsewhere; a miss here means the schedule points at data that was
// removed from under it.
var ErrReferenceNotFound = errors.New("reference data not found")

// ErrClassNotFound is returned when a fare class lookup matches no row.
var ErrClassNotFound = errors.New("fare class not found")

// ErrReservationNotFound is returned when a session token matches no
// reservation.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrReservationExpired is returned when an operation requires an
// unexpired ACTIVE reservation and the hold has already lapsed.
var ErrReservationExpired = errors.New("reservation expired")

// ErrAlreadyClaimed is returned when a claim races another claim and
// loses, or targets a reservation that was already converted.
var ErrAlreadyClaimed = errors.New("reservation already claimed")

// ErrBookingNotFound is returned when an order id or booking id
// matches no booking.
var ErrBookingNotFound = errors.New("booking not found")

// ErrTicketNotFound is returned when a ticket lookup matches no row.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrPaymentNotFound is returned when no matching payment transaction
// exists (unknown reference, or no active attempt for a booking).
var ErrPaymentNotFound = errors.New("payment transaction not found")

// ErrConflict is returned when a compare-and-swap status transition
// finds the row in a state other than the expected one. Callers that
// lost a benign race translate this into their own result; callers
// that required the transition treat it as a state conflict.
var ErrConflict = errors.New("conflicting state transition")

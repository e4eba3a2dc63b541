package model

import "time"

// Reservation statuses.  ACTIVE is the only non-terminal state; it is
// left either via CLAIMED (claim conversion), EXPIRED (reaper) or
// CANCELLED (customer cancel).  Exactly one terminal transition wins;
// the status column is updated with compare-and-swap semantics.
const (
	ReservationStatusActive    = "ACTIVE"
	ReservationStatusClaimed   = "CLAIMED"
	ReservationStatusExpired   = "EXPIRED"
	ReservationStatusCancelled = "CANCELLED"
)

// Reservation is a time-bounded hold on capacity taken out while a
// customer fills in passenger and payment details.  The capacity
// backing the hold is debited from the ledger before the reservation
// is handed to the caller, and returns to the pool only when the hold
// ends in a terminal non-paid outcome.
//
// Fields:
//  ID           – primary key identifier.
//  SessionToken – opaque token returned to the client for all follow-up calls.
//  ScheduleID   – sailing the capacity is held on.
//  Status       – ACTIVE, CLAIMED, EXPIRED or CANCELLED.
//  ExpiresAt    – hard expiry set once at creation, never extended.
//  CreatedAt    – creation timestamp.
//  Items        – per-class quantities held.
type Reservation struct {
	ID           uint64            // reservations.id
	SessionToken string            // reservations.session_token
	ScheduleID   uint64            // reservations.schedule_id
	Status       string            // reservations.status
	ExpiresAt    time.Time         // reservations.expires_at
	CreatedAt    time.Time         // reservations.created_at
	Items        []ReservationItem // reservation_items rows
}

// ReservationItem is the quantity of units held from one class within
// a reservation.
type ReservationItem struct {
	ID            uint64 // reservation_items.id
	ReservationID uint64 // reservation_items.reservation_id
	ClassID       uint64 // reservation_items.class_id
	Quantity      uint32 // reservation_items.quantity
}

// EffectiveStatus derives the externally visible status at a point in
// time.  An ACTIVE reservation past its expiry reads as EXPIRED even
// before the reaper has swept it; reads never mutate state, so the
// stored status may lag behind.
func (r *Reservation) EffectiveStatus(now time.Time) string {
	if r.Status == ReservationStatusActive && now.After(r.ExpiresAt) {
		return ReservationStatusExpired
	}
	return r.Status
}

// Claimable reports whether a claim may still convert this hold.
func (r *Reservation) Claimable(now time.Time) bool {
	return r.Status == ReservationStatusActive && !now.After(r.ExpiresAt)
}

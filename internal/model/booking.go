package model

import "time"

// Booking statuses.  A booking starts in PENDING_PAYMENT and moves to
// PAID only on a verified provider callback matching its active
// payment transaction.  FAILED and CANCELLED release the capacity the
// originating reservation committed; REFUNDED is bookkeeping only.
const (
	BookingStatusPendingPayment = "PENDING_PAYMENT"
	BookingStatusPaid           = "PAID"
	BookingStatusFailed         = "FAILED"
	BookingStatusRefunded       = "REFUNDED"
	BookingStatusCancelled      = "CANCELLED"
)

// Ticket statuses.  BOOKED -> CHECKED_IN is monotonic and idempotent.
const (
	TicketStatusBooked    = "BOOKED"
	TicketStatusCheckedIn = "CHECKED_IN"
)

// Ticket kinds mirror the fare class kinds.
const (
	TicketKindPassenger = ClassKindPassenger
	TicketKindVehicle   = ClassKindVehicle
)

// Booking is the durable record a still-valid reservation converts
// into, exactly once.  CapacityReleased guards the failure-path
// capacity credit: it flips false -> true at most once, so repeated
// failure callbacks never double-release.
//
// Fields:
//  ID               – primary key identifier.
//  OrderID          – externally visible order identifier.
//  ReservationID    – the reservation this booking was claimed from (one-to-one).
//  ScheduleID       – sailing being booked.
//  ContactName      – customer contact name.
//  ContactEmail     – customer contact email.
//  ContactPhone     – customer contact phone.
//  Status           – see BookingStatus constants.
//  CapacityReleased – whether the failure path already credited the ledger.
//  PaymentDeadline  – payment window end; past it an unpaid booking fails.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
//  Tickets          – tickets issued under this booking.
type Booking struct {
	ID               uint64    // bookings.id
	OrderID          string    // bookings.order_id
	ReservationID    uint64    // bookings.reservation_id
	ScheduleID       uint64    // bookings.schedule_id
	ContactName      string    // bookings.contact_name
	ContactEmail     string    // bookings.contact_email
	ContactPhone     string    // bookings.contact_phone
	Status           string    // bookings.status
	CapacityReleased bool      // bookings.capacity_released
	PaymentDeadline  time.Time // bookings.payment_deadline
	CreatedAt        time.Time // bookings.created_at
	UpdatedAt        time.Time // bookings.updated_at
	Tickets          []Ticket  // tickets rows
}

// TotalCents sums the ticket prices for this booking.
func (b *Booking) TotalCents() uint32 {
	var total uint32
	for _, t := range b.Tickets {
		total += t.PriceCents
	}
	return total
}

// Ticket is a single issued unit: one passenger seat or one vehicle
// slot.  Tickets are created only by the claim conversion, never
// independently, and belong to exactly one booking.
//
// Fields:
//  ID            – primary key identifier.
//  BookingID     – owning booking.
//  ClassID       – fare class the unit was sold from.
//  Kind          – TicketKindPassenger or TicketKindVehicle.
//  PassengerName – passenger name (passenger tickets).
//  IdentityNo    – identity document number (passenger tickets).
//  PlateNo       – vehicle plate number (vehicle tickets).
//  PriceCents    – price captured at claim time.
//  Status        – BOOKED or CHECKED_IN.
//  CreatedAt     – creation timestamp.
type Ticket struct {
	ID            uint64    // tickets.id
	BookingID     uint64    // tickets.booking_id
	ClassID       uint64    // tickets.class_id
	Kind          string    // tickets.kind
	PassengerName string    // tickets.passenger_name
	IdentityNo    string    // tickets.identity_no
	PlateNo       string    // tickets.plate_no
	PriceCents    uint32    // tickets.price_cents
	Status        string    // tickets.status
	CreatedAt     time.Time // tickets.created_at
}

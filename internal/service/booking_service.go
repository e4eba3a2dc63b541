package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/repository"
)

// CustomerInfo is the contact block captured at claim time.
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

// TicketEntry is one requested unit with its passenger or vehicle
// details. The set of entries must match the reservation's items in
// per-class counts exactly; no substitution is allowed.
type TicketEntry struct {
	ClassID       uint64
	PassengerName string
	IdentityNo    string
	PlateNo       string
}

// DeadlineScheduler schedules the payment-window enforcement for a
// booking. The asynq-backed implementation lives in internal/tasks;
// tests substitute a recorder.
type DeadlineScheduler interface {
	ScheduleDeadline(ctx context.Context, bookingID uint64, at time.Time) error
}

// BookingService converts a still-valid hold plus customer data into
// a durable booking and its tickets. The conversion is guarded by a
// compare-and-swap on the reservation status, so of two concurrent
// claims exactly one creates a booking; capacity is not touched here,
// it was already debited when the hold opened.
type BookingService struct {
	reservations repository.ReservationStore
	bookings     repository.BookingStore
	classes      repository.FareClassStore
	deadlines    DeadlineScheduler
	payWindow    time.Duration

	now func() time.Time
}

// NewBookingService wires a claim converter. payWindow bounds how
// long a booking may sit unpaid before it fails and releases its
// capacity.
func NewBookingService(
	reservations repository.ReservationStore,
	bookings repository.BookingStore,
	classes repository.FareClassStore,
	deadlines DeadlineScheduler,
	payWindow time.Duration,
) *BookingService {
	return &BookingService{
		reservations: reservations,
		bookings:     bookings,
		classes:      classes,
		deadlines:    deadlines,
		payWindow:    payWindow,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Claim validates the hold and the ticket entries, flips the
// reservation ACTIVE -> CLAIMED, and creates the booking in
// PENDING_PAYMENT with one ticket per entry. Error mapping:
// repository.ErrReservationExpired when the window has lapsed,
// repository.ErrAlreadyClaimed when another claim won, ErrValidation
// when the entries do not match the hold.
func (s *BookingService) Claim(ctx context.Context, token string, customer CustomerInfo, entries []TicketEntry) (*model.Booking, error) {
	res, err := s.reservations.ByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch {
	case res.Status == model.ReservationStatusClaimed:
		return nil, repository.ErrAlreadyClaimed
	case !res.Claimable(now):
		return nil, repository.ErrReservationExpired
	}
	if customer.Name == "" || customer.Email == "" {
		return nil, fmt.Errorf("%w: contact name and email are required", ErrValidation)
	}

	tickets, err := s.buildTickets(ctx, res, entries)
	if err != nil {
		return nil, err
	}

	// Single-writer conversion: a concurrent claim or reaper sweep
	// loses this CAS and is told why by the re-read.
	if err := s.reservations.MarkClaimed(ctx, res.ID, now); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		cur, rerr := s.reservations.ByToken(ctx, token)
		if rerr != nil {
			return nil, rerr
		}
		if cur.Status == model.ReservationStatusClaimed {
			return nil, repository.ErrAlreadyClaimed
		}
		return nil, repository.ErrReservationExpired
	}

	booking := &model.Booking{
		OrderID:         uuid.New().String(),
		ReservationID:   res.ID,
		ScheduleID:      res.ScheduleID,
		ContactName:     customer.Name,
		ContactEmail:    customer.Email,
		ContactPhone:    customer.Phone,
		Status:          model.BookingStatusPendingPayment,
		PaymentDeadline: now.Add(s.payWindow),
		Tickets:         tickets,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		// The reservation is CLAIMED but no booking exists; the held
		// capacity stays debited. This is an integrity fault that
		// needs operator attention, not a silent retry.
		log.Printf("booking: INTEGRITY claim committed but booking insert failed reservation=%d: %v", res.ID, err)
		return nil, err
	}

	if s.deadlines != nil {
		if err := s.deadlines.ScheduleDeadline(ctx, booking.ID, booking.PaymentDeadline); err != nil {
			log.Printf("booking: schedule payment deadline failed booking=%d: %v", booking.ID, err)
		}
	}
	return booking, nil
}

// ByOrderID returns a booking with its tickets for the polling
// surface.
func (s *BookingService) ByOrderID(ctx context.Context, orderID string) (*model.Booking, error) {
	return s.bookings.ByOrderID(ctx, orderID)
}

// buildTickets checks the entries against the reservation items
// (exact per-class counts) and materialises tickets with the fixed
// per-class price and the detail fields the class kind requires.
func (s *BookingService) buildTickets(ctx context.Context, res *model.Reservation, entries []TicketEntry) ([]model.Ticket, error) {
	want := make(map[uint64]uint32, len(res.Items))
	for _, it := range res.Items {
		want[it.ClassID] = it.Quantity
	}
	got := make(map[uint64]uint32, len(want))
	for _, e := range entries {
		got[e.ClassID]++
	}
	if len(got) != len(want) {
		return nil, fmt.Errorf("%w: ticket entries do not match the reservation", ErrValidation)
	}
	for classID, qty := range want {
		if got[classID] != qty {
			return nil, fmt.Errorf("%w: class %d expects %d entries, got %d", ErrValidation, classID, qty, got[classID])
		}
	}

	classByID := make(map[uint64]*model.FareClass, len(want))
	for classID := range want {
		fc, err := s.classes.ByID(ctx, classID)
		if err != nil {
			return nil, err
		}
		classByID[classID] = fc
	}

	tickets := make([]model.Ticket, 0, len(entries))
	for _, e := range entries {
		fc := classByID[e.ClassID]
		switch fc.Kind {
		case model.ClassKindPassenger:
			if e.PassengerName == "" || e.IdentityNo == "" {
				return nil, fmt.Errorf("%w: passenger name and identity number are required for class %s", ErrValidation, fc.Code)
			}
		case model.ClassKindVehicle:
			if e.PlateNo == "" {
				return nil, fmt.Errorf("%w: plate number is required for class %s", ErrValidation, fc.Code)
			}
		}
		tickets = append(tickets, model.Ticket{
			ClassID:       e.ClassID,
			Kind:          fc.Kind,
			PassengerName: e.PassengerName,
			IdentityNo:    e.IdentityNo,
			PlateNo:       e.PlateNo,
			PriceCents:    fc.PriceCents,
			Status:        model.TicketStatusBooked,
		})
	}
	return tickets, nil
}

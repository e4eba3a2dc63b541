package service

import (
	"context"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/repository"
)

// CheckInResult classifies a check-in attempt. AlreadyCheckedIn is an
// informational success, not a failure: gate scanners retry on
// network uncertainty and must be able to do so without risk.
type CheckInResult string

const (
	CheckInOK        CheckInResult = "checked_in"
	CheckInDuplicate CheckInResult = "already_checked_in"
	CheckInNotPaid   CheckInResult = "not_paid"
)

// CheckInService records the BOOKED -> CHECKED_IN transition per
// ticket. The transition is monotonic and idempotent and never
// touches capacity or payment state.
type CheckInService struct {
	bookings  repository.BookingStore
	schedules repository.ScheduleStore
}

// NewCheckInService wires a check-in tracker.
func NewCheckInService(bookings repository.BookingStore, schedules repository.ScheduleStore) *CheckInService {
	return &CheckInService{bookings: bookings, schedules: schedules}
}

// CheckIn marks one ticket as checked in. The owning booking must be
// PAID and the sailing must not be cancelled. A ticket already
// checked in yields CheckInDuplicate with no error, including when a
// concurrent scan wins the flip first.
func (s *CheckInService) CheckIn(ctx context.Context, ticketID uint64) (CheckInResult, error) {
	ticket, err := s.bookings.TicketByID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	booking, err := s.bookings.ByID(ctx, ticket.BookingID)
	if err != nil {
		return "", err
	}
	if booking.Status != model.BookingStatusPaid {
		return CheckInNotPaid, nil
	}
	sched, err := s.schedules.ByID(ctx, booking.ScheduleID)
	if err != nil {
		return "", err
	}
	if sched.Status == model.ScheduleStatusCancelled {
		return "", repository.ErrConflict
	}
	if ticket.Status == model.TicketStatusCheckedIn {
		return CheckInDuplicate, nil
	}
	if err := s.bookings.MarkTicketCheckedIn(ctx, ticketID); err != nil {
		if err == repository.ErrConflict {
			return CheckInDuplicate, nil
		}
		return "", err
	}
	return CheckInOK, nil
}

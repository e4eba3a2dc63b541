// Package service implements the reservation-and-settlement engine on
// top of the repository interfaces: hold opening against the capacity
// ledger, claim conversion, payment orchestration and check-in.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/repository"
)

// ErrValidation wraps user-input problems (bad quantities, duplicate
// classes, missing passenger fields). Handlers translate it to 400.
var ErrValidation = errors.New("validation failed")

// ReservationService owns the reservation lifecycle: it debits the
// capacity ledger when a hold opens, exposes side-effect-free status
// reads, and is the single place capacity is credited back for holds
// that end without a claim (cancel and reaper paths).
type ReservationService struct {
	ledger       repository.CapacityLedger
	reservations repository.ReservationStore
	schedules    repository.ScheduleStore
	ttl          time.Duration

	now func() time.Time
}

// NewReservationService wires a reservation manager. ttl is the fixed
// hold window applied to every reservation at creation.
func NewReservationService(
	ledger repository.CapacityLedger,
	reservations repository.ReservationStore,
	schedules repository.ScheduleStore,
	ttl time.Duration,
) *ReservationService {
	return &ReservationService{
		ledger:       ledger,
		reservations: reservations,
		schedules:    schedules,
		ttl:          ttl,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Open attempts to reserve every requested item against the ledger
// and creates an ACTIVE reservation with a fixed expiry. The call is
// all-or-nothing: if any class falls short, every debit already taken
// in this call is credited back and the whole call fails with
// repository.ErrInsufficientCapacity. The ledger is debited before
// the reservation is returned, so no caller ever holds a reservation
// without backing capacity.
func (s *ReservationService) Open(ctx context.Context, scheduleID uint64, items []model.ReservationItem) (*model.Reservation, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	seen := make(map[uint64]struct{}, len(items))
	for _, it := range items {
		if it.Quantity == 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for class %d", ErrValidation, it.ClassID)
		}
		if _, dup := seen[it.ClassID]; dup {
			return nil, fmt.Errorf("%w: class %d listed more than once", ErrValidation, it.ClassID)
		}
		seen[it.ClassID] = struct{}{}
	}

	sched, err := s.schedules.ByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !sched.Open() {
		return nil, fmt.Errorf("%w: schedule %d is %s", repository.ErrConflict, scheduleID, sched.Status)
	}

	// Debit class by class; roll back everything taken so far on the
	// first shortfall so the call fails as a unit.
	taken := make([]model.ReservationItem, 0, len(items))
	rollback := func() {
		for _, it := range taken {
			if relErr := s.ledger.Release(ctx, scheduleID, it.ClassID, it.Quantity); relErr != nil {
				log.Printf("reservation: rollback release failed schedule=%d class=%d qty=%d: %v",
					scheduleID, it.ClassID, it.Quantity, relErr)
			}
		}
	}
	for _, it := range items {
		if err := s.ledger.Reserve(ctx, scheduleID, it.ClassID, it.Quantity); err != nil {
			rollback()
			if errors.Is(err, repository.ErrInsufficientCapacity) {
				return nil, fmt.Errorf("class %d: %w", it.ClassID, err)
			}
			return nil, err
		}
		taken = append(taken, it)
	}

	token, err := repository.NewSessionToken()
	if err != nil {
		rollback()
		return nil, err
	}
	now := s.now()
	res := &model.Reservation{
		SessionToken: token,
		ScheduleID:   scheduleID,
		Status:       model.ReservationStatusActive,
		ExpiresAt:    now.Add(s.ttl),
		CreatedAt:    now,
		Items:        append([]model.ReservationItem(nil), items...),
	}
	if err := s.reservations.Create(ctx, res); err != nil {
		rollback()
		return nil, err
	}
	return res, nil
}

// Get returns the reservation for a session token without mutating
// anything. Expiry shows through EffectiveStatus; releasing the
// capacity of a lapsed hold is exclusively the reaper's job, keeping
// this read path free of side effects and double-release races.
func (s *ReservationService) Get(ctx context.Context, token string) (*model.Reservation, error) {
	return s.reservations.ByToken(ctx, token)
}

// Cancel is a customer-initiated forced expiry of a hold before
// claim: the status flips to CANCELLED and the held units return to
// the pool immediately. The CAS guarantees the reaper cannot release
// the same hold a second time.
func (s *ReservationService) Cancel(ctx context.Context, token string) error {
	res, err := s.reservations.ByToken(ctx, token)
	if err != nil {
		return err
	}
	switch res.Status {
	case model.ReservationStatusClaimed:
		return repository.ErrAlreadyClaimed
	case model.ReservationStatusExpired, model.ReservationStatusCancelled:
		return repository.ErrReservationExpired
	}
	if err := s.reservations.MarkCancelled(ctx, res.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent claim or sweep got there first.
			return repository.ErrReservationExpired
		}
		return err
	}
	s.releaseItems(ctx, res)
	return nil
}

// ReapExpired sweeps up to batch ACTIVE reservations whose window has
// passed, flipping each to EXPIRED and crediting its items back. A
// CAS loss means a concurrent claim won; the hold is skipped without
// touching capacity. Returns the number of reservations reaped.
func (s *ReservationService) ReapExpired(ctx context.Context, batch int) (int, error) {
	now := s.now()
	expired, err := s.reservations.ExpiredActive(ctx, now, batch)
	if err != nil {
		return 0, err
	}
	reaped := 0
	for i := range expired {
		res := &expired[i]
		if err := s.reservations.MarkExpired(ctx, res.ID, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue // claimed or cancelled while we were scanning
			}
			return reaped, err
		}
		s.releaseItems(ctx, res)
		reaped++
	}
	return reaped, nil
}

// releaseItems credits every item of a reservation back to the
// ledger. Overflow means a lost debit/credit pairing; it is logged as
// a data-integrity fault and never clamped silently.
func (s *ReservationService) releaseItems(ctx context.Context, res *model.Reservation) {
	for _, it := range res.Items {
		if err := s.ledger.Release(ctx, res.ScheduleID, it.ClassID, it.Quantity); err != nil {
			log.Printf("reservation: INTEGRITY capacity release failed reservation=%d schedule=%d class=%d qty=%d: %v",
				res.ID, res.ScheduleID, it.ClassID, it.Quantity, err)
		}
	}
}

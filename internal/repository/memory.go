package repository

import (
	"context"
	"sync"
	"time"

	"github.com/harborline/ferry-reservation/internal/model"
)

// In-memory implementations of the store interfaces. They back the
// service tests and the dev mode where no MySQL is reachable. The
// concurrency contract matches the SQL stores: ledger operations are
// atomic per (schedule, class) key and status transitions are
// compare-and-swap.

type capKey struct {
	scheduleID uint64
	classID    uint64
}

type capRow struct {
	mu        sync.Mutex
	total     uint32
	available uint32
}

// MemoryLedger implements CapacityLedger with one lock per key so
// unrelated classes never contend, mirroring the row-level locking of
// the SQL ledger.
type MemoryLedger struct {
	mu   sync.RWMutex
	rows map[capKey]*capRow
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[capKey]*capRow)}
}

var _ CapacityLedger = (*MemoryLedger)(nil)

// SetCapacity seeds total and available capacity for a key.
func (l *MemoryLedger) SetCapacity(scheduleID, classID uint64, total uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[capKey{scheduleID, classID}] = &capRow{total: total, available: total}
}

func (l *MemoryLedger) row(scheduleID, classID uint64) (*capRow, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rows[capKey{scheduleID, classID}]
	return r, ok
}

// Reserve debits qty if available, in one step under the key lock.
func (l *MemoryLedger) Reserve(_ context.Context, scheduleID, classID uint64, qty uint32) error {
	r, ok := l.row(scheduleID, classID)
	if !ok {
		return ErrCapacityNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.available < qty {
		return ErrInsufficientCapacity
	}
	r.available -= qty
	return nil
}

// Release credits qty, refusing credits that would exceed total.
func (l *MemoryLedger) Release(_ context.Context, scheduleID, classID uint64, qty uint32) error {
	r, ok := l.row(scheduleID, classID)
	if !ok {
		return ErrCapacityNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.available+qty > r.total {
		return ErrCapacityOverflow
	}
	r.available += qty
	return nil
}

// Available reads current availability for one key.
func (l *MemoryLedger) Available(_ context.Context, scheduleID, classID uint64) (uint32, error) {
	r, ok := l.row(scheduleID, classID)
	if !ok {
		return 0, ErrCapacityNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.available, nil
}

// BySchedule lists ledger rows for a sailing.
func (l *MemoryLedger) BySchedule(_ context.Context, scheduleID uint64) ([]model.ClassCapacity, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.ClassCapacity
	for k, r := range l.rows {
		if k.scheduleID != scheduleID {
			continue
		}
		r.mu.Lock()
		out = append(out, model.ClassCapacity{
			ScheduleID: k.scheduleID,
			ClassID:    k.classID,
			Total:      r.total,
			Available:  r.available,
		})
		r.mu.Unlock()
	}
	return out, nil
}

// MemoryReservationStore implements ReservationStore on maps.
type MemoryReservationStore struct {
	mu      sync.Mutex
	nextID  uint64
	byID    map[uint64]*model.Reservation
	byToken map[string]uint64
}

// NewMemoryReservationStore returns an empty in-memory reservation store.
func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{
		byID:    make(map[uint64]*model.Reservation),
		byToken: make(map[string]uint64),
	}
}

var _ ReservationStore = (*MemoryReservationStore)(nil)

func (s *MemoryReservationStore) Create(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	for i := range r.Items {
		s.nextID++
		r.Items[i].ID = s.nextID
		r.Items[i].ReservationID = r.ID
	}
	cp := cloneReservation(r)
	s.byID[r.ID] = cp
	s.byToken[r.SessionToken] = r.ID
	return nil
}

func (s *MemoryReservationStore) ByToken(_ context.Context, token string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	if !ok {
		return nil, ErrReservationNotFound
	}
	return cloneReservation(s.byID[id]), nil
}

func (s *MemoryReservationStore) MarkClaimed(_ context.Context, id uint64, now time.Time) error {
	return s.cas(id, func(r *model.Reservation) bool {
		return r.Status == model.ReservationStatusActive && r.ExpiresAt.After(now)
	}, model.ReservationStatusClaimed)
}

func (s *MemoryReservationStore) MarkExpired(_ context.Context, id uint64, now time.Time) error {
	return s.cas(id, func(r *model.Reservation) bool {
		return r.Status == model.ReservationStatusActive && !r.ExpiresAt.After(now)
	}, model.ReservationStatusExpired)
}

func (s *MemoryReservationStore) MarkCancelled(_ context.Context, id uint64) error {
	return s.cas(id, func(r *model.Reservation) bool {
		return r.Status == model.ReservationStatusActive
	}, model.ReservationStatusCancelled)
}

func (s *MemoryReservationStore) ExpiredActive(_ context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.byID {
		if len(out) >= limit {
			break
		}
		if r.Status == model.ReservationStatusActive && !r.ExpiresAt.After(now) {
			out = append(out, *cloneReservation(r))
		}
	}
	return out, nil
}

func (s *MemoryReservationStore) cas(id uint64, ok func(*model.Reservation) bool, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, found := s.byID[id]
	if !found {
		return ErrReservationNotFound
	}
	if !ok(r) {
		return ErrConflict
	}
	r.Status = to
	return nil
}

func cloneReservation(r *model.Reservation) *model.Reservation {
	cp := *r
	cp.Items = append([]model.ReservationItem(nil), r.Items...)
	return &cp
}

// MemoryBookingStore implements BookingStore on maps.
type MemoryBookingStore struct {
	mu        sync.Mutex
	nextID    uint64
	byID      map[uint64]*model.Booking
	byOrderID map[string]uint64
	tickets   map[uint64]*model.Ticket
}

// NewMemoryBookingStore returns an empty in-memory booking store.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{
		byID:      make(map[uint64]*model.Booking),
		byOrderID: make(map[string]uint64),
		tickets:   make(map[uint64]*model.Ticket),
	}
}

var _ BookingStore = (*MemoryBookingStore)(nil)

func (s *MemoryBookingStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = s.nextID
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
		b.UpdatedAt = now
	}
	for i := range b.Tickets {
		s.nextID++
		b.Tickets[i].ID = s.nextID
		b.Tickets[i].BookingID = b.ID
		if b.Tickets[i].CreatedAt.IsZero() {
			b.Tickets[i].CreatedAt = now
		}
		t := b.Tickets[i]
		s.tickets[t.ID] = &t
	}
	cp := *b
	cp.Tickets = nil
	s.byID[b.ID] = &cp
	s.byOrderID[b.OrderID] = b.ID
	return nil
}

func (s *MemoryBookingStore) ByOrderID(ctx context.Context, orderID string) (*model.Booking, error) {
	s.mu.Lock()
	id, ok := s.byOrderID[orderID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrBookingNotFound
	}
	return s.ByID(ctx, id)
}

func (s *MemoryBookingStore) ByID(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	for _, t := range s.tickets {
		if t.BookingID == id {
			cp.Tickets = append(cp.Tickets, *t)
		}
	}
	return &cp, nil
}

func (s *MemoryBookingStore) MarkPaid(_ context.Context, id uint64) error {
	return s.cas(id, model.BookingStatusPendingPayment, model.BookingStatusPaid)
}

func (s *MemoryBookingStore) MarkFailed(_ context.Context, id uint64) error {
	return s.cas(id, model.BookingStatusPendingPayment, model.BookingStatusFailed)
}

func (s *MemoryBookingStore) MarkCapacityReleased(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return false, ErrBookingNotFound
	}
	if b.CapacityReleased {
		return false, nil
	}
	b.CapacityReleased = true
	return true, nil
}

func (s *MemoryBookingStore) TicketByID(_ context.Context, id uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryBookingStore) MarkTicketCheckedIn(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	if t.Status != model.TicketStatusBooked {
		return ErrConflict
	}
	t.Status = model.TicketStatusCheckedIn
	return nil
}

func (s *MemoryBookingStore) cas(id uint64, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return ErrBookingNotFound
	}
	if b.Status != from {
		return ErrConflict
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryPaymentStore implements PaymentStore on maps.
type MemoryPaymentStore struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.PaymentTransaction
	byRef  map[string]uint64
}

// NewMemoryPaymentStore returns an empty in-memory payment store.
func NewMemoryPaymentStore() *MemoryPaymentStore {
	return &MemoryPaymentStore{
		byID:  make(map[uint64]*model.PaymentTransaction),
		byRef: make(map[string]uint64),
	}
}

var _ PaymentStore = (*MemoryPaymentStore)(nil)

func (s *MemoryPaymentStore) Create(_ context.Context, t *model.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
		t.UpdatedAt = now
	}
	cp := *t
	s.byID[t.ID] = &cp
	s.byRef[t.Reference] = t.ID
	return nil
}

func (s *MemoryPaymentStore) ByReference(_ context.Context, ref string) (*model.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRef[ref]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryPaymentStore) ActiveByBooking(_ context.Context, bookingID uint64) (*model.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.PaymentTransaction
	for _, t := range s.byID {
		if t.BookingID == bookingID && !t.Superseded {
			if latest == nil || t.ID > latest.ID {
				latest = t
			}
		}
	}
	if latest == nil {
		return nil, ErrPaymentNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryPaymentStore) Supersede(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return ErrPaymentNotFound
	}
	t.Superseded = true
	return nil
}

func (s *MemoryPaymentStore) MarkStatus(_ context.Context, id uint64, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return ErrPaymentNotFound
	}
	if t.Status != from {
		return ErrConflict
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MemoryScheduleStore implements ScheduleStore on maps.
type MemoryScheduleStore struct {
	mu      sync.RWMutex
	byID    map[uint64]*model.Schedule
	ships   map[uint64]*model.Ship
	routes  map[uint64]*model.Route
	harbors map[uint64]*model.Harbor
}

// NewMemoryScheduleStore returns an empty in-memory schedule store.
func NewMemoryScheduleStore() *MemoryScheduleStore {
	return &MemoryScheduleStore{
		byID:    make(map[uint64]*model.Schedule),
		ships:   make(map[uint64]*model.Ship),
		routes:  make(map[uint64]*model.Route),
		harbors: make(map[uint64]*model.Harbor),
	}
}

var _ ScheduleStore = (*MemoryScheduleStore)(nil)

// Put seeds one schedule.
func (s *MemoryScheduleStore) Put(sc *model.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sc
	s.byID[sc.ID] = &cp
}

// PutShip seeds one ship.
func (s *MemoryScheduleStore) PutShip(sh *model.Ship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sh
	s.ships[sh.ID] = &cp
}

// PutRoute seeds one route.
func (s *MemoryScheduleStore) PutRoute(rt *model.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rt
	s.routes[rt.ID] = &cp
}

// PutHarbor seeds one harbor.
func (s *MemoryScheduleStore) PutHarbor(h *model.Harbor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *h
	s.harbors[h.ID] = &cp
}

func (s *MemoryScheduleStore) ByID(_ context.Context, id uint64) (*model.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.byID[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	cp := *sc
	return &cp, nil
}

func (s *MemoryScheduleStore) ShipByID(_ context.Context, id uint64) (*model.Ship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.ships[id]
	if !ok {
		return nil, ErrReferenceNotFound
	}
	cp := *sh
	return &cp, nil
}

func (s *MemoryScheduleStore) RouteByID(_ context.Context, id uint64) (*model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.routes[id]
	if !ok {
		return nil, ErrReferenceNotFound
	}
	cp := *rt
	return &cp, nil
}

func (s *MemoryScheduleStore) HarborByID(_ context.Context, id uint64) (*model.Harbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.harbors[id]
	if !ok {
		return nil, ErrReferenceNotFound
	}
	cp := *h
	return &cp, nil
}

// MemoryFareClassStore implements FareClassStore on a map.
type MemoryFareClassStore struct {
	mu   sync.RWMutex
	byID map[uint64]*model.FareClass
}

// NewMemoryFareClassStore returns an empty in-memory fare class store.
func NewMemoryFareClassStore() *MemoryFareClassStore {
	return &MemoryFareClassStore{byID: make(map[uint64]*model.FareClass)}
}

var _ FareClassStore = (*MemoryFareClassStore)(nil)

// Put seeds one fare class.
func (s *MemoryFareClassStore) Put(fc *model.FareClass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *fc
	s.byID[fc.ID] = &cp
}

func (s *MemoryFareClassStore) ByID(_ context.Context, id uint64) (*model.FareClass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fc, ok := s.byID[id]
	if !ok {
		return nil, ErrClassNotFound
	}
	cp := *fc
	return &cp, nil
}

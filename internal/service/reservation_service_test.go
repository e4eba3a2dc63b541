package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/repository"
)

type reservationFixture struct {
	ledger    *repository.MemoryLedger
	res       *repository.MemoryReservationStore
	schedules *repository.MemoryScheduleStore
	svc       *ReservationService
	now       time.Time
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	f := &reservationFixture{
		ledger:    repository.NewMemoryLedger(),
		res:       repository.NewMemoryReservationStore(),
		schedules: repository.NewMemoryScheduleStore(),
		now:       time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	f.schedules.Put(&model.Schedule{ID: 1, ShipID: 1, RouteID: 1, Status: model.ScheduleStatusScheduled})
	f.ledger.SetCapacity(1, 10, 20) // passenger
	f.ledger.SetCapacity(1, 20, 5)  // vehicle
	f.svc = NewReservationService(f.ledger, f.res, f.schedules, 15*time.Minute)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *reservationFixture) available(t *testing.T, classID uint64) uint32 {
	t.Helper()
	avail, err := f.ledger.Available(context.Background(), 1, classID)
	require.NoError(t, err)
	return avail
}

func TestOpenReservationDebitsLedger(t *testing.T) {
	f := newReservationFixture(t)

	res, err := f.svc.Open(context.Background(), 1, []model.ReservationItem{
		{ClassID: 10, Quantity: 3},
		{ClassID: 20, Quantity: 1},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionToken)
	assert.Equal(t, model.ReservationStatusActive, res.Status)
	assert.Equal(t, f.now.Add(15*time.Minute), res.ExpiresAt)

	assert.Equal(t, uint32(17), f.available(t, 10))
	assert.Equal(t, uint32(4), f.available(t, 20))
}

func TestOpenReservationRollsBackOnShortfall(t *testing.T) {
	f := newReservationFixture(t)

	// Vehicle class has only 5 units; asking for 6 fails the whole
	// call and the passenger debit taken first must come back.
	_, err := f.svc.Open(context.Background(), 1, []model.ReservationItem{
		{ClassID: 10, Quantity: 3},
		{ClassID: 20, Quantity: 6},
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)

	assert.Equal(t, uint32(20), f.available(t, 10))
	assert.Equal(t, uint32(5), f.available(t, 20))
}

func TestOpenReservationValidation(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, 1, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Open(ctx, 1, []model.ReservationItem{{ClassID: 10, Quantity: 0}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Open(ctx, 1, []model.ReservationItem{
		{ClassID: 10, Quantity: 1},
		{ClassID: 10, Quantity: 2},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOpenReservationClosedSchedule(t *testing.T) {
	f := newReservationFixture(t)
	f.schedules.Put(&model.Schedule{ID: 2, Status: model.ScheduleStatusCancelled})

	_, err := f.svc.Open(context.Background(), 2, []model.ReservationItem{{ClassID: 10, Quantity: 1}})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = f.svc.Open(context.Background(), 99, []model.ReservationItem{{ClassID: 10, Quantity: 1}})
	assert.ErrorIs(t, err, repository.ErrScheduleNotFound)
}

// Concurrent opens over a small pool: the units handed out across all
// successful holds exactly equal the pool, never more.
func TestOpenReservationConcurrentNeverOversells(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	const workers = 30 // pool for class 20 is 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Open(ctx, 1, []model.ReservationItem{{ClassID: 20, Quantity: 1}})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, uint32(0), f.available(t, 20))
}

func TestGetReservationShowsEffectiveExpiry(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, err := f.svc.Open(ctx, 1, []model.ReservationItem{{ClassID: 10, Quantity: 1}})
	require.NoError(t, err)

	// Reads past expiry report EXPIRED without mutating the row or
	// the ledger; only the reaper releases.
	got, err := f.svc.Get(ctx, res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusExpired, got.EffectiveStatus(f.now.Add(16*time.Minute)))
	assert.Equal(t, model.ReservationStatusActive, got.Status)
	assert.Equal(t, uint32(19), f.available(t, 10))
}

func TestCancelReservationReleasesImmediately(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, err := f.svc.Open(ctx, 1, []model.ReservationItem{{ClassID: 10, Quantity: 4}})
	require.NoError(t, err)
	assert.Equal(t, uint32(16), f.available(t, 10))

	require.NoError(t, f.svc.Cancel(ctx, res.SessionToken))
	assert.Equal(t, uint32(20), f.available(t, 10))

	// A second cancel finds a terminal hold.
	assert.ErrorIs(t, f.svc.Cancel(ctx, res.SessionToken), repository.ErrReservationExpired)
	assert.Equal(t, uint32(20), f.available(t, 10))
}

func TestReapExpiredReleasesCapacity(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, err := f.svc.Open(ctx, 1, []model.ReservationItem{{ClassID: 10, Quantity: 2}})
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, 1, []model.ReservationItem{{ClassID: 10, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, uint32(15), f.available(t, 10))

	f.now = f.now.Add(16 * time.Minute)
	reaped, err := f.svc.ReapExpired(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, reaped)
	assert.Equal(t, uint32(20), f.available(t, 10))

	got, err := f.svc.Get(ctx, res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusExpired, got.Status)

	// A second sweep finds nothing and releases nothing.
	reaped, err = f.svc.ReapExpired(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, reaped)
	assert.Equal(t, uint32(20), f.available(t, 10))
}

func TestReapSkipsClaimedReservations(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, err := f.svc.Open(ctx, 1, []model.ReservationItem{{ClassID: 10, Quantity: 2}})
	require.NoError(t, err)

	// A claim converts the hold just before the sweep runs; the
	// reaper must leave the claimed hold and its capacity alone.
	require.NoError(t, f.res.MarkClaimed(ctx, res.ID, f.now))

	f.now = f.now.Add(16 * time.Minute)
	reaped, err := f.svc.ReapExpired(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, reaped)
	assert.Equal(t, uint32(18), f.available(t, 10))
}

package repository

import (
	"context"
	"database/sql"

	"github.com/harborline/ferry-reservation/internal/model"
)

// ScheduleRepo reads sailing rows. Schedules are written by the
// excluded admin surface; this engine only needs lookups.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a ScheduleRepo bound to the provided database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

var _ ScheduleStore = (*ScheduleRepo)(nil)

// ByID loads one schedule.
func (r *ScheduleRepo) ByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	var s model.Schedule
	err := r.db.QueryRowContext(ctx,
		`SELECT id, ship_id, route_id, departs_at, arrives_at, status, created_at
		   FROM schedules WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.ShipID, &s.RouteID, &s.DepartsAt, &s.ArrivesAt, &s.Status, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ShipByID loads one ship.
func (r *ScheduleRepo) ShipByID(ctx context.Context, id uint64) (*model.Ship, error) {
	var s model.Ship
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, name, created_at FROM ships WHERE id = ?`, id,
	).Scan(&s.ID, &s.Code, &s.Name, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrReferenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RouteByID loads one route.
func (r *ScheduleRepo) RouteByID(ctx context.Context, id uint64) (*model.Route, error) {
	var rt model.Route
	err := r.db.QueryRowContext(ctx,
		`SELECT id, origin_harbor_id, destination_harbor_id, duration_minutes, created_at
		   FROM routes WHERE id = ?`, id,
	).Scan(&rt.ID, &rt.OriginHarborID, &rt.DestinationHarborID, &rt.DurationMinutes, &rt.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrReferenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

// HarborByID loads one harbor.
func (r *ScheduleRepo) HarborByID(ctx context.Context, id uint64) (*model.Harbor, error) {
	var h model.Harbor
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, city, created_at FROM harbors WHERE id = ?`, id,
	).Scan(&h.ID, &h.Name, &h.City, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrReferenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// FareClassRepo reads fare class rows for price and kind lookups at
// claim time.
type FareClassRepo struct {
	db *sql.DB
}

// NewFareClassRepo returns a FareClassRepo bound to the provided database.
func NewFareClassRepo(db *sql.DB) *FareClassRepo { return &FareClassRepo{db: db} }

var _ FareClassStore = (*FareClassRepo)(nil)

// ByID loads one fare class.
func (r *FareClassRepo) ByID(ctx context.Context, id uint64) (*model.FareClass, error) {
	var fc model.FareClass
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, name, kind, price_cents, created_at
		   FROM fare_classes WHERE id = ?`,
		id,
	).Scan(&fc.ID, &fc.Code, &fc.Name, &fc.Kind, &fc.PriceCents, &fc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrClassNotFound
	}
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

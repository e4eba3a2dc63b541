package repository

import (
	"context"
	"database/sql"

	"github.com/harborline/ferry-reservation/internal/model"
)

// CapacityRepo implements CapacityLedger on MySQL. Atomicity per
// (schedule, class) key comes from single-statement conditional
// updates: the availability check and the decrement happen inside one
// UPDATE, so concurrent callers serialize on the row lock and a
// shortfall applies no change at all.
type CapacityRepo struct {
	db *sql.DB
}

// NewCapacityRepo returns a CapacityRepo bound to the provided database.
func NewCapacityRepo(db *sql.DB) *CapacityRepo { return &CapacityRepo{db: db} }

var _ CapacityLedger = (*CapacityRepo)(nil)

// Reserve debits qty units from the class in one atomic step.
func (r *CapacityRepo) Reserve(ctx context.Context, scheduleID, classID uint64, qty uint32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE class_capacity
		    SET available_capacity = available_capacity - ?
		  WHERE schedule_id = ? AND class_id = ? AND available_capacity >= ?`,
		qty, scheduleID, classID, qty,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is missing or availability fell short.
		if exists, err := r.exists(ctx, scheduleID, classID); err != nil {
			return err
		} else if !exists {
			return ErrCapacityNotFound
		}
		return ErrInsufficientCapacity
	}
	return nil
}

// Release credits qty units back, refusing any credit that would push
// availability past total. A refused credit means a debit/credit
// pairing was lost somewhere; the caller logs it as a fault.
func (r *CapacityRepo) Release(ctx context.Context, scheduleID, classID uint64, qty uint32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE class_capacity
		    SET available_capacity = available_capacity + ?
		  WHERE schedule_id = ? AND class_id = ? AND available_capacity + ? <= total_capacity`,
		qty, scheduleID, classID, qty,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if exists, err := r.exists(ctx, scheduleID, classID); err != nil {
			return err
		} else if !exists {
			return ErrCapacityNotFound
		}
		return ErrCapacityOverflow
	}
	return nil
}

// Available reads the current availability for one class.
func (r *CapacityRepo) Available(ctx context.Context, scheduleID, classID uint64) (uint32, error) {
	var avail uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT available_capacity FROM class_capacity WHERE schedule_id = ? AND class_id = ?`,
		scheduleID, classID,
	).Scan(&avail)
	if err == sql.ErrNoRows {
		return 0, ErrCapacityNotFound
	}
	if err != nil {
		return 0, err
	}
	return avail, nil
}

// BySchedule lists all ledger rows for a sailing ordered by class.
func (r *CapacityRepo) BySchedule(ctx context.Context, scheduleID uint64) ([]model.ClassCapacity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT schedule_id, class_id, total_capacity, available_capacity
		   FROM class_capacity WHERE schedule_id = ? ORDER BY class_id`,
		scheduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ClassCapacity
	for rows.Next() {
		var cc model.ClassCapacity
		if err := rows.Scan(&cc.ScheduleID, &cc.ClassID, &cc.Total, &cc.Available); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (r *CapacityRepo) exists(ctx context.Context, scheduleID, classID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM class_capacity WHERE schedule_id = ? AND class_id = ?`,
		scheduleID, classID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/harborline/ferry-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations and
// reservation_items tables. Status transitions are expressed as
// conditional updates so that exactly one of a racing claim, cancel
// or reaper sweep wins; the losers observe zero affected rows and are
// handed ErrConflict to resolve against a re-read.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the provided database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

var _ ReservationStore = (*ReservationRepo)(nil)

// NewSessionToken generates the opaque token handed to the client when
// a hold opens. 32 random bytes hex-encoded; crypto/rand so tokens are
// not guessable.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create inserts the reservation row and its items in one transaction
// and populates the generated IDs. The caller has already debited the
// ledger; a failed insert is rolled back here and the caller credits
// the ledger back.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	out, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (session_token, schedule_id, status, expires_at)
		 VALUES (?, ?, ?, ?)`,
		res.SessionToken, res.ScheduleID, res.Status, res.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	for i := range res.Items {
		res.Items[i].ReservationID = res.ID
		itemOut, err := tx.ExecContext(ctx,
			`INSERT INTO reservation_items (reservation_id, class_id, quantity) VALUES (?, ?, ?)`,
			res.ID, res.Items[i].ClassID, res.Items[i].Quantity,
		)
		if err != nil {
			return err
		}
		itemID, err := itemOut.LastInsertId()
		if err != nil {
			return err
		}
		res.Items[i].ID = uint64(itemID)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ByToken loads a reservation and its items by session token.
func (r *ReservationRepo) ByToken(ctx context.Context, token string) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_token, schedule_id, status, expires_at, created_at
		   FROM reservations WHERE session_token = ?`,
		token,
	).Scan(&res.ID, &res.SessionToken, &res.ScheduleID, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.itemsFor(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	res.Items = items
	return &res, nil
}

// MarkClaimed flips ACTIVE -> CLAIMED for a hold that is still inside
// its window as of now.
func (r *ReservationRepo) MarkClaimed(ctx context.Context, id uint64, now time.Time) error {
	return r.cas(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = ? AND expires_at > ?`,
		model.ReservationStatusClaimed, id, model.ReservationStatusActive,
		now.UTC().Format("2006-01-02 15:04:05"),
	)
}

// MarkExpired flips ACTIVE -> EXPIRED for a hold whose window has
// passed as of now. Used only by the reaper.
func (r *ReservationRepo) MarkExpired(ctx context.Context, id uint64, now time.Time) error {
	return r.cas(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = ? AND expires_at <= ?`,
		model.ReservationStatusExpired, id, model.ReservationStatusActive,
		now.UTC().Format("2006-01-02 15:04:05"),
	)
}

// MarkCancelled flips ACTIVE -> CANCELLED on customer request.
func (r *ReservationRepo) MarkCancelled(ctx context.Context, id uint64) error {
	return r.cas(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = ?`,
		model.ReservationStatusCancelled, id, model.ReservationStatusActive,
	)
}

// ExpiredActive lists up to limit ACTIVE reservations past expiry,
// oldest first, items included.
func (r *ReservationRepo) ExpiredActive(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_token, schedule_id, status, expires_at, created_at
		   FROM reservations
		  WHERE status = ? AND expires_at <= ?
		  ORDER BY expires_at ASC
		  LIMIT ?`,
		model.ReservationStatusActive, now.UTC().Format("2006-01-02 15:04:05"), limit,
	)
	if err != nil {
		return nil, err
	}
	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.SessionToken, &res.ScheduleID, &res.Status, &res.ExpiresAt, &res.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.itemsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *ReservationRepo) itemsFor(ctx context.Context, reservationID uint64) ([]model.ReservationItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, reservation_id, class_id, quantity
		   FROM reservation_items WHERE reservation_id = ? ORDER BY id`,
		reservationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.ReservationItem
	for rows.Next() {
		var it model.ReservationItem
		if err := rows.Scan(&it.ID, &it.ReservationID, &it.ClassID, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *ReservationRepo) cas(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

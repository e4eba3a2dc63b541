package repository

import (
	"context"
	"database/sql"

	"github.com/harborline/ferry-reservation/internal/model"
)

// BookingRepo provides data access to the bookings and tickets
// tables. The booking row and all ticket rows are written in a single
// transaction so a booking can never exist with a partial ticket set.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

var _ BookingStore = (*BookingRepo)(nil)

// Create inserts the booking and its tickets and populates generated IDs.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
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
		`INSERT INTO bookings
		   (order_id, reservation_id, schedule_id, contact_name, contact_email, contact_phone,
		    status, capacity_released, payment_deadline)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		b.OrderID, b.ReservationID, b.ScheduleID, b.ContactName, b.ContactEmail, b.ContactPhone,
		b.Status, b.PaymentDeadline.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	for i := range b.Tickets {
		b.Tickets[i].BookingID = b.ID
		tOut, err := tx.ExecContext(ctx,
			`INSERT INTO tickets
			   (booking_id, class_id, kind, passenger_name, identity_no, plate_no, price_cents, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Tickets[i].ClassID, b.Tickets[i].Kind, b.Tickets[i].PassengerName,
			b.Tickets[i].IdentityNo, b.Tickets[i].PlateNo, b.Tickets[i].PriceCents, b.Tickets[i].Status,
		)
		if err != nil {
			return err
		}
		tID, err := tOut.LastInsertId()
		if err != nil {
			return err
		}
		b.Tickets[i].ID = uint64(tID)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ByOrderID loads a booking and its tickets by the external order id.
func (r *BookingRepo) ByOrderID(ctx context.Context, orderID string) (*model.Booking, error) {
	return r.one(ctx, `WHERE order_id = ?`, orderID)
}

// ByID loads a booking and its tickets by primary key.
func (r *BookingRepo) ByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.one(ctx, `WHERE id = ?`, id)
}

func (r *BookingRepo) one(ctx context.Context, where string, arg interface{}) (*model.Booking, error) {
	var b model.Booking
	var released int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, reservation_id, schedule_id, contact_name, contact_email, contact_phone,
		        status, capacity_released, payment_deadline, created_at, updated_at
		   FROM bookings `+where,
		arg,
	).Scan(&b.ID, &b.OrderID, &b.ReservationID, &b.ScheduleID, &b.ContactName, &b.ContactEmail,
		&b.ContactPhone, &b.Status, &released, &b.PaymentDeadline, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	b.CapacityReleased = released != 0
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, booking_id, class_id, kind, passenger_name, identity_no, plate_no,
		        price_cents, status, created_at
		   FROM tickets WHERE booking_id = ? ORDER BY id`,
		b.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.BookingID, &t.ClassID, &t.Kind, &t.PassengerName,
			&t.IdentityNo, &t.PlateNo, &t.PriceCents, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		b.Tickets = append(b.Tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkPaid flips PENDING_PAYMENT -> PAID.
func (r *BookingRepo) MarkPaid(ctx context.Context, id uint64) error {
	return r.cas(ctx, id, model.BookingStatusPendingPayment, model.BookingStatusPaid)
}

// MarkFailed flips PENDING_PAYMENT -> FAILED.
func (r *BookingRepo) MarkFailed(ctx context.Context, id uint64) error {
	return r.cas(ctx, id, model.BookingStatusPendingPayment, model.BookingStatusFailed)
}

// MarkCapacityReleased flips the release guard and reports whether
// this caller performed the flip. Repeated failure callbacks call
// this and only the first winner credits the ledger.
func (r *BookingRepo) MarkCapacityReleased(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET capacity_released = 1 WHERE id = ? AND capacity_released = 0`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// TicketByID loads one ticket.
func (r *BookingRepo) TicketByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	err := r.db.QueryRowContext(ctx,
		`SELECT id, booking_id, class_id, kind, passenger_name, identity_no, plate_no,
		        price_cents, status, created_at
		   FROM tickets WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.BookingID, &t.ClassID, &t.Kind, &t.PassengerName, &t.IdentityNo,
		&t.PlateNo, &t.PriceCents, &t.Status, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkTicketCheckedIn flips BOOKED -> CHECKED_IN.
func (r *BookingRepo) MarkTicketCheckedIn(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET status = ? WHERE id = ? AND status = ?`,
		model.TicketStatusCheckedIn, id, model.TicketStatusBooked,
	)
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

func (r *BookingRepo) cas(ctx context.Context, id uint64, from, to string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND status = ?`,
		to, id, from,
	)
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

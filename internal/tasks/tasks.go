// Package tasks runs the engine's background work on asynq: the
// periodic expiry reaper that reclaims capacity from lapsed holds,
// and one deadline task per booking that fails it when the payment
// window closes unpaid.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeReservationReap is the periodic sweep over expired ACTIVE
	// reservations.
	TypeReservationReap = "reservation:reap"
	// TypePaymentDeadline enforces one booking's payment window.
	TypePaymentDeadline = "payment:deadline"
)

// ReapPayload parameterises one reaper run.
type ReapPayload struct {
	Batch int `json:"batch"`
}

// PaymentDeadlinePayload identifies the booking whose window to enforce.
type PaymentDeadlinePayload struct {
	BookingID uint64 `json:"booking_id"`
}

// NewReapTask builds the periodic reaper task.
func NewReapTask(batch int) (*asynq.Task, error) {
	payload, err := json.Marshal(ReapPayload{Batch: batch})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReservationReap, payload), nil
}

// NewPaymentDeadlineTask builds a deadline task for one booking.
func NewPaymentDeadlineTask(bookingID uint64) (*asynq.Task, error) {
	payload, err := json.Marshal(PaymentDeadlinePayload{BookingID: bookingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePaymentDeadline, payload), nil
}

// Client enqueues booking deadline tasks. It implements
// service.DeadlineScheduler.
type Client struct {
	client *asynq.Client
}

// NewClient wraps an asynq client.
func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

// ScheduleDeadline enqueues the payment-deadline task to fire at the
// booking's deadline.
func (c *Client) ScheduleDeadline(_ context.Context, bookingID uint64, at time.Time) error {
	task, err := NewPaymentDeadlineTask(bookingID)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.ProcessAt(at), asynq.MaxRetry(3))
	return err
}

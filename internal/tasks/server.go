package tasks

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/harborline/ferry-reservation/internal/service"
)

// Handlers binds the background tasks to the services doing the work.
type Handlers struct {
	Reservations *service.ReservationService
	Payments     *service.PaymentService
	ReapBatch    int
}

// HandleReservationReap runs one reaper sweep.
func (h *Handlers) HandleReservationReap(ctx context.Context, t *asynq.Task) error {
	var payload ReapPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	batch := payload.Batch
	if batch <= 0 {
		batch = h.ReapBatch
	}
	reaped, err := h.Reservations.ReapExpired(ctx, batch)
	if err != nil {
		return err
	}
	if reaped > 0 {
		log.Printf("reaper: released %d expired reservation(s)", reaped)
	}
	return nil
}

// HandlePaymentDeadline enforces one booking's payment window.
func (h *Handlers) HandlePaymentDeadline(ctx context.Context, t *asynq.Task) error {
	var payload PaymentDeadlinePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	return h.Payments.EnforceDeadline(ctx, payload.BookingID)
}

// StartServer runs the asynq worker and the scheduler that fires the
// reaper every minute. It blocks; run it in a goroutine next to the
// HTTP server.
func StartServer(redisOpt asynq.RedisClientOpt, h *Handlers) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReservationReap, h.HandleReservationReap)
	mux.HandleFunc(TypePaymentDeadline, h.HandlePaymentDeadline)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	reapTask, err := NewReapTask(h.ReapBatch)
	if err != nil {
		log.Fatal("build reap task:", err)
	}
	if _, err := scheduler.Register("*/1 * * * *", reapTask); err != nil {
		log.Fatal("register reap schedule:", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatal("scheduler failed to start:", err)
		}
	}()

	if err := srv.Run(mux); err != nil {
		log.Fatal("asynq server failed to start:", err)
	}
}

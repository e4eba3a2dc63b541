// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingPaidEvent is published when a verified provider callback
// settles a booking. It carries enough for downstream consumers to
// log, notify or feed dashboards without querying the primary
// database.
type BookingPaidEvent struct {
	BookingID   uint64 `json:"booking_id"`
	OrderID     string `json:"order_id"`
	ScheduleID  uint64 `json:"schedule_id"`
	Channel     string `json:"channel"`
	Reference   string `json:"reference"`
	AmountCents uint32 `json:"amount_cents"`
	TicketCount int    `json:"ticket_count"`
	PaidAt      string `json:"paid_at"`
}

package model

import "time"

// Harbor is a port of call that routes depart from or arrive at.
// Harbor records are managed outside this service and read here only
// to resolve route endpoints for display.
type Harbor struct {
	ID        uint64    // harbors.id
	Name      string    // harbors.name
	City      string    // harbors.city
	CreatedAt time.Time // harbors.created_at
}

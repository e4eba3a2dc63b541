package model

import "time"

// Schedule statuses.  A schedule is immutable once tickets are sold
// against it except for operational status changes.
const (
	ScheduleStatusScheduled = "SCHEDULED"
	ScheduleStatusDeparted  = "DEPARTED"
	ScheduleStatusCancelled = "CANCELLED"
)

// Schedule identifies a single sailing of a ship on a route.
//
// Fields:
//  ID        – primary key identifier.
//  ShipID    – vessel sailing this crossing.
//  RouteID   – route being sailed.
//  DepartsAt – departure timestamp (UTC).
//  ArrivesAt – scheduled arrival timestamp (UTC).
//  Status    – operational status (SCHEDULED, DEPARTED, CANCELLED).
//  CreatedAt – creation timestamp.
type Schedule struct {
	ID        uint64    // schedules.id
	ShipID    uint64    // schedules.ship_id
	RouteID   uint64    // schedules.route_id
	DepartsAt time.Time // schedules.departs_at
	ArrivesAt time.Time // schedules.arrives_at
	Status    string    // schedules.status
	CreatedAt time.Time // schedules.created_at
}

// Open reports whether holds may still be opened against this sailing.
func (s *Schedule) Open() bool {
	return s.Status == ScheduleStatusScheduled
}

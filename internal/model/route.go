package model

import "time"

// Route links an origin harbor to a destination harbor.  Routes are
// reference data owned by the excluded admin surface; the engine only
// reads them when describing a schedule.
type Route struct {
	ID                  uint64    // routes.id
	OriginHarborID      uint64    // routes.origin_harbor_id
	DestinationHarborID uint64    // routes.destination_harbor_id
	DurationMinutes     uint32    // routes.duration_minutes (nominal crossing time)
	CreatedAt           time.Time // routes.created_at
}

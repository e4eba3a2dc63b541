package model

import "time"

// Ship identifies a vessel that sails scheduled crossings.  Per-class
// passenger and vehicle capacity is not stored on the ship itself; it
// is materialised per sailing in class_capacity when a schedule is
// published, so that one vessel can sail different configurations.
type Ship struct {
	ID        uint64    // ships.id
	Code      string    // ships.code (short operator code, e.g. "KMP-DHARMA-II")
	Name      string    // ships.name
	CreatedAt time.Time // ships.created_at
}

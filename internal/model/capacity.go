package model

// ClassCapacity is one row of the capacity ledger: the authoritative
// count of units still available for a (schedule, class) pair.  The
// invariant 0 <= Available <= Total holds at all times; the ledger is
// the only writer of the available column and every decrement and
// increment goes through it as a single conditional update.
type ClassCapacity struct {
	ScheduleID uint64 // class_capacity.schedule_id
	ClassID    uint64 // class_capacity.class_id
	Total      uint32 // class_capacity.total_capacity
	Available  uint32 // class_capacity.available_capacity
}

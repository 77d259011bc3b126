package model

import (
	"encoding/json"
	"time"
)

// Task names the scheduler knows how to run.
const (
	TaskCloudSync           = "cloud_sync"
	TaskReservationRollover = "reservation_rollover"
	TaskListingsCacheWarm   = "listings_cache_warm"
)

// ScheduledTask is a recurring background task. A task is due when it has
// never been queued or when last_queued_at + interval has passed.
type ScheduledTask struct {
	ID           string
	TaskName     string
	Payload      json.RawMessage
	Interval     time.Duration
	LastQueuedAt *time.Time
	UpdatedAt    time.Time
}

// Due reports whether the task should fire at the given instant.
func (t ScheduledTask) Due(now time.Time) bool {
	if t.LastQueuedAt == nil {
		return true
	}
	return !t.LastQueuedAt.Add(t.Interval).After(now)
}

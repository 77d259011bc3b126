// Package sync pushes locally changed rows to the cloud document store.
//
// Tables sync in a fixed parent-first order. Progress is published through a
// Tracker that HTTP handlers read as a snapshot or long-poll via Subscribe.
package sync

import (
	stdsync "sync"
	"time"

	"github.com/dealerops/rentd/internal/domain/model"
)

// Tracker holds the progress record of the current (or last) sync run and
// notifies subscribers on every update.
type Tracker struct {
	now func() time.Time

	mu       stdsync.Mutex
	progress model.SyncProgress
	subs     map[chan struct{}]struct{}
}

// NewTracker creates a Tracker using the wall clock.
func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock creates a Tracker with a custom clock (useful for tests).
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		now:  now,
		subs: make(map[chan struct{}]struct{}),
	}
}

// Snapshot returns a copy of the current progress record.
func (t *Tracker) Snapshot() model.SyncProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Subscribe registers for update notifications. The returned channel receives
// a signal on every progress change; call unsub when done.
func (t *Tracker) Subscribe() (func(), <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan struct{}, 1)
	t.subs[ch] = struct{}{}

	unsub := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subs[ch]; !ok {
			return
		}
		delete(t.subs, ch)
		drainAndClose(ch)
	}
	return unsub, ch
}

// Begin resets the record for a new run.
func (t *Tracker) Begin(tableCount, total int) {
	now := t.now().UTC()
	t.update(func(p *model.SyncProgress) {
		*p = model.SyncProgress{
			Running:    true,
			TableCount: tableCount,
			Total:      total,
			Message:    "starting sync",
			StartedAt:  now,
			UpdatedAt:  now,
		}
	})
}

// BeginTable records the start of one table's upload.
func (t *Tracker) BeginTable(tableIndex int, table string, itemCount int) {
	t.update(func(p *model.SyncProgress) {
		p.TableIndex = tableIndex
		p.Table = table
		p.ItemIndex = 0
		p.ItemCount = itemCount
		p.Message = "syncing " + table
	})
}

// Item records one uploaded row.
func (t *Tracker) Item(itemIndex, processed int) {
	t.update(func(p *model.SyncProgress) {
		p.ItemIndex = itemIndex
		p.Processed = processed
	})
}

// Finish marks the run complete.
func (t *Tracker) Finish(message string) {
	t.update(func(p *model.SyncProgress) {
		p.Running = false
		p.Errored = false
		p.Message = message
	})
}

// Fail marks the run aborted. The record keeps the table and item position
// where the failure happened.
func (t *Tracker) Fail(message string) {
	t.update(func(p *model.SyncProgress) {
		p.Running = false
		p.Errored = true
		p.Message = message
	})
}

func (t *Tracker) update(fn func(*model.SyncProgress)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fn(&t.progress)
	t.progress.UpdatedAt = t.now().UTC()

	for ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// drainAndClose removes any buffered notification before closing the channel
// so receivers observe a closed channel immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

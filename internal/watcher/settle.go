package watcher

import (
	"slices"
	"sync"
	"time"
)

// settleQueue holds profile files that changed recently. A file is due for
// import once it has gone quiet for the settle interval, so a spreadsheet
// saved in several writes is imported once.
type settleQueue struct {
	mu       sync.Mutex
	interval time.Duration
	lastSeen map[string]time.Time
}

func newSettleQueue(interval time.Duration) *settleQueue {
	return &settleQueue{interval: interval, lastSeen: make(map[string]time.Time)}
}

// touch records a change to path at now, pushing its import back.
func (q *settleQueue) touch(path string, now time.Time) {
	q.mu.Lock()
	q.lastSeen[path] = now
	q.mu.Unlock()
}

// drop forgets path, e.g. because it was deleted before it settled.
func (q *settleQueue) drop(path string) {
	q.mu.Lock()
	delete(q.lastSeen, path)
	q.mu.Unlock()
}

// due removes and returns the files quiet since at least now-interval, sorted
// so a batch of class files imports in a stable order.
func (q *settleQueue) due(now time.Time) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var ready []string
	for path, seen := range q.lastSeen {
		if now.Sub(seen) >= q.interval {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(q.lastSeen, path)
	}
	slices.Sort(ready)
	return ready
}

func (q *settleQueue) clear() {
	q.mu.Lock()
	clear(q.lastSeen)
	q.mu.Unlock()
}

func (q *settleQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lastSeen)
}

// pollInterval is how often the run loop checks for settled files.
func pollInterval(settle time.Duration) time.Duration {
	return max(settle/4, 5*time.Millisecond)
}

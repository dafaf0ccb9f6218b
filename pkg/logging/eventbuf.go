package logging

import (
	"strings"
	"sync"
	"time"
)

// Event is one workspace operation or captured log line stored in the
// event buffer.
type Event struct {
	Time   time.Time `json:"time"`
	Op     string    `json:"op"`     // "put", "remove", "compare", "synthesize", "log", ...
	Target string    `json:"target"` // configuration name(s) the operation touched
	Detail string    `json:"detail"`
	Level  string    `json:"level"` // "info", "warn", "error"
}

// EventBuffer is a thread-safe circular buffer for recent events.
type EventBuffer struct {
	mu    sync.RWMutex
	buf   []Event
	size  int
	head  int    // next write position
	count int    // number of events stored
	seq   uint64 // monotonically increasing sequence number

	subMu sync.RWMutex
	subs  map[*Subscription]struct{}
}

// Subscription receives new events from an EventBuffer.
type Subscription struct {
	C  chan Event
	eb *EventBuffer
}

// Close unsubscribes and stops delivery to C.
func (s *Subscription) Close() {
	s.eb.unsubscribe(s)
}

// NewEventBuffer creates a new event buffer with the given capacity.
func NewEventBuffer(size int) *EventBuffer {
	return &EventBuffer{
		buf:  make([]Event, size),
		size: size,
		subs: make(map[*Subscription]struct{}),
	}
}

// Add appends an event to the buffer, overwriting the oldest if full.
// Subscribers are notified non-blocking.
func (eb *EventBuffer) Add(ev Event) {
	eb.mu.Lock()
	eb.buf[eb.head] = ev
	eb.head = (eb.head + 1) % eb.size
	if eb.count < eb.size {
		eb.count++
	}
	eb.seq++
	eb.mu.Unlock()

	eb.subMu.RLock()
	for sub := range eb.subs {
		select {
		case sub.C <- ev:
		default: // drop if subscriber is slow
		}
	}
	eb.subMu.RUnlock()
}

// Subscribe returns a Subscription that receives new events.
// Call Close() on the subscription when done.
func (eb *EventBuffer) Subscribe(bufSize int) *Subscription {
	if bufSize < 1 {
		bufSize = 64
	}
	sub := &Subscription{
		C:  make(chan Event, bufSize),
		eb: eb,
	}
	eb.subMu.Lock()
	eb.subs[sub] = struct{}{}
	eb.subMu.Unlock()
	return sub
}

func (eb *EventBuffer) unsubscribe(sub *Subscription) {
	eb.subMu.Lock()
	delete(eb.subs, sub)
	eb.subMu.Unlock()
}

// EventFilter specifies criteria for filtering events.
type EventFilter struct {
	Op     string // case-insensitive substring match on Op
	Target string // case-insensitive substring match on Target
	Level  string // case-insensitive substring match on Level
}

// IsEmpty returns true if no filter criteria are set.
func (f EventFilter) IsEmpty() bool {
	return f.Op == "" && f.Target == "" && f.Level == ""
}

func (f EventFilter) matches(ev *Event) bool {
	if f.Op != "" && !strings.Contains(strings.ToLower(ev.Op), strings.ToLower(f.Op)) {
		return false
	}
	if f.Target != "" && !strings.Contains(strings.ToLower(ev.Target), strings.ToLower(f.Target)) {
		return false
	}
	if f.Level != "" && !strings.Contains(strings.ToLower(ev.Level), strings.ToLower(f.Level)) {
		return false
	}
	return true
}

// LatestFiltered returns the most recent n events matching the filter,
// newest first.
func (eb *EventBuffer) LatestFiltered(n int, f EventFilter) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	var result []Event
	for i := 0; i < eb.count && len(result) < n; i++ {
		idx := (eb.head - 1 - i + eb.size) % eb.size
		if f.matches(&eb.buf[idx]) {
			result = append(result, eb.buf[idx])
		}
	}
	return result
}

// Latest returns the most recent n events, newest first.
func (eb *EventBuffer) Latest(n int) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if n > eb.count {
		n = eb.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Event, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recent entry
		idx := (eb.head - 1 - i + eb.size) % eb.size
		result[i] = eb.buf[idx]
	}
	return result
}

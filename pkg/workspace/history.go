package workspace

import (
	"fmt"
	"time"
)

// OpRecord is one recorded workspace operation.
type OpRecord struct {
	Seq    uint64    `json:"seq"`
	Time   time.Time `json:"time"`
	Op     string    `json:"op"`
	Args   []string  `json:"args,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

// History is a ring buffer of recent operations.
type History struct {
	entries []*OpRecord
	maxSize int
	nextSeq uint64
}

// NewHistory creates a new History with the given maximum size.
func NewHistory(maxSize int) *History {
	return &History{
		maxSize: maxSize,
	}
}

// Push appends a record, assigning its sequence number, and drops the
// oldest entry once past capacity.
func (h *History) Push(rec *OpRecord) {
	h.nextSeq++
	rec.Seq = h.nextSeq
	h.entries = append(h.entries, rec)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[1:]
	}
}

// Get returns the nth most recent record (0 = most recent).
func (h *History) Get(n int) (*OpRecord, error) {
	if n < 0 || n >= len(h.entries) {
		return nil, fmt.Errorf("history %d: no such operation (have %d entries)",
			n, len(h.entries))
	}
	// entries are stored oldest-first, so index from the end
	idx := len(h.entries) - 1 - n
	return h.entries[idx], nil
}

// Len returns the number of history entries.
func (h *History) Len() int {
	return len(h.entries)
}

// MaxSize returns the maximum number of history entries.
func (h *History) MaxSize() int {
	return h.maxSize
}

// List returns all history entries, most recent first.
func (h *History) List() []*OpRecord {
	result := make([]*OpRecord, len(h.entries))
	for i, entry := range h.entries {
		result[len(h.entries)-1-i] = entry
	}
	return result
}

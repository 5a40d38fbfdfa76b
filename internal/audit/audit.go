// Package audit keeps a structured trail of commit/abort decisions:
// every gate outcome, with enough detail to explain why a transaction
// was let through or aborted.
//
// Grounded on the teacher's security.AuditLogger: a typed EventType
// plus a free-form Details map, emitted through one sink. Adapted from
// an append-only file sink (durable storage is a Non-goal here) to a
// structured slog sink backed by an in-memory ring of the most recent
// decisions, which dump-adjacent tooling and tests can inspect without
// touching disk.
package audit

import (
	"log/slog"

	"github.com/kartikbazzad/adbssi/internal/logging"
)

// EventType classifies one audit entry.
type EventType string

const (
	EventCommitted EventType = "committed"
	EventAborted   EventType = "aborted"
	EventWaiting   EventType = "waiting"
	EventSiteFail  EventType = "site_fail"
	EventSiteUp    EventType = "site_recover"
)

// Event is one audit trail entry.
type Event struct {
	Type    EventType
	Subject string
	Time    int64
	Details map[string]any
}

// Trail is a bounded, in-memory ring of recent decisions plus a sink
// that logs each one as it's recorded.
type Trail struct {
	cap     int
	entries []Event
	log     *slog.Logger
}

// New creates a Trail retaining up to capacity entries (0 means
// unbounded, fine for a single script run).
func New(capacity int) *Trail {
	return &Trail{cap: capacity, log: logging.Get()}
}

// Record appends an event, logs it, and trims the ring if it has a
// fixed capacity.
func (t *Trail) Record(e Event) {
	t.entries = append(t.entries, e)
	if t.cap > 0 && len(t.entries) > t.cap {
		t.entries = t.entries[len(t.entries)-t.cap:]
	}

	args := make([]any, 0, 2+2*len(e.Details))
	args = append(args, "subject", e.Subject, "t", e.Time)
	for k, v := range e.Details {
		args = append(args, k, v)
	}
	t.log.Info(string(e.Type), args...)
}

// Entries returns a copy of the current trail, oldest first.
func (t *Trail) Entries() []Event {
	out := make([]Event, len(t.entries))
	copy(out, t.entries)
	return out
}

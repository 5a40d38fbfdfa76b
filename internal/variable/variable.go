// Package variable implements the versioned cell at the bottom of the
// simulator: a current tentative value plus an append-only history of
// committed (timestamp, value) snapshots, strictly increasing in
// timestamp.
//
// Grounded on the teacher's mvcc package (Version/VersionManager): a
// version chain walked newest-first to find the value visible to a
// given snapshot. Adapted from a linked list keyed by wall-clock
// nanoseconds into a slice keyed by the driver's logical clock, since
// there is no garbage collection here (a fixed 20 variables) and no
// real time (clock synchronization is a Non-goal).
package variable

import (
	"errors"
	"fmt"
)

// ErrNoSnapshot is returned when no snapshot exists strictly before
// the requested timestamp.
var ErrNoSnapshot = errors.New("variable: no snapshot before requested time")

// ErrInvariant marks a violated internal invariant (e.g. a commit at a
// timestamp that does not exceed the last snapshot's).
var ErrInvariant = errors.New("variable: invariant violated")

// Snapshot is a single committed (timestamp, value) pair in a
// variable's history.
type Snapshot struct {
	Timestamp int64
	Value     int
}

// Variable is a versioned cell identified by an index in [1,20].
type Variable struct {
	Index     int
	tentative int
	history   []Snapshot
}

// New creates a variable seeded with (0, 10*index), per spec.
func New(index int) *Variable {
	seed := 10 * index
	return &Variable{
		Index:     index,
		tentative: seed,
		history:   []Snapshot{{Timestamp: 0, Value: seed}},
	}
}

// Name returns the script-facing name, e.g. "x7".
func (v *Variable) Name() string {
	return fmt.Sprintf("x%d", v.Index)
}

// ReadAsOf returns the value of the most recent snapshot strictly
// before t, or ErrNoSnapshot if none exists.
func (v *Variable) ReadAsOf(t int64) (int, error) {
	for i := len(v.history) - 1; i >= 0; i-- {
		if v.history[i].Timestamp < t {
			return v.history[i].Value, nil
		}
	}
	return 0, ErrNoSnapshot
}

// Reseed overwrites the initial (t=0) snapshot value. Only valid
// before any instruction has run against this variable.
func (v *Variable) Reseed(value int) {
	v.history[0].Value = value
	v.tentative = value
}

// TentativeSet records a proposed value without touching the history.
func (v *Variable) TentativeSet(value int) {
	v.tentative = value
}

// Tentative returns the current tentative value.
func (v *Variable) Tentative() int {
	return v.tentative
}

// Commit appends (t, value) to the snapshot history. t must exceed the
// timestamp of the last snapshot; violating that is treated as an
// implementation bug, not a normal abort path, per spec.
func (v *Variable) Commit(t int64, value int) error {
	if len(v.history) > 0 && t <= v.history[len(v.history)-1].Timestamp {
		return fmt.Errorf("%w: commit at t=%d does not exceed last snapshot t=%d for %s",
			ErrInvariant, t, v.history[len(v.history)-1].Timestamp, v.Name())
	}
	v.history = append(v.history, Snapshot{Timestamp: t, Value: value})
	v.tentative = value
	return nil
}

// MostRecentCommitTime returns the timestamp of the last snapshot, or
// math.MinInt64 if the history is somehow empty (never happens after
// New, which always seeds one entry).
func (v *Variable) MostRecentCommitTime() int64 {
	if len(v.history) == 0 {
		return minInt64
	}
	return v.history[len(v.history)-1].Timestamp
}

// CommittedBetween reports whether a snapshot exists with timestamp
// strictly in the open interval (t1, t2).
func (v *Variable) CommittedBetween(t1, t2 int64) bool {
	for _, s := range v.history {
		if s.Timestamp > t1 && s.Timestamp < t2 {
			return true
		}
	}
	return false
}

// LatestValue returns the most recently committed value (the last
// history entry), used by dump().
func (v *Variable) LatestValue() int {
	return v.history[len(v.history)-1].Value
}

const minInt64 = -1 << 63

// NumVariables is the fixed variable count, x1..x20, per spec.
const NumVariables = 20

// NumSites is the fixed site count, per spec.
const NumSites = 10

// IsEven reports whether a variable index is replicated on all sites.
func IsEven(index int) bool {
	return index%2 == 0
}

// HomeSite returns the single hosting site for an odd-indexed
// (single-copy) variable: 1 + (N mod 10).
func HomeSite(index int) int {
	return 1 + index%10
}

// HostedAt reports whether the site with the given id physically
// stores variable xN.
func HostedAt(index, siteID int) bool {
	if IsEven(index) {
		return true
	}
	return HomeSite(index) == siteID
}


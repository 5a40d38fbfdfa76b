// Package site implements the unit-of-failure abstraction: a Site
// wraps one DataManager with a status and failure/recovery timeline.
//
// Grounded on the teacher's storage.Pager (a struct owning one OS
// resource behind an explicit lifecycle) generalized to "owns a
// DataManager and a status enum", and on raft.State's enum-with-
// String() idiom for the status type.
package site

import "github.com/kartikbazzad/adbssi/internal/datamanager"

// Status is the lifecycle state of a site.
type Status int

const (
	Up Status = iota
	Down
	Recovered
)

func (s Status) String() string {
	switch s {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Recovered:
		return "RECOVERED"
	default:
		return "UNKNOWN"
	}
}

// Site is one of the 10 physical replicas.
type Site struct {
	ID     int
	Status Status
	DM     *datamanager.DataManager

	failureTimes  []int64
	recoveryTimes []int64
}

// New creates a site starting UP with timelines seeded at tick 0, per
// spec §3.
func New(id int) *Site {
	return &Site{
		ID:            id,
		Status:        Up,
		DM:            datamanager.New(id),
		failureTimes:  []int64{0},
		recoveryTimes: []int64{0},
	}
}

// Fail transitions the site to DOWN, records t in the failure
// timeline, and discards all tentative writes buffered at this site.
func (s *Site) Fail(t int64) {
	s.Status = Down
	s.failureTimes = append(s.failureTimes, t)
	s.DM.DiscardAll()
}

// Recover transitions the site to RECOVERED and records t in the
// recovery timeline. Replicated variables remain stale at this site
// until a fresh post-recovery commit lands (see DataManager.
// HadCommitBetween).
func (s *Site) Recover(t int64) {
	s.Status = Recovered
	s.recoveryTimes = append(s.recoveryTimes, t)
}

// MarkUp transitions a RECOVERED site implicitly to UP once it has
// accepted a committed write, per spec §3's recovery rationale.
func (s *Site) MarkUp() {
	if s.Status == Recovered {
		s.Status = Up
	}
}

// FailureTimes returns the read-only failure timeline.
func (s *Site) FailureTimes() []int64 {
	return s.failureTimes
}

// RecoveryTimes returns the read-only recovery timeline.
func (s *Site) RecoveryTimes() []int64 {
	return s.recoveryTimes
}

// LastRecoveryTime returns the most recent recovery timestamp, or
// negative infinity if the recovery timeline is empty. New seeds the
// timeline with 0, so a site that has never recovered reports 0.
func (s *Site) LastRecoveryTime() int64 {
	if len(s.recoveryTimes) == 0 {
		return minInt64
	}
	return s.recoveryTimes[len(s.recoveryTimes)-1]
}

const minInt64 = -1 << 63

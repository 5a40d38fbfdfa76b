// Package adbssi is the embeddable entry point to the simulator: wire
// up a Simulator, optionally seed it, feed it a script, and read back
// the dump.
//
// Grounded on the teacher's client.Client: a thin facade wrapping the
// engine behind a handful of verbs. The wire-protocol transport it
// used to reach a remote server is dropped (network transport is a
// Non-goal); everything here runs in-process.
package adbssi

import (
	"io"
	"log/slog"

	"github.com/kartikbazzad/adbssi/internal/audit"
	"github.com/kartikbazzad/adbssi/internal/coordinator"
	"github.com/kartikbazzad/adbssi/internal/driver"
	"github.com/kartikbazzad/adbssi/internal/initstate"
)

// Simulator runs one instruction script against a fresh set of sites
// and variables.
type Simulator struct {
	coord *coordinator.Coordinator
}

// Option configures a Simulator at construction time.
type Option func(*Simulator)

// WithAuditCapacity bounds the number of decisions retained in the
// simulator's audit trail (0, the default, keeps everything).
func WithAuditCapacity(n int) Option {
	return func(s *Simulator) {
		s.coord.WithAudit(audit.New(n))
	}
}

// WithLogger points the simulator's engine diagnostics at l (e.g. a
// logger annotated with a per-run correlation id via
// logging.WithRunID) instead of the global default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		s.coord.WithLogger(l)
	}
}

// New creates a Simulator with 10 fresh, UP sites and the default
// 10*N seed values.
func New(opts ...Option) *Simulator {
	s := &Simulator{coord: coordinator.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed validates and applies a JSON seed-override file (see
// internal/initstate for the schema) before any instruction runs.
func (s *Simulator) Seed(raw []byte) error {
	overrides, err := initstate.Parse(raw)
	if err != nil {
		return err
	}
	initstate.Apply(s.coord.Sites(), overrides)
	return nil
}

// Run parses and executes every instruction in script, writing any
// dump() output to w.
func (s *Simulator) Run(script io.Reader, w io.Writer) error {
	return driver.New(s.coord, w).Run(script)
}

// Dump renders the current state of every site.
func (s *Simulator) Dump() string {
	return s.coord.Dump()
}

// Coordinator exposes the underlying engine, for callers that need
// finer-grained access (tests, tooling) than Run/Dump provide.
func (s *Simulator) Coordinator() *coordinator.Coordinator {
	return s.coord
}

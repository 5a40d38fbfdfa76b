// Package driver parses an instruction script and dispatches each
// instruction to the coordinator, advancing a logical clock by one
// tick per instruction line (blank and comment-only lines do not tick).
//
// Grounded on the teacher's regexp-based validators (bun-kms's
// api.ValidateKeyName: one compiled pattern per shape, matched then
// its submatches parsed) generalized into one pattern per instruction
// kind, and on original_source/Simulator.py for the line-splitting and
// comment-stripping rules.
package driver

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/kartikbazzad/adbssi/internal/clock"
	"github.com/kartikbazzad/adbssi/internal/coordinator"
	"github.com/kartikbazzad/adbssi/internal/logging"
)

var (
	beginRe   = regexp.MustCompile(`^begin\(\s*T(\d+)\s*\)$`)
	readRe    = regexp.MustCompile(`^R\(\s*T(\d+)\s*,\s*x(\d+)\s*\)$`)
	writeRe   = regexp.MustCompile(`^W\(\s*T(\d+)\s*,\s*x(\d+)\s*,\s*(-?\d+)\s*\)$`)
	endRe     = regexp.MustCompile(`^end\(\s*T(\d+)\s*\)$`)
	failRe    = regexp.MustCompile(`^fail\(\s*(\d+)\s*\)$`)
	recoverRe = regexp.MustCompile(`^recover\(\s*(\d+)\s*\)$`)
	dumpRe    = regexp.MustCompile(`^dump\(\s*\)$`)
)

// Driver owns the logical clock and the coordinator it feeds.
type Driver struct {
	clock *clock.Clock
	coord *coordinator.Coordinator
	out   io.Writer
}

// New creates a Driver writing dump() output to out.
func New(coord *coordinator.Coordinator, out io.Writer) *Driver {
	return &Driver{clock: clock.New(), coord: coord, out: out}
}

// Run reads one instruction per line from r, ticking the clock and
// dispatching each to the coordinator. Unrecognized or malformed
// instructions are logged as diagnostics and do not stop processing.
// Returns an error only if reading the script itself failed.
func (d *Driver) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		d.clock.Tick()
		d.dispatch(line, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("driver: reading script: %w", err)
	}
	return nil
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}

func (d *Driver) dispatch(line string, lineNo int) {
	t := d.clock.Now()
	switch {
	case beginRe.MatchString(line):
		id := mustUint(beginRe.FindStringSubmatch(line)[1])
		d.coord.Begin(id, t)

	case readRe.MatchString(line):
		m := readRe.FindStringSubmatch(line)
		id, idx := mustUint(m[1]), mustInt(m[2])
		if _, _, err := d.coord.Read(id, idx, t); err != nil {
			logging.Warn("driver: read failed", "line", lineNo, "error", err)
		}

	case writeRe.MatchString(line):
		m := writeRe.FindStringSubmatch(line)
		id, idx, val := mustUint(m[1]), mustInt(m[2]), mustInt(m[3])
		if err := d.coord.Write(id, idx, val, t); err != nil {
			logging.Warn("driver: write failed", "line", lineNo, "error", err)
		}

	case endRe.MatchString(line):
		id := mustUint(endRe.FindStringSubmatch(line)[1])
		if err := d.coord.End(id, t); err != nil {
			logging.Warn("driver: end failed", "line", lineNo, "error", err)
		}

	case failRe.MatchString(line):
		s := mustInt(failRe.FindStringSubmatch(line)[1])
		if err := d.coord.Fail(s, t); err != nil {
			logging.Warn("driver: fail failed", "line", lineNo, "error", err)
		}

	case recoverRe.MatchString(line):
		s := mustInt(recoverRe.FindStringSubmatch(line)[1])
		if err := d.coord.Recover(s, t); err != nil {
			logging.Warn("driver: recover failed", "line", lineNo, "error", err)
		}

	case dumpRe.MatchString(line):
		fmt.Fprint(d.out, d.coord.Dump())

	default:
		logging.Warn("driver: unrecognized instruction", "line", lineNo, "text", line)
	}
}

func mustInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func mustUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

package adbssi

import (
	"fmt"
	"strings"
	"testing"
)

func TestSimulatorRunAndDump(t *testing.T) {
	s := New()
	script := "begin(T1)\nW(T1, x2, 42)\nend(T1)\ndump()\n"
	var out strings.Builder
	if err := s.Run(strings.NewReader(script), &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "x2: 42") {
		t.Errorf("dump missing committed write: %q", out.String())
	}
}

func TestSimulatorSeedOverride(t *testing.T) {
	s := New()
	if err := s.Seed([]byte(`{"x4": 4040}`)); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !strings.Contains(s.Dump(), "x4: 4040") {
		t.Errorf("dump missing seeded value: %q", s.Dump())
	}
}

// TestSerializabilitySelfCheck replays a fail/recover-free, conflict-free
// interleaved script and checks that its final dump matches the dump
// produced by running the same committed writes one transaction at a
// time, fully serially, in commit order — the round-trip property SSI
// is supposed to guarantee.
func TestSerializabilitySelfCheck(t *testing.T) {
	interleaved := New()
	script := strings.Join([]string{
		"begin(T1)",
		"begin(T2)",
		"begin(T3)",
		"W(T1, x2, 100)",
		"W(T2, x4, 200)",
		"W(T3, x6, 300)",
		"end(T1)",
		"end(T2)",
		"end(T3)",
	}, "\n")
	var discard strings.Builder
	if err := interleaved.Run(strings.NewReader(script), &discard); err != nil {
		t.Fatalf("Run (interleaved): %v", err)
	}
	want := interleaved.Dump()

	type committed struct {
		id         uint64
		commitTime int64
		writes     map[int]int
	}
	var txns []committed
	for id := uint64(1); id <= 3; id++ {
		tx, ok := interleaved.Coordinator().Transaction(id)
		if !ok || tx.Status.String() != "COMMITTED" {
			t.Fatalf("T%d did not commit: %+v", id, tx)
		}
		txns = append(txns, committed{id: id, commitTime: tx.CommitTime, writes: tx.TentativeWrites})
	}
	for i := 1; i < len(txns); i++ {
		for j := i; j > 0 && txns[j-1].commitTime > txns[j].commitTime; j-- {
			txns[j-1], txns[j] = txns[j], txns[j-1]
		}
	}

	var serial strings.Builder
	for _, tx := range txns {
		fmt.Fprintf(&serial, "begin(T%d)\n", tx.id)
		for varIndex, value := range tx.writes {
			fmt.Fprintf(&serial, "W(T%d, x%d, %d)\n", tx.id, varIndex, value)
		}
		fmt.Fprintf(&serial, "end(T%d)\n", tx.id)
	}

	replayed := New()
	if err := replayed.Run(strings.NewReader(serial.String()), &discard); err != nil {
		t.Fatalf("Run (serial replay): %v", err)
	}
	got := replayed.Dump()

	if got != want {
		t.Errorf("serial replay dump differs from interleaved dump:\ninterleaved:\n%s\nserial:\n%s", want, got)
	}
}

package driver

import (
	"strings"
	"testing"

	"github.com/kartikbazzad/adbssi/internal/coordinator"
)

func TestRunSimpleScript(t *testing.T) {
	c := coordinator.New()
	var out strings.Builder
	d := New(c, &out)

	script := `
		// comment line
		begin(T1)
		W(T1, x1, 101)
		end(T1)
		dump()
	`
	if err := d.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "x1: 101") {
		t.Errorf("dump output missing committed write: %q", out.String())
	}
}

func TestRunIgnoresUnrecognizedLine(t *testing.T) {
	c := coordinator.New()
	var out strings.Builder
	d := New(c, &out)

	script := "bogus(T1)\nbegin(T1)\nend(T1)\n"
	if err := d.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	tx, ok := c.Transaction(1)
	if !ok || tx.Status.String() != "COMMITTED" {
		t.Errorf("T1 should have committed despite the earlier bogus line, got %+v", tx)
	}
}

func TestRunWhitespaceInsensitive(t *testing.T) {
	c := coordinator.New()
	var out strings.Builder
	d := New(c, &out)

	script := "begin( T1 )\nW( T1 , x2 , 7 )\nend(T1)\n"
	if err := d.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	tx, ok := c.Transaction(1)
	if !ok || tx.Status.String() != "COMMITTED" {
		t.Errorf("expected T1 committed, got %+v", tx)
	}
}

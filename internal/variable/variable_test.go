package variable

import "testing"

func TestNewSeedsHistory(t *testing.T) {
	v := New(7)
	if v.Name() != "x7" {
		t.Errorf("Name() = %q, want x7", v.Name())
	}
	val, err := v.ReadAsOf(1)
	if err != nil {
		t.Fatalf("ReadAsOf(1): %v", err)
	}
	if val != 70 {
		t.Errorf("ReadAsOf(1) = %d, want 70", val)
	}
}

func TestReadAsOfStrictlyBefore(t *testing.T) {
	v := New(2)
	if err := v.Commit(5, 99); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if val, err := v.ReadAsOf(5); err != nil || val != 20 {
		t.Errorf("ReadAsOf(5) = (%d, %v), want (20, nil) — commit at 5 not visible to reader starting at 5", val, err)
	}
	if val, err := v.ReadAsOf(6); err != nil || val != 99 {
		t.Errorf("ReadAsOf(6) = (%d, %v), want (99, nil)", val, err)
	}
}

func TestReadAsOfNoSnapshot(t *testing.T) {
	v := New(1)
	if _, err := v.ReadAsOf(0); err != ErrNoSnapshot {
		t.Errorf("ReadAsOf(0) error = %v, want ErrNoSnapshot", err)
	}
}

func TestCommitMustExceedLastTimestamp(t *testing.T) {
	v := New(4)
	if err := v.Commit(0, 1); err == nil {
		t.Fatal("expected invariant violation committing at t=0 (== seed timestamp)")
	}
	if err := v.Commit(3, 30); err != nil {
		t.Fatalf("Commit(3, 30): %v", err)
	}
	if err := v.Commit(3, 31); err == nil {
		t.Fatal("expected invariant violation committing twice at the same tick")
	}
}

func TestCommittedBetween(t *testing.T) {
	v := New(6)
	if v.CommittedBetween(0, 100) {
		t.Error("seed-only history should not report a commit in (0,100) other than the seed at t=0 itself")
	}
	if err := v.Commit(10, 1); err != nil {
		t.Fatal(err)
	}
	if !v.CommittedBetween(5, 15) {
		t.Error("expected commit at t=10 to be reported in (5,15)")
	}
	if v.CommittedBetween(10, 15) {
		t.Error("commit at exactly t1=10 must not count (strict interval)")
	}
	if v.CommittedBetween(5, 10) {
		t.Error("commit at exactly t2=10 must not count (strict interval)")
	}
}

func TestMostRecentCommitTime(t *testing.T) {
	v := New(8)
	if v.MostRecentCommitTime() != 0 {
		t.Errorf("MostRecentCommitTime() = %d, want 0", v.MostRecentCommitTime())
	}
	_ = v.Commit(4, 1)
	if v.MostRecentCommitTime() != 4 {
		t.Errorf("MostRecentCommitTime() = %d, want 4", v.MostRecentCommitTime())
	}
}

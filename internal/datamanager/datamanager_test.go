package datamanager

import "testing"

func TestNewSeedsEvenAndOdd(t *testing.T) {
	dm := New(1) // site 1 hosts every even var; no odd var has home site 1 (that would need N % 10 == 0)
	if !dm.Has(2) {
		t.Error("site 1 should host x2 (even, replicated everywhere)")
	}
	if !dm.Has(10) {
		t.Error("site 1 should host x10 (even, replicated everywhere)")
	}
	if dm.Has(1) {
		t.Error("site 1 should not host x1 (home site is 1+(1%10)=2)")
	}
}

func TestStageThenCommit(t *testing.T) {
	dm := New(2)
	if err := dm.StageWrite(1, 999, 42); err != nil {
		t.Fatalf("StageWrite: %v", err)
	}
	if err := dm.CommitStaged(1, 5, 42); err != nil {
		t.Fatalf("CommitStaged: %v", err)
	}
	val, err := dm.SnapshotRead(1, 6)
	if err != nil || val != 999 {
		t.Errorf("SnapshotRead(1, 6) = (%d, %v), want (999, nil)", val, err)
	}
}

func TestDiscardStagedDropsWrite(t *testing.T) {
	dm := New(2)
	_ = dm.StageWrite(1, 999, 42)
	dm.DiscardStaged(42)
	if err := dm.CommitStaged(1, 5, 42); err != ErrNoStagedWrite {
		t.Errorf("CommitStaged after discard = %v, want ErrNoStagedWrite", err)
	}
}

func TestStageWriteLastWriteWins(t *testing.T) {
	dm := New(2)
	_ = dm.StageWrite(1, 1, 42)
	_ = dm.StageWrite(1, 2, 42)
	if err := dm.CommitStaged(1, 5, 42); err != nil {
		t.Fatalf("CommitStaged: %v", err)
	}
	val, _ := dm.SnapshotRead(1, 6)
	if val != 2 {
		t.Errorf("value = %d, want 2 (last write wins)", val)
	}
}

func TestNotResidentErrors(t *testing.T) {
	dm := New(2) // hosts x1 (home site 1+(1%10)=2) but not x3
	if err := dm.StageWrite(3, 1, 1); err != ErrNotResident {
		// x3 home site = 1+(3%10) = 4, so site 2 should not host it
		t.Errorf("StageWrite on non-resident x3 at site 2 = %v, want ErrNotResident", err)
	}
}

func TestHadCommitBetween(t *testing.T) {
	dm := New(2)
	if dm.HadCommitBetween(0, 100, 2) {
		t.Error("fresh variable should not report a commit strictly inside (0,100)")
	}
	_ = dm.StageWrite(2, 5, 1)
	_ = dm.CommitStaged(2, 50, 1)
	if !dm.HadCommitBetween(0, 100, 2) {
		t.Error("expected commit at t=50 to be reported in (0,100)")
	}
}

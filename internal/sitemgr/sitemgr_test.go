package sitemgr

import (
	"strings"
	"testing"

	"github.com/kartikbazzad/adbssi/internal/site"
)

func TestNewSeedsTenSites(t *testing.T) {
	sm := New()
	if len(sm.AllSites()) != 10 {
		t.Fatalf("AllSites() has %d entries, want 10", len(sm.AllSites()))
	}
	for i := 1; i <= 10; i++ {
		s, ok := sm.Site(i)
		if !ok || s.Status != site.Up {
			t.Errorf("site %d should exist and be UP", i)
		}
	}
}

func TestSitesHostingEvenIsAllTen(t *testing.T) {
	sm := New()
	hosts := sm.SitesHosting(4)
	if len(hosts) != 10 {
		t.Errorf("x4 should be hosted at all 10 sites, got %d", len(hosts))
	}
}

func TestSitesHostingOddIsOne(t *testing.T) {
	sm := New()
	hosts := sm.SitesHosting(3) // home site 1+(3%10)=4
	if len(hosts) != 1 || hosts[0].ID != 4 {
		t.Errorf("x3 should be hosted only at site 4, got %+v", hosts)
	}
}

func TestMarkFailedAndRecovered(t *testing.T) {
	sm := New()
	if err := sm.MarkFailed(2, 5); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	s, _ := sm.Site(2)
	if s.Status != site.Down {
		t.Errorf("site 2 status = %v, want Down", s.Status)
	}
	if err := sm.MarkRecovered(2, 10); err != nil {
		t.Fatalf("MarkRecovered: %v", err)
	}
	if s.Status != site.Recovered {
		t.Errorf("site 2 status = %v, want Recovered", s.Status)
	}
}

func TestFailureAndRecoveryTimesWrapper(t *testing.T) {
	sm := New()
	_ = sm.MarkFailed(5, 3)
	_ = sm.MarkRecovered(5, 7)
	if ft := sm.FailureTimes(5); len(ft) != 2 || ft[1] != 3 {
		t.Errorf("FailureTimes(5) = %v, want [0,3]", ft)
	}
	if rt := sm.RecoveryTimes(5); len(rt) != 2 || rt[1] != 7 {
		t.Errorf("RecoveryTimes(5) = %v, want [0,7]", rt)
	}
}

func TestWaitQueueDrainIsFIFO(t *testing.T) {
	sm := New()
	sm.EnqueueWait(2, 1, 3)
	sm.EnqueueWait(2, 2, 5)
	entries := sm.DrainWait(2)
	if len(entries) != 2 || entries[0].TxnID != 1 || entries[1].TxnID != 2 {
		t.Errorf("DrainWait(2) = %+v, want FIFO [1,2]", entries)
	}
	if more := sm.DrainWait(2); len(more) != 0 {
		t.Errorf("DrainWait(2) after drain = %+v, want empty", more)
	}
}

func TestRemoveFromAllWaits(t *testing.T) {
	sm := New()
	sm.EnqueueWait(2, 1, 3)
	sm.EnqueueWait(3, 1, 7)
	sm.EnqueueWait(3, 2, 8)
	sm.RemoveFromAllWaits(1)
	if entries := sm.DrainWait(2); len(entries) != 0 {
		t.Errorf("DrainWait(2) = %+v, want empty after removing txn 1", entries)
	}
	entries := sm.DrainWait(3)
	if len(entries) != 1 || entries[0].TxnID != 2 {
		t.Errorf("DrainWait(3) = %+v, want only txn 2's entry", entries)
	}
}

func TestDumpFormat(t *testing.T) {
	sm := New()
	out := sm.Dump()
	if len(out) == 0 {
		t.Fatal("Dump() returned empty string")
	}
	wantFirst := "site 1 - x2: 20, x4: 40, x6: 60, x8: 80, x10: 100, x12: 120, x14: 140, x16: 160, x18: 180, x20: 200\n"
	if !strings.HasPrefix(out, wantFirst) {
		t.Errorf("Dump() first line = %q, want %q", strings.SplitAfter(out, "\n")[0], wantFirst)
	}
}

// Package sitemgr owns the 10 physical sites, routes variable access
// to the sites that host a given variable, and queues transactions
// that must wait for a down site to come back before a read can be
// satisfied.
//
// Grounded on the teacher's storage buffer-pool pattern (a manager
// owning a fixed set of resources behind a map, exposing lifecycle
// operations across all of them at once) and on original_source's
// SiteManager.py for the exact timeline and wait-queue shapes.
package sitemgr

import (
	"fmt"

	"github.com/kartikbazzad/adbssi/internal/site"
	"github.com/kartikbazzad/adbssi/internal/variable"
)

// WaitEntry is one transaction blocked on a variable because no
// hosting site could serve it and at least one hosting site is DOWN.
type WaitEntry struct {
	TxnID    uint64
	VarIndex int
}

// SiteManager owns all physical sites and the wait-queues of
// transactions blocked on them.
type SiteManager struct {
	sites map[int]*site.Site

	// waiting is the FIFO of transactions blocked per site, in arrival
	// order, regardless of which variable they're waiting on.
	waiting map[int][]WaitEntry
}

// New creates all NumSites sites, UP and seeded per spec §3.
func New() *SiteManager {
	sm := &SiteManager{
		sites:   make(map[int]*site.Site),
		waiting: make(map[int][]WaitEntry),
	}
	for i := 1; i <= variable.NumSites; i++ {
		sm.sites[i] = site.New(i)
	}
	return sm
}

// Site returns the site with the given id.
func (sm *SiteManager) Site(id int) (*site.Site, bool) {
	s, ok := sm.sites[id]
	return s, ok
}

// AllSites returns every site, ordered by id.
func (sm *SiteManager) AllSites() []*site.Site {
	out := make([]*site.Site, 0, len(sm.sites))
	for i := 1; i <= variable.NumSites; i++ {
		if s, ok := sm.sites[i]; ok {
			out = append(out, s)
		}
	}
	return out
}

// SitesHosting returns the sites that physically store varIndex,
// ordered by id: all 10 for an even (replicated) variable, exactly one
// for an odd (single-copy) variable.
func (sm *SiteManager) SitesHosting(varIndex int) []*site.Site {
	if !variable.IsEven(varIndex) {
		if s, ok := sm.sites[variable.HomeSite(varIndex)]; ok {
			return []*site.Site{s}
		}
		return nil
	}
	out := make([]*site.Site, 0, variable.NumSites)
	for i := 1; i <= variable.NumSites; i++ {
		out = append(out, sm.sites[i])
	}
	return out
}

// UpSitesHosting returns, of the sites hosting varIndex, those
// currently UP or RECOVERED (both can serve reads/writes once
// individually qualified by the caller).
func (sm *SiteManager) UpSitesHosting(varIndex int) []*site.Site {
	hosts := sm.SitesHosting(varIndex)
	out := make([]*site.Site, 0, len(hosts))
	for _, s := range hosts {
		if s.Status != site.Down {
			out = append(out, s)
		}
	}
	return out
}

// MarkFailed fails the site with the given id at time t. Entries queued
// on that site's wait-queue are left in place until its next recovery.
func (sm *SiteManager) MarkFailed(id int, t int64) error {
	s, ok := sm.sites[id]
	if !ok {
		return fmt.Errorf("sitemgr: no such site %d", id)
	}
	s.Fail(t)
	return nil
}

// MarkRecovered recovers the site with the given id at time t.
func (sm *SiteManager) MarkRecovered(id int, t int64) error {
	s, ok := sm.sites[id]
	if !ok {
		return fmt.Errorf("sitemgr: no such site %d", id)
	}
	s.Recover(t)
	return nil
}

// FailureTimes returns siteID's failure timeline.
func (sm *SiteManager) FailureTimes(siteID int) []int64 {
	s, ok := sm.sites[siteID]
	if !ok {
		return nil
	}
	return s.FailureTimes()
}

// RecoveryTimes returns siteID's recovery timeline.
func (sm *SiteManager) RecoveryTimes(siteID int) []int64 {
	s, ok := sm.sites[siteID]
	if !ok {
		return nil
	}
	return s.RecoveryTimes()
}

// EnqueueWait records that txnID is blocked reading varIndex until the
// DOWN site siteID recovers.
func (sm *SiteManager) EnqueueWait(siteID int, txnID uint64, varIndex int) {
	sm.waiting[siteID] = append(sm.waiting[siteID], WaitEntry{TxnID: txnID, VarIndex: varIndex})
}

// DrainWait returns and clears the wait-queue for siteID, in FIFO
// order, called when that site recovers so the coordinator can retry
// each blocked transaction.
func (sm *SiteManager) DrainWait(siteID int) []WaitEntry {
	entries := sm.waiting[siteID]
	delete(sm.waiting, siteID)
	return entries
}

// RemoveFromAllWaits drops every queued entry for txnID across all
// sites, used when that transaction aborts while still waiting.
func (sm *SiteManager) RemoveFromAllWaits(txnID uint64) {
	for siteID, entries := range sm.waiting {
		kept := entries[:0]
		for _, e := range entries {
			if e.TxnID != txnID {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(sm.waiting, siteID)
		} else {
			sm.waiting[siteID] = kept
		}
	}
}

// Dump renders every site's resident variables and their latest
// committed values, in the exact format spec §6 requires:
// "site <s> - xN: v, xN: v, ..." one line per site, sites in order.
func (sm *SiteManager) Dump() string {
	out := ""
	for i := 1; i <= variable.NumSites; i++ {
		s := sm.sites[i]
		out += fmt.Sprintf("site %d - ", i)
		indices := s.DM.ResidentIndices()
		for j, idx := range indices {
			v, _ := s.DM.Variable(idx)
			if j > 0 {
				out += ", "
			}
			out += fmt.Sprintf("%s: %d", v.Name(), v.LatestValue())
		}
		out += "\n"
	}
	return out
}

// Package datamanager implements the per-site owner of resident
// variables: it serves snapshot reads, buffers and commits tentative
// writes, and discards tentative writes on abort or site failure.
//
// Grounded on the teacher's storage.Document (per-resident-object
// ownership with clone/serialize helpers) generalized into the
// tentative-vs-committed value split, and on the original
// DataManager.py's pre_committed_variables/committed_variables split
// — collapsed here into one Variable with an explicit tentative field
// plus a per-transaction staging map owned by the DataManager, per
// spec §9's recommended representation.
package datamanager

import (
	"fmt"

	"github.com/kartikbazzad/adbssi/internal/variable"
)

// ErrNotResident is returned for operations on a variable this site
// does not physically store.
var ErrNotResident = fmt.Errorf("datamanager: variable not resident at this site")

// ErrNoStagedWrite is returned by CommitStaged when the staged write
// was never recorded (or already cleared).
var ErrNoStagedWrite = fmt.Errorf("datamanager: no staged write for transaction")

// DataManager owns the variables resident at one site.
type DataManager struct {
	siteID  int
	vars    map[int]*variable.Variable
	staging map[uint64]map[int]int // txnID -> varIndex -> staged value
}

// New creates a DataManager seeded with the variables placed at siteID
// per spec §3's placement rule.
func New(siteID int) *DataManager {
	dm := &DataManager{
		siteID:  siteID,
		vars:    make(map[int]*variable.Variable),
		staging: make(map[uint64]map[int]int),
	}
	for i := 1; i <= variable.NumVariables; i++ {
		if variable.HostedAt(i, siteID) {
			dm.vars[i] = variable.New(i)
		}
	}
	return dm
}

// Has reports whether this site holds variable xN.
func (dm *DataManager) Has(varIndex int) bool {
	_, ok := dm.vars[varIndex]
	return ok
}

// Variable returns the resident variable, mainly for dump/debug use.
func (dm *DataManager) Variable(varIndex int) (*variable.Variable, bool) {
	v, ok := dm.vars[varIndex]
	return v, ok
}

// SnapshotRead returns the value visible as of txnStart, per the
// snapshot isolation rule: the most recent snapshot strictly before
// txnStart.
func (dm *DataManager) SnapshotRead(varIndex int, txnStart int64) (int, error) {
	v, ok := dm.vars[varIndex]
	if !ok {
		return 0, ErrNotResident
	}
	return v.ReadAsOf(txnStart)
}

// StageWrite records value as txnID's tentative write for varIndex and
// updates the site's tentative value. Idempotent: a later StageWrite
// by the same (txnID, varIndex) simply overwrites the earlier one.
func (dm *DataManager) StageWrite(varIndex, value int, txnID uint64) error {
	v, ok := dm.vars[varIndex]
	if !ok {
		return ErrNotResident
	}
	if dm.staging[txnID] == nil {
		dm.staging[txnID] = make(map[int]int)
	}
	dm.staging[txnID][varIndex] = value
	v.TentativeSet(value)
	return nil
}

// CommitStaged moves txnID's staged value for varIndex into the
// variable's snapshot history at commitTime, then clears the staging
// entry.
func (dm *DataManager) CommitStaged(varIndex int, commitTime int64, txnID uint64) error {
	v, ok := dm.vars[varIndex]
	if !ok {
		return ErrNotResident
	}
	byVar, ok := dm.staging[txnID]
	if !ok {
		return ErrNoStagedWrite
	}
	value, ok := byVar[varIndex]
	if !ok {
		return ErrNoStagedWrite
	}
	if err := v.Commit(commitTime, value); err != nil {
		return err
	}
	delete(byVar, varIndex)
	if len(byVar) == 0 {
		delete(dm.staging, txnID)
	}
	return nil
}

// DiscardStaged drops all of txnID's tentative entries at this site
// (used on abort).
func (dm *DataManager) DiscardStaged(txnID uint64) {
	delete(dm.staging, txnID)
}

// DiscardAll drops every transaction's tentative entries at this site
// (used when the site fails).
func (dm *DataManager) DiscardAll() {
	dm.staging = make(map[uint64]map[int]int)
}

// HadCommitBetween reports whether xN has a committed snapshot with
// timestamp strictly in (t1, t2). Used to gate reads from a recovered
// site, per spec §4.4.
func (dm *DataManager) HadCommitBetween(t1, t2 int64, varIndex int) bool {
	v, ok := dm.vars[varIndex]
	if !ok {
		return false
	}
	return v.CommittedBetween(t1, t2)
}

// ResidentIndices returns the sorted indices of variables resident at
// this site, used by dump().
func (dm *DataManager) ResidentIndices() []int {
	indices := make([]int, 0, len(dm.vars))
	for i := range dm.vars {
		indices = append(indices, i)
	}
	for i := 1; i < len(indices); i++ {
		for j := i; j > 0 && indices[j-1] > indices[j]; j-- {
			indices[j-1], indices[j] = indices[j], indices[j-1]
		}
	}
	return indices
}

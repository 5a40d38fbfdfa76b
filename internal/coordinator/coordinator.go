// Package coordinator implements the transaction manager: the engine
// that begins and ends transactions, routes reads and writes to
// replicas through the SiteManager, maintains the serialization
// graph, detects cycles at commit time, enforces first-committer-wins,
// and reacts to site failure and recovery.
//
// Grounded on the teacher's bundoc.Database (a single struct wiring
// together a storage layer, an index, and a rules engine behind one
// set of CRUD-shaped methods) generalized to wire together a
// SiteManager and a serialization graph behind begin/read/write/end,
// and on original_source/TransactionManager.py for the gate ordering
// and retry_pending mechanics.
package coordinator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kartikbazzad/adbssi/internal/audit"
	"github.com/kartikbazzad/adbssi/internal/logging"
	"github.com/kartikbazzad/adbssi/internal/site"
	"github.com/kartikbazzad/adbssi/internal/sitemgr"
	"github.com/kartikbazzad/adbssi/internal/txn"
	"github.com/kartikbazzad/adbssi/internal/variable"
)

// Abort causes, reported alongside an ABORTED transaction.
const (
	CauseCycle                 = "cycle"
	CauseStaleWrite            = "stale-write"
	CauseSiteFailureAfterWrite = "site-failure-after-write"
	CauseUnreachableVariable   = "unreachable-variable"
	CauseWaitingAtEnd          = "waiting-at-end"
)

// ErrUnknownTransaction is a diagnostic: an instruction referenced a
// transaction id that was never begin()'d (or has been forgotten).
var ErrUnknownTransaction = errors.New("coordinator: unknown transaction")

// ErrUnknownSite is a diagnostic: an instruction referenced a site id
// outside [1,10].
var ErrUnknownSite = errors.New("coordinator: unknown site")

// edge labels, kept for diagnostics; cycle detection only cares about
// the (from, to) pair, not the label.
const (
	edgeWW = "ww"
	edgeWR = "wr"
	edgeRW = "rw"
)

// Coordinator is the TransactionManager: it owns the transaction table
// and the serialization graph, and drives all site access through a
// SiteManager.
type Coordinator struct {
	sites *sitemgr.SiteManager
	txns  map[uint64]*txn.Transaction
	order []uint64 // begin() order, for deterministic iteration

	// graph adjacency: from -> to -> label. Dedup by (from, to); label
	// is informational only, the most recent write wins.
	graph map[uint64]map[uint64]string

	log   *slog.Logger
	trail *audit.Trail
}

// New creates a Coordinator with 10 fresh, UP sites.
func New() *Coordinator {
	return &Coordinator{
		sites: sitemgr.New(),
		txns:  make(map[uint64]*txn.Transaction),
		graph: make(map[uint64]map[uint64]string),
		log:   logging.Get(),
		trail: audit.New(0),
	}
}

// WithAudit replaces the coordinator's audit trail (e.g. with a
// bounded one), returning the same Coordinator for chaining.
func (c *Coordinator) WithAudit(t *audit.Trail) *Coordinator {
	c.trail = t
	return c
}

// WithLogger replaces the coordinator's logger (e.g. one annotated
// with a per-run correlation id via logging.WithRunID), returning the
// same Coordinator for chaining.
func (c *Coordinator) WithLogger(l *slog.Logger) *Coordinator {
	c.log = l
	return c
}

// Audit exposes the recorded decision trail, for tests and reporting.
func (c *Coordinator) Audit() []audit.Event {
	return c.trail.Entries()
}

// Sites exposes the underlying SiteManager, mainly for dump().
func (c *Coordinator) Sites() *sitemgr.SiteManager {
	return c.sites
}

// Transaction returns the bookkeeping record for id, for tests and
// diagnostics.
func (c *Coordinator) Transaction(id uint64) (*txn.Transaction, bool) {
	t, ok := c.txns[id]
	return t, ok
}

// Begin creates Tk with start-time t, status RUNNING. Fails silently
// (a diagnostic is logged, not returned) if Tk already exists.
func (c *Coordinator) Begin(id uint64, t int64) {
	if _, exists := c.txns[id]; exists {
		c.log.Warn("begin on already-known transaction ignored", "txn", fmt.Sprintf("T%d", id))
		return
	}
	tx := txn.New(id, t)
	c.txns[id] = tx
	c.order = append(c.order, id)
	c.graph[id] = make(map[uint64]string)
}

// Read resolves a read of xN by Tk at time t. value/served report the
// outcome when no diagnostic occurred; a non-nil error means the
// transaction id itself was unknown.
func (c *Coordinator) Read(txnID uint64, varIndex int, t int64) (value int, served bool, err error) {
	tx, ok := c.txns[txnID]
	if !ok {
		return 0, false, fmt.Errorf("%w: T%d", ErrUnknownTransaction, txnID)
	}
	if !c.readyForOp(tx) {
		return 0, false, nil
	}

	if !variable.IsEven(varIndex) {
		return c.readOdd(tx, varIndex, t)
	}
	return c.readEven(tx, varIndex, t)
}

func (c *Coordinator) readyForOp(tx *txn.Transaction) bool {
	switch tx.Status {
	case txn.Committed, txn.Aborted:
		c.log.Warn("instruction on terminal transaction ignored", "txn", tx.Name(), "status", tx.Status.String())
		return false
	case txn.Waiting:
		c.log.Warn("instruction on waiting transaction ignored", "txn", tx.Name())
		return false
	default:
		return true
	}
}

func (c *Coordinator) readOdd(tx *txn.Transaction, varIndex int, t int64) (int, bool, error) {
	hosts := c.sites.SitesHosting(varIndex)
	if len(hosts) == 0 {
		c.finalizeAbort(tx, t, CauseUnreachableVariable)
		return 0, false, nil
	}
	s := hosts[0]
	switch s.Status {
	case site.Up:
		v, err := s.DM.SnapshotRead(varIndex, tx.Start)
		if err != nil {
			c.finalizeAbort(tx, t, CauseUnreachableVariable)
			return 0, false, nil
		}
		tx.RecordRead(varIndex)
		tx.AddSiteAccessed(s.ID)
		return v, true, nil
	case site.Recovered:
		if v, ok := c.recoveredSnapshot(s, tx, varIndex); ok {
			return v, true, nil
		}
		c.finalizeAbort(tx, t, CauseUnreachableVariable)
		return 0, false, nil
	default: // Down: a single-copy variable has no alternative replica.
		c.finalizeAbort(tx, t, CauseUnreachableVariable)
		return 0, false, nil
	}
}

func (c *Coordinator) readEven(tx *txn.Transaction, varIndex int, t int64) (int, bool, error) {
	v, served, anyDown := c.tryEvenRead(tx, varIndex)
	if served {
		return v, true, nil
	}
	if anyDown {
		tx.Status = txn.Waiting
		for _, s := range c.sites.SitesHosting(varIndex) {
			if s.Status == site.Down {
				c.sites.EnqueueWait(s.ID, tx.ID, varIndex)
			}
		}
		c.log.Debug("transaction waiting on down replica", "txn", tx.Name(), "var", fmt.Sprintf("x%d", varIndex))
		return 0, false, nil
	}
	c.finalizeAbort(tx, t, CauseUnreachableVariable)
	return 0, false, nil
}

// tryEvenRead attempts to serve a read of a replicated variable from
// the first eligible site in id order, without mutating wait-queues.
// Returns the served value, whether it was served, and whether any
// hosting site was DOWN (needed by the caller to decide WAITING vs
// ABORTED).
func (c *Coordinator) tryEvenRead(tx *txn.Transaction, varIndex int) (value int, served bool, anyDown bool) {
	for _, s := range c.sites.SitesHosting(varIndex) {
		switch s.Status {
		case site.Up:
			if v, err := s.DM.SnapshotRead(varIndex, tx.Start); err == nil {
				tx.RecordRead(varIndex)
				tx.AddSiteAccessed(s.ID)
				return v, true, anyDown
			}
		case site.Recovered:
			if v, ok := c.recoveredSnapshot(s, tx, varIndex); ok {
				return v, true, anyDown
			}
		case site.Down:
			anyDown = true
		}
	}
	return 0, false, anyDown
}

// recoveredSnapshot serves a read from a RECOVERED site only if a
// commit to varIndex landed strictly between the site's last recovery
// and the reader's start.
func (c *Coordinator) recoveredSnapshot(s *site.Site, tx *txn.Transaction, varIndex int) (int, bool) {
	last := s.LastRecoveryTime()
	if !s.DM.HadCommitBetween(last, tx.Start, varIndex) {
		return 0, false
	}
	v, err := s.DM.SnapshotRead(varIndex, tx.Start)
	if err != nil {
		return 0, false
	}
	tx.RecordRead(varIndex)
	tx.AddSiteAccessed(s.ID)
	return v, true
}

// Write stages value as Tk's tentative write for xN on every currently
// reachable (UP or RECOVERED) site that hosts xN. If no site accepts
// it, Tk aborts.
func (c *Coordinator) Write(txnID uint64, varIndex, value int, t int64) error {
	tx, ok := c.txns[txnID]
	if !ok {
		return fmt.Errorf("%w: T%d", ErrUnknownTransaction, txnID)
	}
	if !c.readyForOp(tx) {
		return nil
	}

	tx.RecordWrite(varIndex, value)
	accepted := false
	for _, s := range c.sites.UpSitesHosting(varIndex) {
		if err := s.DM.StageWrite(varIndex, value, tx.ID); err == nil {
			tx.AddSiteAccessed(s.ID)
			tx.AddWriteSite(s.ID)
			accepted = true
		}
	}
	if !accepted {
		c.finalizeAbort(tx, t, CauseUnreachableVariable)
	}
	return nil
}

// End evaluates the commit gates in order and either commits Tk or
// aborts it (possibly aborting a different transaction instead, when
// Tk wins a cycle it participates in).
func (c *Coordinator) End(txnID uint64, t int64) error {
	tx, ok := c.txns[txnID]
	if !ok {
		return fmt.Errorf("%w: T%d", ErrUnknownTransaction, txnID)
	}
	if tx.Status == txn.Committed || tx.Status == txn.Aborted {
		c.log.Warn("end on terminal transaction ignored", "txn", tx.Name(), "status", tx.Status.String())
		return nil
	}

	// Gate 1: a read never completed.
	if tx.Status == txn.Waiting {
		c.finalizeAbort(tx, t, CauseWaitingAtEnd)
		return nil
	}

	// Gate 2: any site Tk wrote to has failed since Tk started.
	for _, siteID := range tx.WriteSitesAccessed() {
		s, ok := c.sites.Site(siteID)
		if !ok {
			continue
		}
		for _, ft := range s.FailureTimes() {
			if ft > tx.Start {
				c.finalizeAbort(tx, t, CauseSiteFailureAfterWrite)
				return nil
			}
		}
	}

	// Gate 3: first-committer-wins on every variable Tk wrote.
	for idx := range tx.AccessLog {
		if !tx.Wrote(idx) {
			continue
		}
		for _, s := range c.sites.SitesHosting(idx) {
			v, ok := s.DM.Variable(idx)
			if !ok {
				continue
			}
			if v.MostRecentCommitTime() > tx.Start {
				c.finalizeAbort(tx, t, CauseStaleWrite)
				return nil
			}
		}
	}

	// Gate 4: serialization graph cycle check.
	c.buildEdges(tx)
	for {
		cycle := c.findCycle()
		if cycle == nil {
			break
		}
		victim := c.pickVictim(cycle)
		if victim.ID == tx.ID {
			c.finalizeAbort(tx, t, CauseCycle)
			return nil
		}
		c.finalizeAbort(victim, t, CauseCycle)
	}

	// All gates passed: commit every write Tk staged.
	for idx := range tx.AccessLog {
		if !tx.Wrote(idx) {
			continue
		}
		for _, s := range c.sites.UpSitesHosting(idx) {
			if err := s.DM.CommitStaged(idx, t, tx.ID); err == nil {
				s.MarkUp()
			}
		}
	}
	tx.Commit(t)
	c.trail.Record(audit.Event{
		Type:    audit.EventCommitted,
		Subject: tx.Name(),
		Time:    t,
		Details: map[string]any{"wrote": tx.WroteAnything(), "sites": tx.SitesAccessed()},
	})
	return nil
}

// buildEdges incorporates tx's access-edges against every other
// tracked transaction into the serialization graph, per the
// Tk-op/Tj-op table: W/W -> Tk->Tj, R/W -> Tj->Tk, W/R -> Tk->Tj.
func (c *Coordinator) buildEdges(tx *txn.Transaction) {
	for idx := range tx.AccessLog {
		tkW := tx.Wrote(idx)
		tkR := tx.Read(idx)
		for otherID, other := range c.txns {
			if otherID == tx.ID || other.Status == txn.Aborted {
				continue
			}
			if _, ok := other.AccessLog[idx]; !ok {
				continue
			}
			tjW := other.Wrote(idx)
			tjR := other.Read(idx)
			if tkW && tjW {
				c.addEdge(tx.ID, otherID, edgeWW)
			}
			if tkR && tjW {
				c.addEdge(otherID, tx.ID, edgeWR)
			}
			if tkW && tjR {
				c.addEdge(tx.ID, otherID, edgeRW)
			}
		}
	}
}

func (c *Coordinator) addEdge(from, to uint64, label string) {
	if from == to {
		return
	}
	if c.graph[from] == nil {
		c.graph[from] = make(map[uint64]string)
	}
	c.graph[from][to] = label
}

// findCycle runs a DFS over the graph and returns the node ids on the
// first cycle it discovers, or nil if the graph is acyclic. Node and
// neighbor visitation order is sorted for reproducible results.
func (c *Coordinator) findCycle() []uint64 {
	const white, gray, black = 0, 1, 2
	color := make(map[uint64]int, len(c.graph))

	var path []uint64
	var cycle []uint64

	var visit func(u uint64) bool
	visit = func(u uint64) bool {
		color[u] = gray
		path = append(path, u)
		for _, v := range c.sortedNeighbors(u) {
			switch color[v] {
			case gray:
				for i, node := range path {
					if node == v {
						cycle = append([]uint64{}, path[i:]...)
						return true
					}
				}
			case white:
				if visit(v) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[u] = black
		return false
	}

	for _, id := range c.sortedNodeIDs() {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

func (c *Coordinator) sortedNodeIDs() []uint64 {
	ids := make([]uint64, 0, len(c.graph))
	for id := range c.graph {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *Coordinator) sortedNeighbors(u uint64) []uint64 {
	adj := c.graph[u]
	out := make([]uint64, 0, len(adj))
	for v := range adj {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// pickVictim chooses the abort victim among a cycle's members: the
// one with the latest start time, ties broken by the larger id.
// Committed transactions are never chosen (their outcome is final).
func (c *Coordinator) pickVictim(cycle []uint64) *txn.Transaction {
	var victim *txn.Transaction
	for _, id := range cycle {
		t, ok := c.txns[id]
		if !ok || t.Status == txn.Committed {
			continue
		}
		if victim == nil || t.Start > victim.Start || (t.Start == victim.Start && t.ID > victim.ID) {
			victim = t
		}
	}
	return victim
}

// finalizeAbort marks tx ABORTED, discards its tentative state
// everywhere, drops it from every wait-queue and from the graph, and
// retries any transactions that were blocked.
func (c *Coordinator) finalizeAbort(tx *txn.Transaction, t int64, cause string) {
	tx.Abort(cause)
	for _, s := range c.sites.AllSites() {
		s.DM.DiscardStaged(tx.ID)
	}
	c.sites.RemoveFromAllWaits(tx.ID)
	c.removeFromGraph(tx.ID)
	c.trail.Record(audit.Event{
		Type:    audit.EventAborted,
		Subject: tx.Name(),
		Time:    t,
		Details: map[string]any{"cause": cause},
	})
	c.retryPending()
}

func (c *Coordinator) removeFromGraph(id uint64) {
	delete(c.graph, id)
	for _, adj := range c.graph {
		delete(adj, id)
	}
}

// Fail handles fail(s, t): the site goes DOWN, its tentative state is
// discarded, and every RUNNING transaction that wrote there aborts;
// read-only accessors abort only if no other UP replica remains for
// their outstanding reads of replicated variables.
func (c *Coordinator) Fail(siteID int, t int64) error {
	s, ok := c.sites.Site(siteID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSite, siteID)
	}
	if err := c.sites.MarkFailed(siteID, t); err != nil {
		return err
	}
	c.trail.Record(audit.Event{Type: audit.EventSiteFail, Subject: fmt.Sprintf("site %d", siteID), Time: t})

	for _, id := range c.order {
		tx := c.txns[id]
		if tx.Status != txn.Running {
			continue
		}
		if !tx.AccessedSite(siteID) {
			continue
		}
		if tx.WroteAtSite(siteID) {
			c.finalizeAbort(tx, t, CauseSiteFailureAfterWrite)
			continue
		}
		if !c.hasReachableReplica(tx) {
			c.finalizeAbort(tx, t, CauseUnreachableVariable)
		}
	}
	return nil
}

// hasReachableReplica reports whether every replicated variable Tk has
// read so far still has an UP (or usable RECOVERED) site able to serve
// a read as of Tk.start. Used to decide whether a read-only accessor
// of a just-failed site may keep running.
func (c *Coordinator) hasReachableReplica(tx *txn.Transaction) bool {
	for idx := range tx.AccessLog {
		if !variable.IsEven(idx) || !tx.Read(idx) {
			continue
		}
		reachable := false
		for _, s := range c.sites.SitesHosting(idx) {
			if s.Status == site.Up {
				reachable = true
				break
			}
			if s.Status == site.Recovered {
				if _, ok := c.recoveredSnapshotProbe(s, tx, idx); ok {
					reachable = true
					break
				}
			}
		}
		if !reachable {
			return false
		}
	}
	return true
}

func (c *Coordinator) recoveredSnapshotProbe(s *site.Site, tx *txn.Transaction, varIndex int) (int, bool) {
	last := s.LastRecoveryTime()
	if !s.DM.HadCommitBetween(last, tx.Start, varIndex) {
		return 0, false
	}
	return s.DM.SnapshotRead(varIndex, tx.Start)
}

// Recover handles recover(s, t): the site becomes RECOVERED and its
// wait-queue is drained, retrying every blocked (Tk, xN) pair that can
// now be served.
func (c *Coordinator) Recover(siteID int, t int64) error {
	if _, ok := c.sites.Site(siteID); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSite, siteID)
	}
	if err := c.sites.MarkRecovered(siteID, t); err != nil {
		return err
	}
	c.trail.Record(audit.Event{Type: audit.EventSiteUp, Subject: fmt.Sprintf("site %d", siteID), Time: t})
	c.retryWaitQueueForSite(siteID)
	return nil
}

// retryPending re-examines the wait-queue of every non-DOWN site,
// called after any abort since it may have unblocked nothing but is
// cheap and idempotent to re-check.
func (c *Coordinator) retryPending() {
	for i := 1; i <= variable.NumSites; i++ {
		s, ok := c.sites.Site(i)
		if !ok || s.Status == site.Down {
			continue
		}
		c.retryWaitQueueForSite(i)
	}
}

// retryWaitQueueForSite drains siteID's wait-queue and retries each
// entry's read. Entries that still cannot be served are dropped from
// this queue; the transaction may remain queued at other DOWN sites
// and will be retried again when one of those recovers.
func (c *Coordinator) retryWaitQueueForSite(siteID int) {
	for _, e := range c.sites.DrainWait(siteID) {
		tx, ok := c.txns[e.TxnID]
		if !ok || tx.Status != txn.Waiting {
			continue
		}
		if _, served, _ := c.tryEvenRead(tx, e.VarIndex); served {
			tx.Status = txn.Running
			c.sites.RemoveFromAllWaits(tx.ID)
			c.log.Debug("waiting transaction resumed", "txn", tx.Name(), "var", fmt.Sprintf("x%d", e.VarIndex))
		}
	}
}

// Dump renders the state of every site, per spec's fixed format.
func (c *Coordinator) Dump() string {
	return c.sites.Dump()
}

package raft

import "time"

// AppendCommand appends command to the leader's log under its current
// term. ok is false if this node is not currently leader — the caller
// (the client gateway) is responsible for redirecting instead.
func (n *Node) AppendCommand(command string) (index int, term uint64, ok bool) {
	return n.appendLocal(command)
}

// AwaitCommit blocks until the entry at index is committed or timeout
// elapses, returning whether it committed in time.
func (n *Node) AwaitCommit(index int, timeout time.Duration) bool {
	return n.awaitCommit(index, timeout)
}

// IsLeader reports whether this node currently believes itself leader.
func (n *Node) IsLeader() bool {
	return n.getRole() == Leader
}

// LeaderAddr returns the currently known leader address (the zero Address
// if none is known, e.g. an election is in progress).
func (n *Node) LeaderAddr() Address {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.leaderAddr
}

// RPCTimeout exposes the configured per-call timeout so callers can derive
// bounded wait budgets from it (spec.md §9 Open Question 1: block roughly
// RPC_TIMEOUT*2 for commit).
func (n *Node) RPCTimeout() time.Duration {
	return n.cfg.RPCTimeout
}

// Restore seeds a freshly constructed Node's term, vote, and log from a
// prior run's persisted state (persist.Recover). Must be called before
// Start. committedLength is conservatively left at 0 — the WAL does not
// durably track it, so a restored node relearns what's committed from the
// next leader's sync. Start(true) sets the term to 1, replacing a restored
// term; cmd/server calls Restore only before Start(false), on a passive
// start.
func (n *Node) Restore(term uint64, votedFor Address, entries []LogEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.currentTerm = term
	n.votedFor = votedFor
	n.votedSet = !votedFor.Zero()
	n.log = Log{entries: entries}
}

// SeedFromLeader seeds a freshly constructed node's term and log from a
// leader's ApplyMembership response (spec.md §4.5: "the joiner adopts
// these and transitions to Follower"). Must be called before Start.
//
// committedLength is deliberately left at 0, same reasoning as Restore:
// the response's entries are not yet applied to this node's state
// machine, so marking them committed here would let sync_handler.go's
// "req.CommitLength > committedLength" guard see them as already caught
// up and skip applying them forever. Leaving committedLength at 0 means
// the leader's very next Sync (which still sees this peer's nextIndex at
// 0, set by ApplyMembership) re-announces its real commitLength against
// an already-populated log, and commit advancement applies the prefix to
// the state machine exactly like any other follower's catch-up.
func (n *Node) SeedFromLeader(term uint64, entries []LogEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.currentTerm = term
	n.log = Log{entries: entries}
}

// Status is the full node status snapshot for get_node_status.
type Status struct {
	Term            uint64
	Role            Role
	LeaderAddr      Address
	Peers           []Address
	CommittedLength int
	Log             string
	VotedFor        Address
	Uptime          time.Duration
}

// FullStatus snapshots everything get_node_status reports.
func (n *Node) FullStatus() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var uptime time.Duration
	if !n.startedAt.IsZero() {
		uptime = time.Since(n.startedAt)
	}
	return Status{
		Term:            n.currentTerm,
		Role:            n.role,
		LeaderAddr:      n.leaderAddr,
		Peers:           n.peers.Addresses(),
		CommittedLength: n.log.CommittedLength(),
		Log:             n.log.Render(),
		VotedFor:        n.votedFor,
		Uptime:          uptime,
	}
}

package raft

// Persister is the optional durability hook a Node calls whenever its
// persistent state — (term, votedFor) or the log itself — changes. A nil
// Persister (the default; spec.md §9 Open Question 3 is a MAY, not a
// MUST) means the node keeps nothing durable across restarts. Implemented
// by package persist's WAL.
type Persister interface {
	// Append records one log entry together with the (term, votedFor)
	// in effect when it was written. index is the entry's position in
	// the log.
	Append(term uint64, votedFor Address, index int, entry LogEntry) error

	// PersistState records a (term, votedFor) change that happened
	// without a new log entry (e.g. granting a vote, or adopting a
	// higher term from a peer). Implementations recover this the same
	// way as Append, treating it as a record with no entry.
	PersistState(term uint64, votedFor Address) error
}

// persistState calls through to n.persister.PersistState if one is
// configured. Assumes mu is held. Errors are logged, not propagated —
// persistence is best-effort durability layered under a protocol that is
// already safe without it (spec.md Non-goals: "no cross-crash log
// durability" is the baseline; this hook is strictly additive).
func (n *Node) persistState() {
	if n.persister == nil {
		return
	}
	if err := n.persister.PersistState(n.currentTerm, n.votedFor); err != nil {
		n.logger.entry.WithError(err).Warn("failed to persist state")
	}
}

// persistEntry calls through to n.persister.Append if one is configured.
// Assumes mu is held.
func (n *Node) persistEntry(index int, entry LogEntry) {
	if n.persister == nil {
		return
	}
	if err := n.persister.Append(n.currentTerm, n.votedFor, index, entry); err != nil {
		n.logger.entry.WithError(err).Warn("failed to persist log entry")
	}
}

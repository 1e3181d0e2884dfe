package raft

import "time"

// syncAllPeers is the leader's per-tick fan-out (spec.md §4.3). Sync
// messages to distinct peers are issued concurrently; each goroutine folds
// its own response back into leader state independently once it arrives —
// there is no barrier waiting for every peer before any single peer's ack
// is processed, but commit advancement itself (tryAdvanceCommit) always
// recomputes from the full matchIndex snapshot under the lock, so it is
// unaffected by the order acks land in.
func (n *Node) syncAllPeers() {
	n.mu.RLock()
	if n.role != Leader {
		n.mu.RUnlock()
		return
	}
	term := n.currentTerm
	peers := n.peers.Others()
	peerList := n.peers.Addresses()
	commitLength := n.log.CommittedLength()
	leaderAddr := n.id
	n.mu.RUnlock()

	n.logger.heartbeatSent(term, len(peers))

	if len(peers) == 0 {
		// A sole member is its own majority: no ack to wait for.
		n.mu.Lock()
		if n.role == Leader && n.currentTerm == term {
			n.tryAdvanceCommit()
		}
		n.mu.Unlock()
		return
	}

	for _, peer := range peers {
		go n.syncOnePeer(peer, term, peerList, commitLength, leaderAddr)
	}
}

func (n *Node) syncOnePeer(peer Address, term uint64, peerList []Address, commitLength int, leaderAddr Address) {
	n.mu.Lock()
	prefixLen, prefixTerm, entries := n.buildSyncFor(peer)
	n.mu.Unlock()

	resp, err := n.tr.Sync(peer, &SyncRequest{
		Term:         term,
		LeaderAddr:   leaderAddr,
		Peers:        peerList,
		PrefixLen:    prefixLen,
		PrefixTerm:   prefixTerm,
		Entries:      entries,
		CommitLength: commitLength,
	})
	if err != nil {
		// Transport failure: peer not counted this round, no state change
		// (spec.md §7 error kind 1).
		return
	}

	if resp.Term > term {
		n.stepDown(resp.Term)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.role != Leader || n.currentTerm != term {
		return // stale response from a round we've since moved on from
	}

	if resp.Success {
		n.matchIndex[peer] = prefixLen + len(entries)
		n.nextIndex[peer] = n.matchIndex[peer]
		n.hints.clear(peer)
		n.tryAdvanceCommit()
		return
	}

	n.logger.repair(peer, prefixLen)
	n.hints.store(peer, RepairHint{
		LastMessage: resp.LastMsg,
		LastTerm:    resp.LastTerm,
		LogLength:   resp.LogLength,
	})
}

// buildSyncFor computes the (prefixLen, prefixTerm, entries) triple to ship
// to peer on this tick. Assumes mu is held.
//
// Absent a repair hint, the default prefix is nextIndex[peer] (spec.md §9
// Design Notes' matchIndex variant, in place of the naive PendingCommit
// window). With a hint recorded from a prior negative ack, spec.md §4.3's
// Log repair algorithm applies: ship everything if the follower reported
// an empty log, else scan backward for the follower's last known
// (command, term) and resume just past it, falling back to shipping
// everything if no match is found.
func (n *Node) buildSyncFor(peer Address) (prefixLen int, prefixTerm uint64, entries []LogEntry) {
	if hint, ok := n.hints.peek(peer); ok {
		if hint.LogLength == 0 {
			return 0, 0, n.log.Entries()
		}
		for i := n.log.Length() - 1; i >= 0; i-- {
			e := n.log.At(i)
			if e.Command == hint.LastMessage && e.Term == hint.LastTerm {
				prefixLen = i + 1
				prefixTerm = e.Term
				return prefixLen, prefixTerm, n.log.Suffix(prefixLen)
			}
		}
		return 0, 0, n.log.Entries()
	}

	pl := min(n.nextIndex[peer], n.log.Length())
	pt := uint64(0)
	if pl > 0 {
		pt = n.log.At(pl - 1).Term
	}
	return pl, pt, n.log.Suffix(pl)
}

// tryAdvanceCommit recomputes committedLength from matchIndex (including
// the leader's own full log as its match) and applies newly committed
// entries to the state machine in order. Assumes mu is held.
//
// An entry is only committed by this direct majority check when it was
// appended under the leader's own current term — an older-term entry that
// happens to sit on a majority of logs is committed only as a side effect
// of a later current-term entry committing past it (the standard Raft
// safety rule; without it a leader can commit an entry from a prior term
// that a future leader is then forced to overwrite).
func (n *Node) tryAdvanceCommit() {
	vals := make([]int, 0, n.peers.Count())
	vals = append(vals, n.log.Length())
	for _, peer := range n.peers.Others() {
		vals = append(vals, n.matchIndex[peer])
	}

	candidate := majorityFloor(vals)
	current := n.log.CommittedLength()
	if candidate <= current {
		return
	}
	if n.log.At(candidate - 1).Term != n.currentTerm {
		return
	}

	n.applyCommittedLocked(current, candidate)
	n.log.advanceCommit(candidate)
	n.logger.commitAdvanced(candidate, n.currentTerm)
	n.commitCond.Broadcast()
}

// applyCommittedLocked applies entries[from:to] to the state machine in
// order, exactly once (spec.md invariant 5). Assumes mu is held — the
// state machine is expected to be fast and purely in-memory (spec.md §4's
// "State Machine (external)" row), so holding the node lock across Apply
// is an acceptable simplification, matching the teacher's own choice to
// call storage.Store methods directly under its own lock.
func (n *Node) applyCommittedLocked(from, to int) {
	for i := from; i < to; i++ {
		e := n.log.At(i)
		if n.sm != nil {
			n.sm.Apply(e.Command)
		}
		n.logger.applied(i, e.Command)
	}
}

// appendLocal appends a new command to the leader's own log under its
// current term and returns the entry's index. Callers that need
// linearizable acknowledgement should follow up with awaitCommit.
func (n *Node) appendLocal(command string) (index int, term uint64, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.role != Leader {
		return 0, 0, false
	}
	index = n.log.Length()
	entry := LogEntry{Term: n.currentTerm, Command: command}
	n.log.Append([]LogEntry{entry}, index)
	n.persistEntry(index, entry)
	term = n.currentTerm
	n.wakeLeader()
	return index, term, true
}

// awaitCommit blocks until the entry at index is committed or timeout
// elapses, implementing spec.md §9 Open Question 1's recommended
// (rather than the source's actually-shipped) behavior: the client does
// not see success until a majority has durably accepted the entry.
func (n *Node) awaitCommit(index int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	n.mu.Lock()
	defer n.mu.Unlock()
	for n.log.CommittedLength() <= index {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.AfterFunc(remaining, n.commitCond.Broadcast)
		n.commitCond.Wait()
		timer.Stop()
	}
	return true
}

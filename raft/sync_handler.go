package raft

// Sync handles an incoming replication message from a leader (spec.md
// §4.3). It is the follower-side counterpart to syncOnePeer: adopt the
// sender as leader if its term is current or newer, check the log prefix
// for consistency, append on success or report diagnostics on failure, and
// advance the locally committed length (applying anything newly committed)
// if the leader's commitLength has moved past ours.
func (n *Node) Sync(req *SyncRequest) *SyncResponse {
	n.mu.Lock()

	if req.Term < n.currentTerm {
		term := n.currentTerm
		n.mu.Unlock()
		return &SyncResponse{Term: term, Success: false, Addr: n.id}
	}

	oldRole := n.role
	if req.Term > n.currentTerm {
		n.currentTerm = req.Term
		n.votedSet = false
		n.persistState()
	}
	n.role = Follower
	n.leaderAddr = req.LeaderAddr
	if oldRole != Follower {
		n.logger.stateChange(oldRole, Follower, n.currentTerm)
	}

	for _, p := range req.Peers {
		n.peers.Add(p)
	}

	n.logger.syncReceived(req.LeaderAddr, n.currentTerm, len(req.Entries))

	if !n.log.Consistent(req.PrefixLen, req.PrefixTerm) {
		length := n.log.Length()
		lastTerm := n.log.LastTerm()
		lastMsg := ""
		if length > 0 {
			lastMsg = n.log.At(length - 1).Command
		}
		term := n.currentTerm
		n.mu.Unlock()
		n.resetElectionTimer()
		return &SyncResponse{
			Term:      term,
			Success:   false,
			Addr:      n.id,
			LogLength: length,
			LastTerm:  lastTerm,
			LastMsg:   lastMsg,
		}
	}

	n.log.Append(req.Entries, req.PrefixLen)
	for i, e := range req.Entries {
		n.persistEntry(req.PrefixLen+i, e)
	}

	if req.CommitLength > n.log.CommittedLength() {
		newCommit := min(req.CommitLength, n.log.Length())
		n.applyCommittedLocked(n.log.CommittedLength(), newCommit)
		n.log.advanceCommit(newCommit)
		n.commitCond.Broadcast()
	}

	term := n.currentTerm
	n.mu.Unlock()

	n.resetElectionTimer()

	return &SyncResponse{Term: term, Success: true, Addr: n.id}
}

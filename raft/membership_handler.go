package raft

// ApplyMembership handles an incoming join request (spec.md §4.5). A
// non-leader redirects the caller to whichever leader it currently knows
// about (possibly none, if an election is in progress). The leader adds
// the new address to its peer set — idempotently, a second join of an
// already-known address is harmless (spec.md §8 "Idempotent join") — and
// replies with enough state (current peers, full log, term, committed
// length) for the joiner to adopt the cluster's view without waiting for
// its first Sync.
func (n *Node) ApplyMembership(req *JoinRequest) *JoinResponse {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.role != Leader {
		return &JoinResponse{
			Status:     StatusRedirected,
			LeaderAddr: n.leaderAddr,
		}
	}

	if n.peers.Add(req.Addr) {
		n.nextIndex[req.Addr] = 0
		n.matchIndex[req.Addr] = 0
		n.logger.joined(req.Addr)
	}

	return &JoinResponse{
		Status:       StatusSuccess,
		LeaderAddr:   n.id,
		Peers:        n.peers.Addresses(),
		Entries:      n.log.Entries(),
		Term:         n.currentTerm,
		CommitLength: n.log.CommittedLength(),
	}
}

package raft

import "time"

// startElection is entered on election-timer expiry (spec.md §4.1
// Follower/Candidate). It bumps the term, votes for self, and fans
// RequestVote out to every peer concurrently; on majority it becomes
// Leader, on timeout without majority it remains Candidate and will start
// a fresh term on the next expiry.
func (n *Node) startElection() {
	n.mu.Lock()
	oldRole := n.role
	n.role = Candidate
	n.currentTerm++
	term := n.currentTerm
	n.votedFor = n.id
	n.votedSet = true
	commitLength := n.log.CommittedLength()
	peers := n.peers.Others()
	n.persistState()
	n.mu.Unlock()

	n.logger.stateChange(oldRole, Candidate, term)
	n.logger.electionStart(term)
	n.resetElectionTimer()

	if len(peers) == 0 {
		// Sole member of its own view of the cluster: a majority of 1 is
		// itself, so it wins immediately.
		n.becomeLeader(term)
		return
	}

	votes := 1
	needed := n.peers.Majority()
	voteCh := make(chan bool, len(peers))

	for _, peer := range peers {
		go func(peer Address) {
			voteCh <- n.requestVote(peer, term, commitLength)
		}(peer)
	}

	timeout := time.After(n.cfg.ElectionMax)
	for i := 0; i < len(peers); i++ {
		select {
		case granted := <-voteCh:
			if granted {
				votes++
				if votes >= needed {
					n.logger.electionWon(term, votes, needed)
					n.becomeLeader(term)
					return
				}
			}
		case <-timeout:
			n.logger.electionLost(term, votes, needed)
			return
		case <-n.shutdownCh:
			return
		}
	}

	n.logger.electionLost(term, votes, needed)
}

func (n *Node) requestVote(peer Address, term uint64, commitLength int) bool {
	resp, err := n.tr.RequestVote(peer, &VoteRequest{
		Term:         term,
		Candidate:    n.id,
		CommitLength: commitLength,
	})
	if err != nil {
		return false
	}
	if resp.Term > term {
		n.stepDown(resp.Term)
		return false
	}
	return resp.Granted
}

// becomeLeader transitions to Leader, but only if the node is still a
// Candidate in the same term it started the election for — a stale
// election result (the node already stepped down or moved on) is
// discarded (spec.md invariant 1).
func (n *Node) becomeLeader(term uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.currentTerm != term || n.role != Candidate {
		return
	}
	n.becomeLeaderLocked()
}

// becomeLeaderLocked assumes mu is held.
func (n *Node) becomeLeaderLocked() {
	oldRole := n.role
	n.role = Leader
	n.leaderAddr = n.id
	n.logger.stateChange(oldRole, Leader, n.currentTerm)

	length := n.log.Length()
	for _, peer := range n.peers.Others() {
		n.nextIndex[peer] = length
		n.matchIndex[peer] = 0
	}

	if n.electionTimer != nil {
		n.electionTimer.Stop()
	}
	n.resetHeartbeatTimer()

	go n.syncAllPeers()
}

// RequestVote handles an incoming vote request (spec.md §4.4). Grant iff
// request.term > self.term; a same-term request from the candidate
// already voted for is reaffirmed rather than denied (a retransmitted or
// duplicate request), anything else with term <= self.term is denied.
func (n *Node) RequestVote(req *VoteRequest) *VoteResponse {
	n.mu.Lock()

	reaffirm := n.votedSet && req.Term == n.currentTerm && n.votedFor == req.Candidate

	if !reaffirm && req.Term <= n.currentTerm {
		term := n.currentTerm
		n.mu.Unlock()
		n.logger.voteDenied(req.Candidate, req.Term, "stale term or already voted for another candidate")
		return &VoteResponse{Term: term, Granted: false, Voter: n.id, Reason: "already voted for another candidate"}
	}

	if !reaffirm {
		n.currentTerm = req.Term
		n.leaderAddr = req.Candidate
		n.votedFor = req.Candidate
		n.votedSet = true
		if n.role != Follower {
			old := n.role
			n.role = Follower
			n.logger.stateChange(old, Follower, req.Term)
		}
		n.persistState()
		n.logger.voteGranted(req.Candidate, req.Term)
	}

	term := n.currentTerm
	n.mu.Unlock()

	n.resetElectionTimer()

	return &VoteResponse{Term: term, Granted: true, Voter: n.id}
}

// stepDown converts to Follower on observing a higher term from any peer
// (spec.md §4.1 Leader, §4.4).
func (n *Node) stepDown(term uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if term <= n.currentTerm {
		return
	}
	n.logger.steppedDown(n.currentTerm, term)
	old := n.role
	n.currentTerm = term
	n.votedSet = false
	n.role = Follower
	n.persistState()
	if old != Follower {
		n.logger.stateChange(old, Follower, term)
	}
	if n.heartbeatTimer != nil {
		n.heartbeatTimer.Stop()
	}
	n.resetElectionTimer()
}

package raft

import "sync"

// RepairHint is the leader-side diagnostic recorded from a follower's
// negative sync ack, consulted on the next tick to choose that follower's
// repair prefix (spec.md §3, §4.3).
type RepairHint struct {
	LastMessage string
	LastTerm    uint64
	LogLength   int
}

// repairHints tracks at most one hint per peer. A newer negative ack
// always replaces an older one (spec.md §9, Open Question 4: "keep the
// latest"); each tick's repair decision reads the hint without removing
// it, and it is cleared only once a successful ack arrives from that peer.
//
// Shaped after the teacher's replication.HintedHandoff (store-per-target,
// get, clear), with its disk persistence dropped — these hints are a
// transient leader-side scratchpad, not data that needs to survive a
// crash.
type repairHints struct {
	mu    sync.Mutex
	hints map[Address]RepairHint
}

func newRepairHints() *repairHints {
	return &repairHints{hints: make(map[Address]RepairHint)}
}

func (h *repairHints) store(peer Address, hint RepairHint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hints[peer] = hint
}

// peek returns the current hint for peer, if any. The hint is acted upon
// (used to compute the next sync's prefix) but only removed once the
// leader observes a successful ack from that peer via clear — a
// still-failing peer gets its hint overwritten by store with fresher
// diagnostics instead (latest-wins, per Open Question 4).
func (h *repairHints) peek(peer Address) (RepairHint, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hint, ok := h.hints[peer]
	return hint, ok
}

func (h *repairHints) clear(peer Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.hints, peer)
}

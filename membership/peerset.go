// Package membership tracks the cluster's peer set: the ordered collection
// of node addresses a Raft node knows about, including itself.
package membership

import "sync"

// PeerSet is a value-equality set of addresses, safe for concurrent use.
// It is generic over the address type so package raft (which owns the
// concrete Address type) can depend on membership without membership
// needing to depend back on raft.
//
// Order is irrelevant for correctness (spec.md §3) but insertion order is
// kept stable for human-facing display (node status, request_log-adjacent
// listings).
//
// Adapted from the teacher's cluster.NodeRegistry (cluster/node_registry.go):
// same "map + RWMutex, copy out on read" shape, but RegisterNode's
// error-on-duplicate behavior is replaced with the no-op-on-duplicate
// idempotent join spec.md's Testable Properties require, and the
// embedded HashRing / key-ownership lookups are dropped — this queue is
// fully replicated, not sharded by key.
type PeerSet[A comparable] struct {
	mu    sync.RWMutex
	self  A
	set   map[A]struct{}
	order []A
}

// NewPeerSet creates a PeerSet containing only self.
func NewPeerSet[A comparable](self A) *PeerSet[A] {
	return &PeerSet[A]{
		self:  self,
		set:   map[A]struct{}{self: {}},
		order: []A{self},
	}
}

// Add inserts addr if absent. Idempotent: a second Add of the same address
// leaves the set unchanged (spec.md §8, "Idempotent join" law).
func (p *PeerSet[A]) Add(addr A) (added bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.set[addr]; exists {
		return false
	}
	p.set[addr] = struct{}{}
	p.order = append(p.order, addr)
	return true
}

// Contains reports whether addr is a known member.
func (p *PeerSet[A]) Contains(addr A) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.set[addr]
	return ok
}

// Others returns every address except self, in stable insertion order —
// the set a leader replicates to.
func (p *PeerSet[A]) Others() []A {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]A, 0, len(p.order)-1)
	for _, a := range p.order {
		if a != p.self {
			out = append(out, a)
		}
	}
	return out
}

// Addresses returns every known address, including self, in stable
// insertion order.
func (p *PeerSet[A]) Addresses() []A {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]A, len(p.order))
	copy(out, p.order)
	return out
}

// Count returns the number of known addresses, including self.
func (p *PeerSet[A]) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Majority returns floor(Count()/2) + 1 — the number of positive votes or
// acks needed for quorum (spec.md invariant 1).
func (p *PeerSet[A]) Majority() int {
	return p.Count()/2 + 1
}

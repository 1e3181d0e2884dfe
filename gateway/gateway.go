// Package gateway implements the client-facing operations spec.md §4.6
// describes: enqueue, dequeue, request_log, and get_node_status, each
// either served directly (this node is the leader) or answered with a
// redirect to whichever node is.
package gateway

import (
	"github.com/sirupsen/logrus"

	"raftqueue/raft"
	"raftqueue/statemachine"
)

// Status codes, mirrored from package raft so callers outside raft don't
// need to import it just to compare a string.
const (
	StatusSuccess    = raft.StatusSuccess
	StatusRedirected = raft.StatusRedirected
	StatusFailure    = raft.StatusFailure
)

// ExecuteResult is what Execute returns: either a completed enqueue/dequeue
// or a redirect to the known leader (spec.md §6: `{ status, ack? }` or
// `{ status:redirected, address }`).
type ExecuteResult struct {
	Status     string       `json:"status"`
	Ack        bool         `json:"ack,omitempty"`
	LeaderAddr raft.Address `json:"address,omitempty"`
}

// RequestLogResult is what RequestLog returns.
type RequestLogResult struct {
	Status     string       `json:"status"`
	Log        string       `json:"log,omitempty"`
	LeaderAddr raft.Address `json:"address,omitempty"`
}

// StatusResult is what Status returns — always success, it is a read of
// local state that every node (leader or not) can answer.
//
// QueueLength and Uptime are SPEC_FULL.md §4.7's additions beyond
// spec.md's terse status sketch.
type StatusResult struct {
	Status          string         `json:"status"`
	Term            uint64         `json:"election_term"`
	Role            string         `json:"type"`
	LeaderAddr      raft.Address   `json:"cluster_leader_addr"`
	Peers           []raft.Address `json:"cluster_addr_list"`
	CommittedLength int            `json:"committed_length"`
	QueueLength     int            `json:"queue_length"`
	UptimeSeconds   float64        `json:"uptime_seconds"`
}

// queueLength is the narrow surface Gateway needs from the state machine
// for status reporting — deliberately not raft.StateMachine (which only
// knows Apply), since queue_length is a domain-specific convenience field
// spec.md's terse status sketch never promised.
type queueLength interface {
	Length() int
}

// Gateway adapts one node's Raft surface to spec.md §4.6's four
// client-facing operations. Grounded on the teacher's server.GRPCServer
// (server/grpc_server.go): a thin layer that logs the call, delegates to
// the backing engine (there: storage.Store; here: raft.Node plus the
// gateway's own redirect/blocking logic), and translates the outcome into
// a response struct — generalized from KV verbs to queue verbs, and from
// "error or not" to the three-way success/redirected/failure status this
// spec's client protocol uses throughout.
type Gateway struct {
	node  *raft.Node
	queue queueLength
	log   *logrus.Entry
}

// New wraps node and the state machine instance it was configured with, so
// Status can report queue_length alongside the Raft-level fields.
func New(node *raft.Node, queue queueLength) *Gateway {
	return &Gateway{
		node:  node,
		queue: queue,
		log:   logrus.WithField("component", "gateway"),
	}
}

// Execute runs method ("enqueue" or "dequeue") with params, per spec.md
// §4.6: on a non-leader, redirect; on the leader, synthesize the command,
// append it locally, and block (bounded by RPC_TIMEOUT*2, per Open
// Question 1's adopted resolution) until a majority has committed it,
// then apply-order guarantees the result is available.
func (g *Gateway) Execute(method string, params []string) any {
	if !g.node.IsLeader() {
		g.log.WithField("method", method).Debug("not leader, redirecting")
		return &ExecuteResult{Status: StatusRedirected, LeaderAddr: g.node.LeaderAddr()}
	}

	var command string
	switch method {
	case "enqueue":
		if len(params) == 0 {
			return &ExecuteResult{Status: StatusFailure}
		}
		command = statemachine.EncodeEnqueue(params[0])
	case "dequeue":
		command = statemachine.EncodeDequeue()
	default:
		return &ExecuteResult{Status: StatusFailure}
	}

	index, _, ok := g.node.AppendCommand(command)
	if !ok {
		// Lost leadership between the IsLeader check and the append.
		return &ExecuteResult{Status: StatusRedirected, LeaderAddr: g.node.LeaderAddr()}
	}

	if !g.node.AwaitCommit(index, 2*g.node.RPCTimeout()) {
		g.log.WithField("index", index).Warn("timed out waiting for commit")
		return &ExecuteResult{Status: StatusFailure}
	}

	g.log.WithFields(logrus.Fields{"method": method, "index": index}).Info("command committed")
	return &ExecuteResult{Status: StatusSuccess, Ack: true}
}

// RequestLog returns a human-readable rendering of the log on the leader,
// or redirects otherwise (spec.md §4.6).
func (g *Gateway) RequestLog() any {
	if !g.node.IsLeader() {
		return &RequestLogResult{Status: StatusRedirected, LeaderAddr: g.node.LeaderAddr()}
	}
	_, _, rendered := g.node.LogSnapshot()
	return &RequestLogResult{Status: StatusSuccess, Log: rendered}
}

// Status reports local node state — answerable by any node regardless of
// role (spec.md §6 get_node_status).
func (g *Gateway) Status() any {
	s := g.node.FullStatus()
	return &StatusResult{
		Status:          StatusSuccess,
		Term:            s.Term,
		Role:            s.Role.String(),
		LeaderAddr:      s.LeaderAddr,
		Peers:           s.Peers,
		CommittedLength: s.CommittedLength,
		QueueLength:     g.queue.Length(),
		UptimeSeconds:   s.Uptime.Seconds(),
	}
}

// Package transport carries RPCs between nodes and from clients to nodes
// over HTTP, with bodies and responses serialized as JSON (spec.md §6:
// "every request and response is a single JSON object").
package transport

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"raftqueue/raft"
)

// NodeHandler is the subset of raft.Node's surface the server dispatches
// inbound RPCs to. Kept as an interface (rather than depending on *raft.Node
// directly) so transport stays testable without spinning up a full node.
type NodeHandler interface {
	Sync(req *raft.SyncRequest) *raft.SyncResponse
	RequestVote(req *raft.VoteRequest) *raft.VoteResponse
	ApplyMembership(req *raft.JoinRequest) *raft.JoinResponse
}

// ClientHandler is the gateway surface the server dispatches client-facing
// calls to.
type ClientHandler interface {
	Execute(method string, params []string) any
	RequestLog() any
	Status() any
}

// Server is the HTTP front door for one node: inter-node RPCs under
// /rpc/..., client calls under /client/....
//
// Grounded on the teacher's server.GRPCServer (server/grpc_server.go) for
// the "thin handler logs the call, delegates to the backing object,
// writes the result back" shape — rebuilt over gorilla/mux instead of a
// generated gRPC service interface, since the wire format here is the
// single-JSON-object envelope spec.md §6 specifies rather than protobuf
// messages.
type Server struct {
	router *mux.Router
	node   NodeHandler
	client ClientHandler
	log    *logrus.Entry
}

// NewServer wires routes per the spec.md §6 RPC table.
func NewServer(node NodeHandler, client ClientHandler) *Server {
	s := &Server{
		router: mux.NewRouter(),
		node:   node,
		client: client,
		log:    logrus.WithField("component", "transport.server"),
	}

	s.router.HandleFunc("/rpc/heartbeat", s.handleSync).Methods(http.MethodPost)
	s.router.HandleFunc("/rpc/apply_membership", s.handleApplyMembership).Methods(http.MethodPost)
	s.router.HandleFunc("/rpc/handle_vote_request", s.handleVoteRequest).Methods(http.MethodPost)
	s.router.HandleFunc("/client/execute", s.handleExecute).Methods(http.MethodPost)
	s.router.HandleFunc("/client/request_log", s.handleRequestLog).Methods(http.MethodGet)
	s.router.HandleFunc("/client/status", s.handleStatus).Methods(http.MethodGet)

	return s
}

// ServeHTTP makes Server an http.Handler, so cmd/server wires it straight
// into http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestLogger(r *http.Request) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"path":       r.URL.Path,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	entry := s.requestLogger(r)
	var req raft.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		entry.WithError(err).Warn("malformed sync request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := s.node.Sync(&req)
	writeJSON(w, entry, resp)
}

func (s *Server) handleApplyMembership(w http.ResponseWriter, r *http.Request) {
	entry := s.requestLogger(r)
	var req raft.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		entry.WithError(err).Warn("malformed join request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := s.node.ApplyMembership(&req)
	writeJSON(w, entry, resp)
}

func (s *Server) handleVoteRequest(w http.ResponseWriter, r *http.Request) {
	entry := s.requestLogger(r)
	var req raft.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		entry.WithError(err).Warn("malformed vote request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := s.node.RequestVote(&req)
	writeJSON(w, entry, resp)
}

type executeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	entry := s.requestLogger(r)
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		entry.WithError(err).Warn("malformed execute request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp := s.client.Execute(req.Method, req.Params)
	writeJSON(w, entry, resp)
}

func (s *Server) handleRequestLog(w http.ResponseWriter, r *http.Request) {
	entry := s.requestLogger(r)
	writeJSON(w, entry, s.client.RequestLog())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entry := s.requestLogger(r)
	writeJSON(w, entry, s.client.Status())
}

func writeJSON(w http.ResponseWriter, entry *logrus.Entry, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		entry.WithError(err).Error("failed to encode response")
	}
}

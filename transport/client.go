package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"raftqueue/raft"
)

// Client implements raft.Transport over HTTP/JSON: one *http.Client shared
// across every peer, a bounded per-call timeout substituting for
// RPC_TIMEOUT (spec.md §5).
//
// Grounded on the teacher's client.KVClient (client/grpc_client.go): same
// "one struct wraps one outbound connection, every call gets its own
// timeout context" shape, adapted from a persistent gRPC ClientConn (dial
// once, reuse) to a single *http.Client addressed per call, whose default
// transport pools connections per peer, since peers come and go as
// membership changes.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// NewClient builds a Client with the given per-call timeout (normally
// Config.RPCTimeout).
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (c *Client) Sync(peer raft.Address, req *raft.SyncRequest) (*raft.SyncResponse, error) {
	var resp raft.SyncResponse
	if err := c.post(peer, "/rpc/heartbeat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RequestVote(peer raft.Address, req *raft.VoteRequest) (*raft.VoteResponse, error) {
	var resp raft.VoteResponse
	if err := c.post(peer, "/rpc/handle_vote_request", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ApplyMembership(peer raft.Address, req *raft.JoinRequest) (*raft.JoinResponse, error) {
	var resp raft.JoinResponse
	if err := c.post(peer, "/rpc/apply_membership", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(peer raft.Address, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("transport: encoding request for %s: %w", path, err)
	}

	url := "http://" + peer.String() + path
	resp, err := c.http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("transport: calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: %s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("transport: decoding response from %s: %w", url, err)
	}
	return nil
}

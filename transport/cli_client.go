package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"raftqueue/raft"
)

// ExecuteReply mirrors gateway.ExecuteResult's wire shape, decoded
// independently here so the CLI side doesn't need to import the gateway
// package just to read a response.
type ExecuteReply struct {
	Status     string       `json:"status"`
	Ack        bool         `json:"ack,omitempty"`
	LeaderAddr raft.Address `json:"address,omitempty"`
}

// RequestLogReply mirrors gateway.RequestLogResult.
type RequestLogReply struct {
	Status     string       `json:"status"`
	Log        string       `json:"log,omitempty"`
	LeaderAddr raft.Address `json:"address,omitempty"`
}

// StatusReply mirrors gateway.StatusResult.
type StatusReply struct {
	Status          string         `json:"status"`
	Term            uint64         `json:"election_term"`
	Role            string         `json:"type"`
	LeaderAddr      raft.Address   `json:"cluster_leader_addr"`
	Peers           []raft.Address `json:"cluster_addr_list"`
	CommittedLength int            `json:"committed_length"`
	QueueLength     int            `json:"queue_length"`
	UptimeSeconds   float64        `json:"uptime_seconds"`
}

// CLIClient is the interactive client's HTTP connection to whatever node
// it is currently pointed at (cmd/client follows redirects by swapping
// the target address and retrying, rather than this type doing it
// internally — keeps the handshake loop visible in the REPL's own code,
// matching the teacher's client.KVClient's "thin, dumb pipe" philosophy).
type CLIClient struct {
	http *http.Client
}

// NewCLIClient builds a client with a generous fixed timeout — the
// interactive client waits on a human, not a protocol deadline.
func NewCLIClient() *CLIClient {
	return &CLIClient{http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *CLIClient) Execute(target raft.Address, method string, params []string) (*ExecuteReply, error) {
	body := map[string]any{"method": method, "params": params}
	var reply ExecuteReply
	if err := c.postJSON(target, "/client/execute", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *CLIClient) RequestLog(target raft.Address) (*RequestLogReply, error) {
	var reply RequestLogReply
	if err := c.getJSON(target, "/client/request_log", &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *CLIClient) Status(target raft.Address) (*StatusReply, error) {
	var reply StatusReply
	if err := c.getJSON(target, "/client/status", &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *CLIClient) postJSON(target raft.Address, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("client: encoding request: %w", err)
	}
	url := "http://" + target.String() + path
	resp, err := c.http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("client: calling %s: %w", url, err)
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *CLIClient) getJSON(target raft.Address, path string, out any) error {
	url := "http://" + target.String() + path
	resp, err := c.http.Get(url)
	if err != nil {
		return fmt.Errorf("client: calling %s: %w", url, err)
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

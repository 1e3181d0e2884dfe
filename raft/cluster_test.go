package raft

import (
	"sync"
	"testing"
	"time"

	"raftqueue/statemachine"
)

// fakeTransport routes RPCs between in-process Nodes sharing the same
// test binary, keyed by address — a stand-in for transport.Client that
// lets these tests exercise the full election/replication/repair paths
// without opening real sockets.
type fakeTransport struct {
	mu    sync.Mutex
	nodes map[Address]*Node
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nodes: make(map[Address]*Node)}
}

func (f *fakeTransport) register(n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[n.id] = n
}

func (f *fakeTransport) lookup(addr Address) (*Node, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[addr]
	return n, ok
}

func (f *fakeTransport) Sync(peer Address, req *SyncRequest) (*SyncResponse, error) {
	n, ok := f.lookup(peer)
	if !ok {
		return nil, errUnreachable
	}
	return n.Sync(req), nil
}

func (f *fakeTransport) RequestVote(peer Address, req *VoteRequest) (*VoteResponse, error) {
	n, ok := f.lookup(peer)
	if !ok {
		return nil, errUnreachable
	}
	return n.RequestVote(req), nil
}

func (f *fakeTransport) ApplyMembership(peer Address, req *JoinRequest) (*JoinResponse, error) {
	n, ok := f.lookup(peer)
	if !ok {
		return nil, errUnreachable
	}
	return n.ApplyMembership(req), nil
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

const errUnreachable = staticErr("raft: peer unreachable")

func addr(port int) Address { return Address{IP: "127.0.0.1", Port: port} }

// newTestCluster builds n unstarted nodes sharing one fakeTransport, each
// already knowing the full peer list (bypassing the ApplyMembership
// handshake, which is covered separately); each test then starts one as
// seed leader and the rest as followers — fast to spin up and tear down.
func newTestCluster(t *testing.T, n int) (*fakeTransport, []*Node) {
	t.Helper()
	tr := newFakeTransport()
	addrs := make([]Address, n)
	for i := 0; i < n; i++ {
		addrs[i] = addr(9000 + i)
	}

	nodes := make([]*Node, n)
	for i, a := range addrs {
		peers := make([]Address, 0, n-1)
		for _, other := range addrs {
			if other != a {
				peers = append(peers, other)
			}
		}
		cfg := Config{
			ID:              a,
			Peers:           peers,
			StateMachine:    statemachine.NewQueue(),
			Transport:       tr,
			HeartbeatPeriod: 10 * time.Millisecond,
		}
		node := NewNode(cfg)
		tr.register(node)
		nodes[i] = node
	}

	for _, node := range nodes {
		t.Cleanup(node.Shutdown)
	}
	return tr, nodes
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestCluster_SingleNodeBootstrapsAsLeaderImmediately(t *testing.T) {
	_, nodes := newTestCluster(t, 1)
	nodes[0].Start(true)

	if !nodes[0].IsLeader() {
		t.Fatal("a lone node should become leader immediately on seed start")
	}

	index, _, ok := nodes[0].AppendCommand(`enqueue("hello")`)
	if !ok {
		t.Fatal("expected leader to accept AppendCommand")
	}
	if !nodes[0].AwaitCommit(index, time.Second) {
		t.Fatal("expected single-node entry to commit immediately")
	}
}

func TestCluster_ThreeNodeReplication(t *testing.T) {
	_, nodes := newTestCluster(t, 3)
	nodes[0].Start(true)
	nodes[1].Start(false)
	nodes[2].Start(false)

	index, _, ok := nodes[0].AppendCommand(`enqueue("a")`)
	if !ok {
		t.Fatal("expected leader to accept AppendCommand")
	}
	if !nodes[0].AwaitCommit(index, time.Second) {
		t.Fatal("expected entry to commit across a 3-node majority")
	}

	ok = waitFor(t, time.Second, func() bool {
		for _, n := range nodes[1:] {
			_, committed, _ := n.LogSnapshot()
			if committed <= index {
				return false
			}
		}
		return true
	})
	if !ok {
		t.Fatal("expected followers to eventually learn the advanced commit length")
	}
}

func TestCluster_FollowerCatchesUpAfterJoiningLate(t *testing.T) {
	tr, nodes := newTestCluster(t, 1)
	nodes[0].Start(true)

	for i := 0; i < 3; i++ {
		index, _, ok := nodes[0].AppendCommand(`enqueue("x")`)
		if !ok {
			t.Fatal("expected leader to accept AppendCommand")
		}
		if !nodes[0].AwaitCommit(index, time.Second) {
			t.Fatal("expected entry to commit on the seed leader alone")
		}
	}

	lateQueue := statemachine.NewQueue()
	late := NewNode(Config{
		ID:              addr(9999),
		StateMachine:    lateQueue,
		Transport:       tr,
		HeartbeatPeriod: 10 * time.Millisecond,
	})
	tr.register(late)
	t.Cleanup(late.Shutdown)

	resp := nodes[0].ApplyMembership(&JoinRequest{Addr: late.id})
	if resp.Status != StatusSuccess {
		t.Fatalf("expected leader to accept join, got status %q", resp.Status)
	}
	late.SeedFromLeader(resp.Term, resp.Entries)
	late.Start(false)

	ok := waitFor(t, time.Second, func() bool {
		_, committed, _ := late.LogSnapshot()
		return committed >= 3
	})
	if !ok {
		t.Fatal("expected late-joining follower to catch up via ongoing sync")
	}

	// The log-level counter catching up is not enough on its own — the
	// commands behind it must actually have reached the joiner's state
	// machine, not just be counted as committed.
	ok = waitFor(t, time.Second, func() bool {
		return len(lateQueue.Snapshot()) == 3
	})
	if !ok {
		t.Fatalf("expected the joiner's state machine to hold all 3 pre-join commands, got %v", lateQueue.Snapshot())
	}
}

func TestCluster_ElectsNewLeaderAfterLeaderIsolated(t *testing.T) {
	_, nodes := newTestCluster(t, 3)
	for i, n := range nodes {
		n.Start(i == 0)
	}

	ok := waitFor(t, time.Second, func() bool { return nodes[0].IsLeader() })
	if !ok {
		t.Fatal("expected node 0 to be leader")
	}

	// Isolate the leader by shutting it down (stand-in for a network
	// partition: it simply stops participating).
	nodes[0].Shutdown()

	ok = waitFor(t, 2*time.Second, func() bool {
		return nodes[1].IsLeader() || nodes[2].IsLeader()
	})
	if !ok {
		t.Fatal("expected a surviving node to win a new election")
	}
}

func TestCluster_LogRepairAfterStaleFollowerRejoinsSync(t *testing.T) {
	_, nodes := newTestCluster(t, 3)
	nodes[0].Start(true)
	nodes[1].Start(false)
	nodes[2].Start(false)

	index, _, _ := nodes[0].AppendCommand(`enqueue("first")`)
	nodes[0].AwaitCommit(index, time.Second)

	waitFor(t, time.Second, func() bool {
		_, committed, _ := nodes[1].LogSnapshot()
		return committed > index
	})

	// Force node 1 out of sync with a bogus local entry that conflicts
	// with the leader's log, simulating a partition that healed with
	// divergent state.
	nodes[1].mu.Lock()
	nodes[1].log.entries = append(nodes[1].log.entries, LogEntry{Term: 99, Command: "garbage"})
	nodes[1].mu.Unlock()

	index2, _, _ := nodes[0].AppendCommand(`enqueue("second")`)
	if !nodes[0].AwaitCommit(index2, time.Second) {
		t.Fatal("expected second entry to still commit via the other follower")
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		leaderLength, _, leaderRendered := nodes[0].LogSnapshot()
		length, _, rendered := nodes[1].LogSnapshot()
		return length == leaderLength && rendered == leaderRendered
	})
	if !ok {
		t.Fatal("expected the repaired follower's log to eventually match the leader's")
	}
}

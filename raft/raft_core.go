package raft

import (
	"sync"
	"time"

	"raftqueue/membership"
)

// Config holds the construction-time parameters for a Node.
type Config struct {
	ID              Address
	Peers           []Address // does not include ID; may be empty (seed leader)
	StateMachine    StateMachine
	Transport       Transport
	Persister       Persister     // optional, spec.md §9 Open Question 3
	ElectionMin     time.Duration // ELECTION_MIN, spec.md §4.1
	ElectionMax     time.Duration // ELECTION_MAX
	HeartbeatPeriod time.Duration // HEARTBEAT_INTERVAL
	RPCTimeout      time.Duration // RPC_TIMEOUT, spec.md §5
}

func (c *Config) setDefaults() {
	if c.HeartbeatPeriod == 0 {
		c.HeartbeatPeriod = 100 * time.Millisecond
	}
	if c.ElectionMin == 0 {
		c.ElectionMin = 8 * c.HeartbeatPeriod
	}
	if c.ElectionMax == 0 {
		c.ElectionMax = 2 * c.ElectionMin
	}
	if c.RPCTimeout == 0 {
		c.RPCTimeout = 2 * time.Second
	}
}

// Node is a single member of the Raft cluster: role, term, vote, log, peer
// set, and the timers driving elections and heartbeats. All mutable state
// is guarded by mu — the role loop and every inbound RPC/client handler
// serialize through it (spec.md §5's "single-writer discipline...e.g. via
// a coarse mutex"); outbound sync/vote RPCs run as ephemeral per-peer
// goroutines that only touch mu to snapshot state before the call and
// fold the response back in after.
type Node struct {
	mu sync.RWMutex

	id    Address
	peers *membership.PeerSet[Address]

	currentTerm uint64
	votedFor    Address
	votedSet    bool
	log         Log
	role        Role
	leaderAddr  Address

	// Leader-only, reset on becomeLeader.
	nextIndex  map[Address]int
	matchIndex map[Address]int
	hints      *repairHints

	cfg       Config
	sm        StateMachine
	tr        Transport
	persister Persister

	electionTimer  *time.Timer
	heartbeatTimer *time.Timer

	wakeCh     chan struct{} // leader: new local entry to replicate now
	shutdownCh chan struct{}
	shutOnce   sync.Once

	commitCond *sync.Cond // signaled whenever committedLength advances

	startedAt time.Time // zero until Start, used for uptime reporting

	logger *nodeLogger
}

// NewNode constructs a node in Follower role with an empty log.
func NewNode(cfg Config) *Node {
	cfg.setDefaults()

	peers := membership.NewPeerSet(cfg.ID)
	for _, p := range cfg.Peers {
		peers.Add(p)
	}

	n := &Node{
		id:         cfg.ID,
		peers:      peers,
		role:       Follower,
		cfg:        cfg,
		sm:         cfg.StateMachine,
		tr:         cfg.Transport,
		persister:  cfg.Persister,
		nextIndex:  make(map[Address]int),
		matchIndex: make(map[Address]int),
		hints:      newRepairHints(),
		wakeCh:     make(chan struct{}, 1),
		shutdownCh: make(chan struct{}),
		logger:     newNodeLogger(cfg.ID.String()),
	}
	n.commitCond = sync.NewCond(&n.mu)
	return n
}

// Start begins the election/heartbeat timer loop. With seedLeader true the
// node sets its term to 1 and starts directly as Leader (spec.md §3
// Lifecycle), whatever peers it was configured with; otherwise it starts
// as a Follower awaiting contact.
func (n *Node) Start(seedLeader bool) {
	n.mu.Lock()
	n.startedAt = time.Now()
	n.electionTimer = time.NewTimer(n.randomElectionTimeout())
	n.heartbeatTimer = time.NewTimer(n.cfg.HeartbeatPeriod)
	n.heartbeatTimer.Stop()
	if seedLeader {
		n.currentTerm = 1
		n.becomeLeaderLocked()
	}
	n.mu.Unlock()

	go n.run()
}

func (n *Node) randomElectionTimeout() time.Duration {
	lo := int(n.cfg.ElectionMin)
	hi := int(n.cfg.ElectionMax)
	return time.Duration(randomInt(lo, hi))
}

func (n *Node) run() {
	for {
		select {
		case <-n.shutdownCh:
			return

		case <-n.electionTimer.C:
			n.logger.electionTimeout()
			n.startElection()

		case <-n.heartbeatTimer.C:
			if n.getRole() == Leader {
				n.syncAllPeers()
				n.resetHeartbeatTimer()
			}

		case <-n.wakeCh:
			if n.getRole() == Leader {
				n.syncAllPeers()
			}
		}
	}
}

// Shutdown stops the node's timers and loop. Idempotent.
func (n *Node) Shutdown() {
	n.shutOnce.Do(func() {
		close(n.shutdownCh)
		n.mu.Lock()
		if n.electionTimer != nil {
			n.electionTimer.Stop()
		}
		if n.heartbeatTimer != nil {
			n.heartbeatTimer.Stop()
		}
		n.mu.Unlock()
	})
}

func (n *Node) resetElectionTimer() {
	// Reset in place: run() may already be blocked on this timer's channel,
	// so swapping in a new timer would leave it waiting on a stopped one.
	if n.electionTimer != nil {
		n.electionTimer.Reset(n.randomElectionTimeout())
		return
	}
	n.electionTimer = time.NewTimer(n.randomElectionTimeout())
}

func (n *Node) resetHeartbeatTimer() {
	if n.heartbeatTimer != nil {
		n.heartbeatTimer.Stop()
	}
	n.heartbeatTimer = time.NewTimer(n.cfg.HeartbeatPeriod)
}

func (n *Node) getRole() Role {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.role
}

// ID returns this node's own address.
func (n *Node) ID() Address { return n.id }

// State returns (term, role, leaderAddr) under the lock.
func (n *Node) State() (uint64, Role, Address) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.currentTerm, n.role, n.leaderAddr
}

// Peers returns the current peer set's addresses, including self.
func (n *Node) Peers() []Address {
	return n.peers.Addresses()
}

// LogSnapshot returns (length, committedLength, render) under the lock.
func (n *Node) LogSnapshot() (length, committed int, rendered string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.log.Length(), n.log.CommittedLength(), n.log.Render()
}

func (n *Node) wakeLeader() {
	select {
	case n.wakeCh <- struct{}{}:
	default:
	}
}

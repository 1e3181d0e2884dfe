package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"raftqueue/gateway"
	"raftqueue/persist"
	"raftqueue/raft"
	"raftqueue/statemachine"
	"raftqueue/transport"
)

var (
	passive bool
	walDir  string
)

// Grounded on the teacher's cmd/server/main.go: a flag-parsed, single
// long-running process that wires its backing engine together and then
// blocks serving requests — generalized from a bufio.Scanner PUT/GET/
// DELETE/STATS REPL (a store has no peers to coordinate with) to a Raft
// node that must additionally join a cluster or seed a new one before it
// can start serving, and argument parsing upgraded from bare `flag` to
// `spf13/cobra` per the rest of the corpus's CLI convention.
func main() {
	root := &cobra.Command{
		Use:   "raftqueue-server <ip> <port> [contact_ip] [contact_port]",
		Short: "Runs one node of a replicated FIFO queue cluster",
		Args:  cobra.RangeArgs(2, 4),
		RunE:  runServer,
	}
	root.Flags().BoolVarP(&passive, "passive", "p", false, "start as a passive follower awaiting contact")
	root.Flags().StringVar(&walDir, "wal", "", "directory for optional write-ahead persistence")

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	selfAddr, err := parseAddr(args[0], args[1])
	if err != nil {
		return fmt.Errorf("parsing own address: %w", err)
	}

	log := logrus.WithField("node", selfAddr.String())

	queue := statemachine.NewQueue()
	rpcTimeout := 2 * time.Second
	client := transport.NewClient(rpcTimeout)

	var persister raft.Persister
	var recoveredEntries []raft.LogEntry
	var recoveredTerm uint64
	var recoveredVote raft.Address
	if walDir != "" {
		wal, err := persist.Open(walDir)
		if err != nil {
			return fmt.Errorf("opening WAL: %w", err)
		}
		defer wal.Close()
		recoveredTerm, recoveredVote, recoveredEntries, err = persist.Recover(wal)
		if err != nil {
			return fmt.Errorf("recovering from WAL: %w", err)
		}
		persister = persist.NewAdapter(wal)
		log.WithField("entries", len(recoveredEntries)).Info("recovered from write-ahead log")
	}

	cfg := raft.Config{
		ID:           selfAddr,
		StateMachine: queue,
		Transport:    client,
		Persister:    persister,
		RPCTimeout:   rpcTimeout,
	}

	switch {
	case len(args) == 4:
		contactAddr, err := parseAddr(args[2], args[3])
		if err != nil {
			return fmt.Errorf("parsing contact address: %w", err)
		}
		node, err := joinCluster(cfg, client, selfAddr, contactAddr, log)
		if err != nil {
			return err
		}
		return serve(node, queue, log)

	case passive:
		node := raft.NewNode(cfg)
		if len(recoveredEntries) > 0 || recoveredTerm > 0 {
			node.Restore(recoveredTerm, recoveredVote, recoveredEntries)
		}
		node.Start(false)
		log.Info("started as passive follower, awaiting contact")
		return serve(node, queue, log)

	default:
		node := raft.NewNode(cfg)
		node.Start(true)
		log.Info("started as seed leader of a new cluster")
		return serve(node, queue, log)
	}
}

// joinCluster performs spec.md §4.5's handshake: ApplyMembership against
// contactAddr, following redirects until it reaches the actual leader,
// then seeds a new node from the leader's reply.
func joinCluster(cfg raft.Config, client *transport.Client, selfAddr, contactAddr raft.Address, log *logrus.Entry) (*raft.Node, error) {
	target := contactAddr
	for attempt := 0; attempt < 10; attempt++ {
		resp, err := client.ApplyMembership(target, &raft.JoinRequest{Addr: selfAddr})
		if err != nil {
			return nil, fmt.Errorf("contacting %s: %w", target, err)
		}
		if resp.Status == raft.StatusRedirected {
			if resp.LeaderAddr.Zero() {
				return nil, fmt.Errorf("join: %s has no known leader yet, retry later", target)
			}
			log.WithField("leader", resp.LeaderAddr.String()).Debug("following redirect to leader")
			target = resp.LeaderAddr
			continue
		}

		cfg.Peers = withoutSelf(resp.Peers, selfAddr)
		node := raft.NewNode(cfg)
		node.SeedFromLeader(resp.Term, resp.Entries)
		node.Start(false)
		log.WithField("leader", target.String()).Info("joined cluster")
		return node, nil
	}
	return nil, fmt.Errorf("join: too many redirects starting from %s", contactAddr)
}

func withoutSelf(peers []raft.Address, self raft.Address) []raft.Address {
	out := make([]raft.Address, 0, len(peers))
	for _, p := range peers {
		if p != self {
			out = append(out, p)
		}
	}
	return out
}

func serve(node *raft.Node, queue *statemachine.Queue, log *logrus.Entry) error {
	defer node.Shutdown()

	gw := gateway.New(node, queue)
	server := transport.NewServer(node, gw)

	log.WithField("addr", node.ID().String()).Info("listening")
	return http.ListenAndServe(node.ID().String(), server)
}

func parseAddr(ip, portStr string) (raft.Address, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return raft.Address{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return raft.Address{IP: ip, Port: port}, nil
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"raftqueue/raft"
	"raftqueue/transport"
)

// Grounded on the teacher's cmd/client/main.go: printBanner/printHelp
// texture and the bufio.Scanner "> " REPL loop with strings.Fields
// command dispatch, kept near-verbatim — generalized from PUT/GET/
// DELETE/STATS/COMPACT verbs to enqueue/dequeue/log/status/node-change,
// and from a single fixed server connection to one that follows
// spec.md §4.6's leader-redirect handshake, caching the leader address a
// redirect points to.
func main() {
	root := &cobra.Command{
		Use:   "raftqueue-client <ip> <port>",
		Short: "Interactive client for a replicated FIFO queue cluster",
		Args:  cobra.ExactArgs(2),
		RunE:  runClient,
	}

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("client exited")
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}
	target := raft.Address{IP: args[0], Port: port}

	printBanner()
	fmt.Printf("📡 Contacting %s...\n", target.String())
	printHelp()

	client := transport.NewCLIClient()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)

		switch strings.ToLower(parts[0]) {
		case "enqueue", "enq":
			if len(parts) < 2 {
				fmt.Println("Usage: enqueue <message>")
				continue
			}
			message := strings.Join(parts[1:], " ")
			target = execute(client, target, "enqueue", []string{message})

		case "dequeue", "deq":
			target = execute(client, target, "dequeue", nil)

		case "log", "request_log":
			target = requestLog(client, target)

		case "node":
			if len(parts) < 2 {
				fmt.Println("Usage: node status | node change <ip> <port>")
				continue
			}
			switch strings.ToLower(parts[1]) {
			case "status":
				nodeStatus(client, target)
			case "change":
				if len(parts) != 4 {
					fmt.Println("Usage: node change <ip> <port>")
					continue
				}
				p, err := strconv.Atoi(parts[3])
				if err != nil {
					fmt.Printf("❌ Invalid port %q\n", parts[3])
					continue
				}
				target = raft.Address{IP: parts[2], Port: p}
				fmt.Printf("✅ Now talking to %s\n", target.String())
			default:
				fmt.Println("Usage: node status | node change <ip> <port>")
			}

		case "help":
			printHelp()

		case "exit", "quit":
			fmt.Println("👋 Disconnecting...")
			return nil

		default:
			fmt.Printf("❓ Unknown command: %s\n", parts[0])
			fmt.Println("Type help for available commands")
		}
	}

	return scanner.Err()
}

// execute runs an enqueue/dequeue against target, following at most one
// redirect to the leader it reports, and returns the address future
// commands should be sent to.
func execute(client *transport.CLIClient, target raft.Address, method string, params []string) raft.Address {
	reply, err := client.Execute(target, method, params)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		return target
	}

	if reply.Status == "redirected" {
		if reply.LeaderAddr.Zero() {
			fmt.Println("⏳ No leader known yet, try again shortly")
			return target
		}
		fmt.Printf("↪️  Redirected to leader %s, retrying...\n", reply.LeaderAddr.String())
		leader := reply.LeaderAddr
		reply, err = client.Execute(leader, method, params)
		if err != nil {
			fmt.Printf("❌ Error: %v\n", err)
			return leader
		}
		target = leader
	}

	if reply.Status == "success" {
		fmt.Println("✅ ok")
	} else {
		fmt.Printf("%s\n", reply.Status)
	}
	return target
}

func requestLog(client *transport.CLIClient, target raft.Address) raft.Address {
	reply, err := client.RequestLog(target)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		return target
	}
	if reply.Status == "redirected" {
		if reply.LeaderAddr.Zero() {
			fmt.Println("⏳ No leader known yet, try again shortly")
			return target
		}
		fmt.Printf("↪️  Redirected to leader %s, retrying...\n", reply.LeaderAddr.String())
		leader := reply.LeaderAddr
		reply, err = client.RequestLog(leader)
		if err != nil {
			fmt.Printf("❌ Error: %v\n", err)
			return target
		}
		target = leader
	}
	fmt.Print(reply.Log)
	return target
}

func nodeStatus(client *transport.CLIClient, target raft.Address) {
	reply, err := client.Status(target)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		return
	}
	fmt.Printf("term=%d role=%s leader=%s committed=%d peers=%d queue_length=%d uptime=%.0fs\n",
		reply.Term, reply.Role, reply.LeaderAddr.String(), reply.CommittedLength, len(reply.Peers),
		reply.QueueLength, reply.UptimeSeconds)
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║     🖥️  raftqueue CLI Client                              ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
}

func printHelp() {
	help := `
📝 Available commands:
  enqueue|enq <msg>          append a message to the queue
  dequeue|deq                pop the oldest message
  log|request_log            show the leader's command log
  node status                show this node's term/role/leader
  node change <ip> <port>    point the client at a different node
  help                       show this help message
  exit                       disconnect
`
	fmt.Println(help)
}

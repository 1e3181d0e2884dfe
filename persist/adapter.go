package persist

import (
	"strconv"
	"strings"

	"raftqueue/raft"
)

// Adapter implements raft.Persister over a WAL, translating between
// raft's (Address, LogEntry) types and the WAL's flat Record encoding.
type Adapter struct {
	wal *WAL
}

// NewAdapter wraps an already-open WAL.
func NewAdapter(wal *WAL) *Adapter {
	return &Adapter{wal: wal}
}

func (a *Adapter) Append(term uint64, votedFor raft.Address, index int, entry raft.LogEntry) error {
	return a.wal.Write(Record{
		Term:      term,
		VotedFor:  encodeAddr(votedFor),
		Index:     index,
		EntryTerm: entry.Term,
		Command:   entry.Command,
	})
}

func (a *Adapter) PersistState(term uint64, votedFor raft.Address) error {
	return a.wal.Write(Record{
		Term:     term,
		VotedFor: encodeAddr(votedFor),
		Index:    -1,
	})
}

// Recover replays the WAL into (term, votedFor, entries) a Node can seed
// its startup state from. Only the latest term/votedFor observed across
// all records is kept; entries are folded in index order, with a later
// record at the same index overwriting an earlier one (covers a log that
// was truncated and re-appended before a crash).
func Recover(wal *WAL) (term uint64, votedFor raft.Address, entries []raft.LogEntry, err error) {
	records, err := wal.ReadAll()
	if err != nil {
		return 0, raft.Address{}, nil, err
	}

	var log []raft.LogEntry
	for _, r := range records {
		term = r.Term
		votedFor = decodeAddr(r.VotedFor)
		if r.Index < 0 {
			continue // state-only record, no log entry
		}
		for len(log) <= r.Index {
			log = append(log, raft.LogEntry{})
		}
		log = log[:r.Index+1]
		log[r.Index] = raft.LogEntry{Term: r.EntryTerm, Command: r.Command}
	}

	return term, votedFor, log, nil
}

func encodeAddr(a raft.Address) string {
	if a.Zero() {
		return ""
	}
	return a.String()
}

func decodeAddr(s string) raft.Address {
	if s == "" {
		return raft.Address{}
	}
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return raft.Address{}
	}
	port, _ := strconv.Atoi(s[idx+1:])
	return raft.Address{IP: s[:idx], Port: port}
}

package raft

import "strconv"

// Log is the in-memory append-only sequence of log entries (spec.md §4.2).
// It is not safe for concurrent use; callers serialize access through
// Node's mutex.
type Log struct {
	entries         []LogEntry
	committedLength int
}

// Length returns the number of entries currently in the log.
func (l *Log) Length() int {
	return len(l.entries)
}

// CommittedLength returns the length of the prefix already applied to the
// state machine.
func (l *Log) CommittedLength() int {
	return l.committedLength
}

// LastTerm returns the term of the last entry, or 0 if the log is empty.
func (l *Log) LastTerm() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

// At returns the entry at index i. Callers must ensure 0 <= i < Length().
func (l *Log) At(i int) LogEntry {
	return l.entries[i]
}

// Entries returns a defensive copy of the full log.
func (l *Log) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Suffix returns a defensive copy of entries[from:].
func (l *Log) Suffix(from int) []LogEntry {
	if from >= len(l.entries) {
		return nil
	}
	out := make([]LogEntry, len(l.entries)-from)
	copy(out, l.entries[from:])
	return out
}

// Consistent reports whether this log could follow the given prefix: the
// log must be at least prefixLen long, and if prefixLen > 0 the entry
// immediately before the prefix must carry prefixLastTerm.
func (l *Log) Consistent(prefixLen int, prefixLastTerm uint64) bool {
	if len(l.entries) < prefixLen {
		return false
	}
	if prefixLen == 0 {
		return true
	}
	return l.entries[prefixLen-1].Term == prefixLastTerm
}

// Append truncates any suffix beyond prefixLen (if the log is currently
// longer) and appends entries after it. A no-op if entries is empty and
// prefixLen already equals the current length (spec.md §4.2, §8 heartbeat
// idempotence law).
//
// Truncation never drops committed entries: invariant 4 (commit safety)
// guarantees a committed entry is never asked to be truncated by a valid
// peer message, so truncation only ever happens at or past
// committedLength and never lowers it. If a caller manages to violate that, this is
// a core bug, not a reachable protocol condition, so we panic rather than
// silently corrupt the applied prefix (spec.md §9, Open Question 5).
func (l *Log) Append(entries []LogEntry, prefixLen int) {
	if len(entries) == 0 && prefixLen == len(l.entries) {
		return
	}

	if prefixLen < len(l.entries) {
		if prefixLen < l.committedLength {
			panic("raft: log truncation would cut into committed prefix")
		}
		l.entries = l.entries[:prefixLen]
	}

	l.entries = append(l.entries, entries...)
}

// advanceCommit raises committedLength to n. n must be >= the current
// committedLength and <= Length(); commit safety (invariant 4) is the
// caller's responsibility to establish before calling this.
func (l *Log) advanceCommit(n int) {
	if n > l.committedLength {
		l.committedLength = n
	}
}

// Render produces the human-readable "Term: t | Method: cmd" listing used
// by request_log (spec.md §4.6).
func (l *Log) Render() string {
	var out []byte
	for _, e := range l.entries {
		out = append(out, renderEntry(e)...)
		out = append(out, '\n')
	}
	return string(out)
}

func renderEntry(e LogEntry) string {
	return "Term: " + strconv.FormatUint(e.Term, 10) + " | Method: " + e.Command
}

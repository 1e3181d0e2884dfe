package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raftqueue/raft"
)

func TestAdapter_AppendThenRecoverRebuildsLog(t *testing.T) {
	wal, err := Open(t.TempDir())
	require.NoError(t, err)
	defer wal.Close()

	a := NewAdapter(wal)
	voter := raft.Address{IP: "127.0.0.1", Port: 9000}

	require.NoError(t, a.PersistState(1, voter))
	require.NoError(t, a.Append(1, voter, 0, raft.LogEntry{Term: 1, Command: `enqueue("a")`}))
	require.NoError(t, a.Append(1, voter, 1, raft.LogEntry{Term: 1, Command: `enqueue("b")`}))

	term, votedFor, entries, err := Recover(wal)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), term)
	assert.Equal(t, voter, votedFor)
	require.Len(t, entries, 2)
	assert.Equal(t, `enqueue("a")`, entries[0].Command)
	assert.Equal(t, `enqueue("b")`, entries[1].Command)
}

func TestAdapter_RecoverFoldsOverwrittenIndex(t *testing.T) {
	wal, err := Open(t.TempDir())
	require.NoError(t, err)
	defer wal.Close()

	a := NewAdapter(wal)
	voter := raft.Address{IP: "127.0.0.1", Port: 9000}

	require.NoError(t, a.Append(1, voter, 0, raft.LogEntry{Term: 1, Command: "first"}))
	require.NoError(t, a.Append(1, voter, 1, raft.LogEntry{Term: 1, Command: "second"}))
	// A later leader truncates and re-appends at index 1 with a new term.
	require.NoError(t, a.Append(2, voter, 1, raft.LogEntry{Term: 2, Command: "replacement"}))

	_, _, entries, err := Recover(wal)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Command)
	assert.Equal(t, "replacement", entries[1].Command)
	assert.Equal(t, uint64(2), entries[1].Term)
}

func TestAdapter_RecoverEmptyWAL(t *testing.T) {
	wal, err := Open(t.TempDir())
	require.NoError(t, err)
	defer wal.Close()

	term, votedFor, entries, err := Recover(wal)
	require.NoError(t, err)
	assert.Zero(t, term)
	assert.True(t, votedFor.Zero())
	assert.Empty(t, entries)
}

func TestEncodeDecodeAddr_RoundTrips(t *testing.T) {
	a := raft.Address{IP: "192.168.1.5", Port: 7001}
	assert.Equal(t, a, decodeAddr(encodeAddr(a)))
}

func TestEncodeDecodeAddr_ZeroAddressRoundTripsThroughEmptyString(t *testing.T) {
	assert.Equal(t, "", encodeAddr(raft.Address{}))
	assert.True(t, decodeAddr("").Zero())
}

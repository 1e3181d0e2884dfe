// Package persist implements the optional write-ahead log for a node's
// durable Raft state (spec.md §9 Open Question 3: "MAY add write-ahead
// persistence"). Off by default; a server started with a WAL directory
// appends every subsequent mutation to it, and on a passive (-p) start it
// first restores (term, votedFor, log) from it.
package persist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Record is one persisted mutation: the term and vote in effect when the
// entry at Index was appended, plus the entry itself. Re-appending the
// full (term, votedFor) pair on every record is redundant with a proper
// separate "currentTerm changed" record, but keeps recovery a single
// linear scan with no cross-record state beyond "last record wins" —
// the same trade the teacher's WAL makes by writing a full Entry, rather
// than a delta, on every Put.
type Record struct {
	Term      uint64
	VotedFor  string // Address.String(), "" if unset
	Index     int
	EntryTerm uint64
	Command   string
}

// WAL is a length-prefixed append-only binary log.
//
// Grounded on storage/wal.go nearly structurally intact: same
// binary.Write-per-field framing and buffered-writer-flush-per-write
// policy (including the teacher's own rationale for skipping fsync on
// every write, kept below), with the record payload changed from
// (timestamp, op, key, value) KV entries to (term, votedFor, index,
// entryTerm, command) Raft entries.
type WAL struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	path   string
}

// Open creates (or reopens) the WAL file under dirPath.
func Open(dirPath string) (*WAL, error) {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return nil, fmt.Errorf("persist: creating WAL directory: %w", err)
	}

	path := filepath.Join(dirPath, "raft.wal")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("persist: opening WAL file: %w", err)
	}

	return &WAL{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Write appends one record.
func (w *WAL) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := binary.Write(w.writer, binary.LittleEndian, r.Term); err != nil {
		return fmt.Errorf("persist: writing term: %w", err)
	}
	if err := writeString(w.writer, r.VotedFor); err != nil {
		return fmt.Errorf("persist: writing voted_for: %w", err)
	}
	if err := binary.Write(w.writer, binary.LittleEndian, int64(r.Index)); err != nil {
		return fmt.Errorf("persist: writing index: %w", err)
	}
	if err := binary.Write(w.writer, binary.LittleEndian, r.EntryTerm); err != nil {
		return fmt.Errorf("persist: writing entry term: %w", err)
	}
	if err := writeString(w.writer, r.Command); err != nil {
		return fmt.Errorf("persist: writing command: %w", err)
	}

	// We skip fsync on every write for the same reason storage/wal.go
	// does: an fsync per append is expensive and unnecessary for the
	// throughput this is meant to support. Only Reset fsyncs the file;
	// Close flushes the buffer and closes it without an fsync.
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("persist: flushing WAL: %w", err)
	}
	return nil
}

// ReadAll replays every record from the start of the file, in order.
func (w *WAL) ReadAll() ([]Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("persist: seeking to start: %w", err)
	}

	reader := bufio.NewReader(w.file)
	var records []Record
	for {
		r, err := readRecord(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("persist: reading record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func readRecord(r *bufio.Reader) (Record, error) {
	var rec Record

	if err := binary.Read(r, binary.LittleEndian, &rec.Term); err != nil {
		return rec, err
	}
	votedFor, err := readString(r)
	if err != nil {
		return rec, err
	}
	rec.VotedFor = votedFor

	var index int64
	if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
		return rec, err
	}
	rec.Index = int(index)

	if err := binary.Read(r, binary.LittleEndian, &rec.EntryTerm); err != nil {
		return rec, err
	}
	command, err := readString(r)
	if err != nil {
		return rec, err
	}
	rec.Command = command

	return rec, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Close flushes and closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Reset truncates the WAL, used after a snapshot-equivalent compaction —
// not currently triggered anywhere (no snapshotting is implemented,
// spec.md Non-goals), but kept available the way storage/wal.go keeps it
// for the same not-yet-exercised reason.
func (w *WAL) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return err
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("persist: truncating WAL: %w", err)
	}
	w.file = file
	w.writer = bufio.NewWriter(file)
	return w.file.Sync()
}

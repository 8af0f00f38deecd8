package outbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

func TestAppendIterateCommit(t *testing.T) {
	dir := t.TempDir()
	ob, err := NewFileOutbox(dir)
	if err != nil {
		t.Fatalf("new outbox: %v", err)
	}

	msgs := []ports.OutboxMessage{
		{Topic: "telemetry/raw/CNC001", Payload: []byte("r1")},
		{Topic: "telemetry/raw/CNC001", Payload: []byte("r2")},
		{Topic: "maintenance/decision/CNC001", Payload: []byte("d1")},
	}
	for i, m := range msgs {
		id, err := ob.Append(m)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if id != ports.OutboxEntryID(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, id)
		}
	}

	var seen []string
	err = ob.Iterate(1, func(id ports.OutboxEntryID, m ports.OutboxMessage) error {
		seen = append(seen, string(m.Payload))
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(seen) != 3 || seen[0] != "r1" || seen[2] != "d1" {
		t.Fatalf("unexpected iteration: %v", seen)
	}

	if err := ob.Commit(2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	stats := ob.Stats()
	if stats.OldestUncommitted != 3 || stats.LatestAppended != 3 {
		t.Fatalf("unexpected stats after commit: %+v", stats)
	}

	// Iterating from the first uncommitted entry skips the committed ones.
	seen = nil
	if err := ob.Iterate(stats.OldestUncommitted, func(_ ports.OutboxEntryID, m ports.OutboxMessage) error {
		seen = append(seen, string(m.Payload))
		return nil
	}); err != nil {
		t.Fatalf("iterate uncommitted: %v", err)
	}
	if len(seen) != 1 || seen[0] != "d1" {
		t.Fatalf("expected only the uncommitted entry, got %v", seen)
	}
}

func TestRecoveryAfterReopen(t *testing.T) {
	dir := t.TempDir()

	ob, err := NewFileOutbox(dir)
	if err != nil {
		t.Fatalf("new outbox: %v", err)
	}
	ob.Append(ports.OutboxMessage{Topic: "a", Payload: []byte("1")})
	ob.Append(ports.OutboxMessage{Topic: "b", Payload: []byte("2")})
	if err := ob.Commit(1); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reopened, err := NewFileOutbox(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stats := reopened.Stats()
	if stats.LatestAppended != 2 {
		t.Fatalf("expected last id 2 after reopen, got %d", stats.LatestAppended)
	}
	if stats.OldestUncommitted != 2 {
		t.Fatalf("expected oldest uncommitted 2 after reopen, got %d", stats.OldestUncommitted)
	}

	// New appends continue the sequence.
	id, err := reopened.Append(ports.OutboxMessage{Topic: "c", Payload: []byte("3")})
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected id 3 after reopen, got %d", id)
	}
}

func TestTruncatesPartialTailRecord(t *testing.T) {
	dir := t.TempDir()

	ob, err := NewFileOutbox(dir)
	if err != nil {
		t.Fatalf("new outbox: %v", err)
	}
	ob.Append(ports.OutboxMessage{Topic: "a", Payload: []byte("intact")})

	// Simulate a crash mid-write by appending garbage shorter than a header.
	path := filepath.Join(dir, "outbox.log")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.Write([]byte{0xde, 0xad, 0xbe}); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	reopened, err := NewFileOutbox(dir)
	if err != nil {
		t.Fatalf("reopen after partial write: %v", err)
	}
	stats := reopened.Stats()
	if stats.LatestAppended != 1 {
		t.Fatalf("expected only the intact record, got last id %d", stats.LatestAppended)
	}

	count := 0
	if err := reopened.Iterate(1, func(_ ports.OutboxEntryID, m ports.OutboxMessage) error {
		count++
		if string(m.Payload) != "intact" {
			t.Fatalf("unexpected payload %q", m.Payload)
		}
		return nil
	}); err != nil {
		t.Fatalf("iterate after truncation: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record after truncation, got %d", count)
	}
}

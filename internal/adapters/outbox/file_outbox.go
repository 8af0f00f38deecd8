package outbox

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sudhindrakini2808/smart-factory-predictive-maintenance/internal/ports"
)

const recordHeaderLen = 12

// FileOutbox stages bus messages in an append-only log so publishes survive
// broker outages and process restarts. Entry format:
// [8 bytes id][4 bytes len][len bytes json]. A meta file tracks the highest
// committed (broker-acknowledged) entry.
type FileOutbox struct {
	mu        sync.Mutex
	path      string
	metaPath  string
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.OutboxEntryID
	committed ports.OutboxEntryID
	sizeBytes int64
}

func NewFileOutbox(dir string) (*FileOutbox, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "outbox.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	ob := &FileOutbox{
		path:     path,
		metaPath: filepath.Join(dir, "outbox.meta"),
		file:     f,
		writer:   bufio.NewWriterSize(f, 64<<10),
	}
	if err := ob.bootstrap(); err != nil {
		return nil, err
	}
	return ob, nil
}

func (o *FileOutbox) bootstrap() error {
	if err := o.scanExisting(); err != nil {
		return err
	}
	if err := o.loadCommitted(); err != nil {
		return err
	}
	if o.nextID < o.committed {
		o.nextID = o.committed
	}
	_, err := o.file.Seek(0, io.SeekEnd)
	return err
}

// scanExisting walks the log to recover the last id and truncates any
// partially written tail from a crash.
func (o *FileOutbox) scanExisting() error {
	stat, err := os.Stat(o.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err != nil || stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(o.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var (
		offset int64
		lastID ports.OutboxEntryID
	)

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				if err := o.file.Truncate(offset); err != nil {
					return err
				}
				break
			}
			return fmt.Errorf("outbox scan header: %w", err)
		}
		id := ports.OutboxEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		length := binary.BigEndian.Uint32(hdr[8:12])
		offset += recordHeaderLen

		if length > 0 {
			if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					if err := o.file.Truncate(offset); err != nil {
						return err
					}
					break
				}
				return fmt.Errorf("outbox scan body: %w", err)
			}
			offset += int64(length)
		}
		lastID = id
	}

	if err := o.file.Truncate(offset); err != nil {
		return err
	}
	o.sizeBytes = offset
	o.nextID = lastID
	return nil
}

func (o *FileOutbox) loadCommitted() error {
	data, err := os.ReadFile(o.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return fmt.Errorf("outbox meta parse: %w", err)
	}
	o.committed = ports.OutboxEntryID(u)
	return nil
}

func (o *FileOutbox) Append(msg ports.OutboxMessage) (ports.OutboxEntryID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID + 1

	b, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}

	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := o.writer.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := o.writer.Write(b); err != nil {
		return 0, err
	}
	// Staged messages must hit the file before Publish returns, or a crash
	// loses them.
	if err := o.writer.Flush(); err != nil {
		return 0, err
	}

	o.nextID = id
	o.sizeBytes += int64(len(b) + len(hdr))
	return id, nil
}

func (o *FileOutbox) Iterate(from ports.OutboxEntryID, fn func(id ports.OutboxEntryID, msg ports.OutboxMessage) error) error {
	o.mu.Lock()
	if err := o.writer.Flush(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.mu.Unlock()

	f, err := os.Open(o.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("outbox iterate header: %w", err)
		}
		id := ports.OutboxEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		l := binary.BigEndian.Uint32(hdr[8:12])

		b := make([]byte, l)
		if _, err := io.ReadFull(r, b); err != nil {
			return fmt.Errorf("corrupt outbox entry: %w", err)
		}
		if id < from {
			continue
		}

		var msg ports.OutboxMessage
		if err := json.Unmarshal(b, &msg); err != nil {
			return fmt.Errorf("corrupt outbox entry: %w", err)
		}
		if err := fn(id, msg); err != nil {
			return err
		}
	}
}

func (o *FileOutbox) Commit(upto ports.OutboxEntryID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if upto > o.committed {
		o.committed = upto
	}
	return os.WriteFile(o.metaPath, []byte(fmt.Sprintf("%d\n", o.committed)), 0o644)
}

func (o *FileOutbox) Stats() ports.OutboxStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return ports.OutboxStats{
		OldestUncommitted: o.committed + 1,
		LatestAppended:    o.nextID,
		SizeBytes:         o.sizeBytes,
	}
}

var _ ports.Outbox = (*FileOutbox)(nil)

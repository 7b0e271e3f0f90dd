package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileLog is the tamper-evident audit log: append-only line-delimited JSON
// with each entry hash-linked to its predecessor. It assumes one logical
// writer per file; appends from this process are serialized behind a mutex,
// and multi-writer deployments must route through a single FileLog.
//
// The last-hash cache is recovered from durable storage at open, never kept
// only in memory across restarts.
type FileLog struct {
	mu       sync.Mutex
	path     string
	lastHash string
	log      *zap.Logger
}

// OpenFileLog opens (or starts) the log at path and recovers the last entry
// hash from the final well-formed line. A missing, empty, or corrupt file
// means "no previous entry"; it is never an error.
func OpenFileLog(path string, log *zap.Logger) (*FileLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	l := &FileLog{path: path, log: log}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			log.Warn("ignoring unparseable audit line during recovery", zap.Error(err))
			continue
		}
		l.lastHash = e.CurrentEntryHash
	}
	if err := scanner.Err(); err != nil {
		log.Warn("partial audit log recovery", zap.Error(err))
	}
	return l, nil
}

// Append computes the entry's chain hashes, writes one line, and updates the
// in-memory last-hash cache. Write failures propagate: silently treating a
// failed append as success would break the audit guarantee.
func (l *FileLog) Append(ctx context.Context, e Entry) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.PreviousLogHash = l.lastHash
	e.CurrentEntryHash = computeHash(e)

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal audit entry: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync audit log: %w", err)
	}

	l.lastHash = e.CurrentEntryHash
	return &e, nil
}

// LastHash returns the hash of the most recently appended entry, empty when
// the log has none.
func (l *FileLog) LastHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastHash
}

// Entries reads every well-formed entry in file order. Unparseable lines are
// logged and skipped; Verify is the routine that treats them as breaks.
func (l *FileLog) Entries(ctx context.Context) ([]Entry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			l.log.Warn("skipping unparseable audit line", zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return entries, nil
}

// Verify walks the log from the start, recomputing every entry hash and
// checking each link against its predecessor. The first entry must have an
// empty PreviousLogHash. Returns the number of verified entries.
func (l *FileLog) Verify(ctx context.Context) (int, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var (
		prevHash string
		count    int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return count, fmt.Errorf("entry %d: unparseable: %w", count+1, err)
		}
		if e.PreviousLogHash != prevHash {
			return count, fmt.Errorf("entry %d: previous hash mismatch", count+1)
		}
		if computeHash(e) != e.CurrentEntryHash {
			return count, fmt.Errorf("entry %d: entry hash mismatch", count+1)
		}
		prevHash = e.CurrentEntryHash
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read audit log: %w", err)
	}
	return count, nil
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Manifest records the sanitized-name → original-identifier mapping for a
// file-backed store, so identifiers that needed sanitizing can be recovered.
// It is persisted as a single JSON file next to the records it describes.
type Manifest struct {
	mu    sync.Mutex
	path  string
	names map[string]string
}

// OpenManifest loads (or initializes) the manifest at path. A missing file
// means an empty manifest; a corrupt one is replaced on the next write and
// reported to the caller's log by the store that owns it.
func OpenManifest(path string) (*Manifest, error) {
	m := &Manifest{path: path, names: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &m.names); err != nil {
		// Treat an unreadable manifest as empty rather than failing the store.
		m.names = make(map[string]string)
	}
	return m, nil
}

// Record persists the mapping for a sanitized name. Identity mappings are not
// stored; they need no reversal.
func (m *Manifest) Record(safe, original string) error {
	if safe == original {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.names[safe]; ok && existing == original {
		return nil
	}
	m.names[safe] = original
	return m.flushLocked()
}

// Original resolves a sanitized name back to the identifier it was derived
// from. Names that never needed sanitizing resolve to themselves.
func (m *Manifest) Original(safe string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if original, ok := m.names[safe]; ok {
		return original
	}
	return safe
}

func (m *Manifest) flushLocked() error {
	data, err := json.MarshalIndent(m.names, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, m.path)
}

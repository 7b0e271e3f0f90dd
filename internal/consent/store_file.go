package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"veil/internal/storage"
)

// FileStore persists one JSON document per consent under
// dir/<user>/<consent_id>.json, with sanitized names mapped back through a
// manifest. Corrupt documents are skipped and logged.
type FileStore struct {
	mu       sync.Mutex
	dir      string
	manifest *storage.Manifest
	log      *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create consent dir: %w", err)
	}
	manifest, err := storage.OpenManifest(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, manifest: manifest, log: log}, nil
}

func (s *FileStore) Save(_ context.Context, c *Consent) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	safeUser := storage.SafeName(c.UserID)
	safeID := storage.SafeName(c.ConsentID)
	if err := s.manifest.Record(safeUser, c.UserID); err != nil {
		return err
	}
	if err := s.manifest.Record(safeID, c.ConsentID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal consent: %w", err)
	}
	path := filepath.Join(s.dir, safeUser, safeID+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create consent dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write consent: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) ListByUserPolicy(ctx context.Context, userID, policyID string) ([]*Consent, error) {
	all, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []*Consent
	for _, c := range all {
		if c.PolicyID == policyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *FileStore) ListByUser(_ context.Context, userID string) ([]*Consent, error) {
	dir := filepath.Join(s.dir, storage.SafeName(userID))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read consent dir %s: %w", dir, err)
	}

	var out []*Consent
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read consent %s: %w", path, err)
		}
		var c Consent
		if err := json.Unmarshal(data, &c); err != nil {
			s.log.Warn("skipping corrupt consent record",
				zap.String("path", path),
				zap.Error(err))
			continue
		}
		out = append(out, &c)
	}
	sortNewestFirst(out)
	return out, nil
}

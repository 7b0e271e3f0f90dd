package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"veil/internal/storage"
	"veil/pkg/sentinel"
)

// FileStore persists one JSON document per (policy_id, version) under
// dir/<id>/<version>.json. Identifiers unsafe for the filesystem are
// sanitized and mapped back through a manifest. Corrupt documents are skipped
// and logged, never failing a whole read.
type FileStore struct {
	mu       sync.Mutex
	dir      string
	manifest *storage.Manifest
	log      *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create policy dir: %w", err)
	}
	manifest, err := storage.OpenManifest(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, manifest: manifest, log: log}, nil
}

func (s *FileStore) Save(_ context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	safeID := storage.SafeName(p.PolicyID)
	safeVersion := storage.SafeName(p.Version)
	path := filepath.Join(s.dir, safeID, safeVersion+".json")

	if _, err := os.Stat(path); err == nil {
		return sentinel.ErrConflict
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat policy %s: %w", path, err)
	}

	if err := s.manifest.Record(safeID, p.PolicyID); err != nil {
		return err
	}
	if err := s.manifest.Record(safeVersion, p.Version); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create policy dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write policy: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Load(ctx context.Context, policyID, version string) (*Policy, error) {
	if version == "" {
		all, err := s.readAll(policyID)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, sentinel.ErrNotFound
		}
		return all[0], nil
	}

	path := filepath.Join(s.dir, storage.SafeName(policyID), storage.SafeName(version)+".json")
	p, err := s.readOne(path)
	if err != nil {
		if errors.Is(err, sentinel.ErrCorrupt) {
			// Corrupt reads degrade to not-found for the caller; the anomaly
			// is already on the operator log.
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *FileStore) Versions(_ context.Context, policyID string) ([]string, error) {
	all, err := s.readAll(policyID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, p := range all {
		out = append(out, p.Version)
	}
	return out, nil
}

// readAll returns every parseable version for a policy, newest-first by
// CreatedAt (version string descending as tie-break for identical stamps).
func (s *FileStore) readAll(policyID string) ([]*Policy, error) {
	dir := filepath.Join(s.dir, storage.SafeName(policyID))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read policy dir %s: %w", dir, err)
	}

	var all []*Policy
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		p, err := s.readOne(filepath.Join(dir, entry.Name()))
		if err != nil {
			if errors.Is(err, sentinel.ErrCorrupt) {
				continue
			}
			return nil, err
		}
		all = append(all, p)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Version > all[j].Version
	})
	return all, nil
}

func (s *FileStore) readOne(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Warn("skipping corrupt policy record",
			zap.String("path", path),
			zap.Error(err))
		return nil, sentinel.ErrCorrupt
	}
	return &p, nil
}

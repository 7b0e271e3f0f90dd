package policy

import (
	"context"
	"sort"
	"sync"

	"veil/pkg/sentinel"
)

// InMemoryStore keeps the initial implementation lightweight and testable. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu sync.RWMutex
	// versions are kept newest-first per policy ID, by CreatedAt with the
	// version string as tie-break, matching the other backends.
	byID map[string][]*Policy
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string][]*Policy)}
}

func (s *InMemoryStore) Save(_ context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID[p.PolicyID] {
		if existing.Version == p.Version {
			return sentinel.ErrConflict
		}
	}
	cp := *p
	versions := append(s.byID[p.PolicyID], &cp)
	sort.Slice(versions, func(i, j int) bool {
		if !versions[i].CreatedAt.Equal(versions[j].CreatedAt) {
			return versions[i].CreatedAt.After(versions[j].CreatedAt)
		}
		return versions[i].Version > versions[j].Version
	})
	s.byID[p.PolicyID] = versions
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, policyID, version string) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.byID[policyID]
	if len(versions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	if version == "" {
		cp := *versions[0]
		return &cp, nil
	}
	for _, p := range versions {
		if p.Version == version {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Versions(_ context.Context, policyID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.byID[policyID]
	out := make([]string, 0, len(versions))
	for _, p := range versions {
		out = append(out, p.Version)
	}
	return out, nil
}

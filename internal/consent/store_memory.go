package consent

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore keeps the initial implementation lightweight and testable. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Consent
	byUser map[string][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*Consent),
		byUser: make(map[string][]string),
	}
}

func (s *InMemoryStore) Save(_ context.Context, c *Consent) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[c.ConsentID]; !exists {
		s.byUser[c.UserID] = append(s.byUser[c.UserID], c.ConsentID)
	}
	cp := *c
	s.byID[c.ConsentID] = &cp
	return nil
}

func (s *InMemoryStore) ListByUserPolicy(_ context.Context, userID, policyID string) ([]*Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Consent
	for _, id := range s.byUser[userID] {
		if c := s.byID[id]; c != nil && c.PolicyID == policyID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]*Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Consent
	for _, id := range s.byUser[userID] {
		if c := s.byID[id]; c != nil {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst orders by Timestamp descending with ConsentID as a
// deterministic tie-break.
func sortNewestFirst(consents []*Consent) {
	sort.Slice(consents, func(i, j int) bool {
		if !consents[i].Timestamp.Equal(consents[j].Timestamp) {
			return consents[i].Timestamp.After(consents[j].Timestamp)
		}
		return consents[i].ConsentID > consents[j].ConsentID
	})
}

package policy

import "context"

// Store persists immutable policy versions.
//
// Contract shared by all implementations:
//   - Save returns sentinel.ErrConflict when (policy_id, version) already
//     exists; existing versions are never overwritten.
//   - Load with version "" resolves the newest version.
//   - Versions returns version strings newest-first.
//   - A persisted record that fails to parse is logged and treated as absent;
//     it never fails a whole read.
type Store interface {
	Save(ctx context.Context, p *Policy) error
	Load(ctx context.Context, policyID, version string) (*Policy, error)
	Versions(ctx context.Context, policyID string) ([]string, error)
}

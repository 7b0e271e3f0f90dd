package consent

import "context"

// Store persists consent records.
//
// Contract shared by all implementations:
//   - Save is an upsert keyed by ConsentID; the manager rewrites records to
//     deactivate them.
//   - List operations return records newest-first by Timestamp.
//   - A persisted record that fails to parse is logged and skipped; it never
//     fails a whole read.
type Store interface {
	Save(ctx context.Context, c *Consent) error
	ListByUserPolicy(ctx context.Context, userID, policyID string) ([]*Consent, error)
	ListByUser(ctx context.Context, userID string) ([]*Consent, error)
}

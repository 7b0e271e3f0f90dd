package consent

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// PostgresStore persists consents as JSON documents with indexed identity
// columns for lookups.
//
// Schema:
//
//	CREATE TABLE consents (
//	    consent_id TEXT        PRIMARY KEY,
//	    user_id    TEXT        NOT NULL,
//	    policy_id  TEXT        NOT NULL,
//	    ts         TIMESTAMPTZ NOT NULL,
//	    is_active  BOOLEAN     NOT NULL,
//	    doc        JSONB       NOT NULL
//	);
//	CREATE INDEX consents_user_policy_idx ON consents (user_id, policy_id, ts DESC);
type PostgresStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgresStore(db *sql.DB, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

func (s *PostgresStore) Save(ctx context.Context, c *Consent) error {
	if err := c.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal consent: %w", err)
	}

	query := `
		INSERT INTO consents (consent_id, user_id, policy_id, ts, is_active, doc)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (consent_id) DO UPDATE
		SET is_active = EXCLUDED.is_active, doc = EXCLUDED.doc
	`
	if _, err := s.db.ExecContext(ctx, query,
		c.ConsentID, c.UserID, c.PolicyID, c.Timestamp, c.IsActive, doc,
	); err != nil {
		return fmt.Errorf("upsert consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUserPolicy(ctx context.Context, userID, policyID string) ([]*Consent, error) {
	query := `
		SELECT doc FROM consents
		WHERE user_id = $1 AND policy_id = $2
		ORDER BY ts DESC, consent_id DESC
	`
	return s.list(ctx, query, userID, policyID)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Consent, error) {
	query := `
		SELECT doc FROM consents
		WHERE user_id = $1
		ORDER BY ts DESC, consent_id DESC
	`
	return s.list(ctx, query, userID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Consent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select consents: %w", err)
	}
	defer rows.Close()

	var out []*Consent
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		var c Consent
		if err := json.Unmarshal(doc, &c); err != nil {
			s.log.Warn("skipping corrupt consent record", zap.Error(err))
			continue
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

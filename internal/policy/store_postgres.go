package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"veil/pkg/sentinel"
)

// PostgresStore persists policies as JSON documents keyed by
// (policy_id, version). Immutability is enforced by the primary key; a
// conflicting insert is reported, never applied.
//
// Schema:
//
//	CREATE TABLE policies (
//	    policy_id  TEXT        NOT NULL,
//	    version    TEXT        NOT NULL,
//	    doc        JSONB       NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (policy_id, version)
//	);
type PostgresStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgresStore(db *sql.DB, log *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

func (s *PostgresStore) Save(ctx context.Context, p *Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	query := `
		INSERT INTO policies (policy_id, version, doc, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (policy_id, version) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, p.PolicyID, p.Version, doc, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, policyID, version string) (*Policy, error) {
	var (
		doc []byte
		err error
	)
	if version == "" {
		query := `
			SELECT doc FROM policies
			WHERE policy_id = $1
			ORDER BY created_at DESC, version DESC
			LIMIT 1
		`
		err = s.db.QueryRowContext(ctx, query, policyID).Scan(&doc)
	} else {
		query := `SELECT doc FROM policies WHERE policy_id = $1 AND version = $2`
		err = s.db.QueryRowContext(ctx, query, policyID, version).Scan(&doc)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select policy: %w", err)
	}

	var p Policy
	if err := json.Unmarshal(doc, &p); err != nil {
		s.log.Warn("skipping corrupt policy record",
			zap.String("policy_id", policyID),
			zap.String("version", version),
			zap.Error(err))
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *PostgresStore) Versions(ctx context.Context, policyID string) ([]string, error) {
	query := `
		SELECT version FROM policies
		WHERE policy_id = $1
		ORDER BY created_at DESC, version DESC
	`
	rows, err := s.db.QueryContext(ctx, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("select policy versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan policy version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	consentKeyPrefix    = "veil:consent:"
	userIndexPrefix     = "veil:consents:user:"
	userPolicyIdxPrefix = "veil:consents:userpolicy:"
)

// RedisStore is a Redis-backed consent store for deployments where multiple
// instances share consent state. Records are JSON values keyed by consent ID
// with set indexes per user and per (user, policy).
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisStore(client *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{client: client, log: log}
}

func (s *RedisStore) Save(ctx context.Context, c *Consent) error {
	if err := c.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal consent: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, consentKeyPrefix+c.ConsentID, doc, 0)
	pipe.SAdd(ctx, userIndexPrefix+c.UserID, c.ConsentID)
	pipe.SAdd(ctx, userPolicyIdxPrefix+c.UserID+":"+c.PolicyID, c.ConsentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByUserPolicy(ctx context.Context, userID, policyID string) ([]*Consent, error) {
	return s.listByIndex(ctx, userPolicyIdxPrefix+userID+":"+policyID)
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*Consent, error) {
	return s.listByIndex(ctx, userIndexPrefix+userID)
}

func (s *RedisStore) listByIndex(ctx context.Context, indexKey string) ([]*Consent, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read consent index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = consentKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read consents: %w", err)
	}

	var out []*Consent
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Index entry without a record; stale index, skip.
			continue
		}
		var c Consent
		if err := json.Unmarshal([]byte(str), &c); err != nil {
			s.log.Warn("skipping corrupt consent record",
				zap.String("consent_id", ids[i]),
				zap.Error(err))
			continue
		}
		out = append(out, &c)
	}
	sortNewestFirst(out)
	return out, nil
}

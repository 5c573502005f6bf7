package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "verification:v1:"

	// Optimistic transactions only lose to a concurrent write of the same
	// key, so a retry or two settles the outcome.
	maxConsumeAttempts = 3
)

// RedisStore keeps codes in Redis so that several API replicas share them.
// Redis expiry is set as well, but the stored ExpiresAt is what decides
// validity on read.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore builds a Redis-backed store using the wall clock.
func NewRedisStore(client *redis.Client) *RedisStore {
	return NewRedisStoreWithClock(client, time.Now)
}

// NewRedisStoreWithClock builds a Redis-backed store reading time from now.
func NewRedisStoreWithClock(client *redis.Client, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, now: now}
}

// Set stores code under key with a Redis TTL matching expiresAt.
func (s *RedisStore) Set(ctx context.Context, key, code string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Remove(ctx, key)
	}
	payload, err := json.Marshal(Entry{Code: code, ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return fmt.Errorf("encode verification entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	return nil
}

// Get returns the live entry for key, deleting it when it has expired.
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("load verification code: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode verification entry: %w", err)
	}
	if entry.Expired(s.now()) {
		if err := s.Remove(ctx, key); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Consume redeems code for key inside a WATCH/MULTI transaction. If the key
// changes between the read and the delete, the attempt is retried against
// the new value.
func (s *RedisStore) Consume(ctx context.Context, key, code string) (Outcome, error) {
	redisKey := redisKeyPrefix + key
	var outcome Outcome
	redeem := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, redisKey).Bytes()
		if errors.Is(err, redis.Nil) {
			outcome = OutcomeMissing
			return nil
		}
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decode entry: %w", err)
		}
		switch {
		case entry.Expired(s.now()):
			outcome = OutcomeMissing
		case entry.Code != code:
			outcome = OutcomeMismatch
			return nil
		default:
			outcome = OutcomeRedeemed
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, redisKey)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxConsumeAttempts; attempt++ {
		err := s.client.Watch(ctx, redeem, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return OutcomeMissing, fmt.Errorf("consume verification code: %w", err)
		}
		return outcome, nil
	}
	return OutcomeMissing, fmt.Errorf("consume verification code: %w", redis.TxFailedErr)
}

// Remove deletes the entry for key.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("remove verification code: %w", err)
	}
	return nil
}

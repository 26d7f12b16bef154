// Package store is the durable key-value layer under the watch-party state.
//
// Reads never fail: an absent, malformed, or validator-rejected value yields
// the caller's default. Writes never fail either, from the caller's point of
// view — a write error is logged and swallowed, and callers must tolerate the
// silent loss. There is no transactional guarantee across keys; a crash
// between two Save calls can leave them inconsistent, which the session
// tracker's recovery path tolerates.
package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps a redis client with the load/save contract.
type Store struct {
	rdb *redis.Client
}

// New creates a store on top of an existing redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Save serializes v as JSON and writes it under key. Failures are logged
// and dropped.
func (s *Store) Save(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Store write skipped, marshal failed: key=%s, error=%v", key, err)
		return
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		log.Printf("Store write failed: key=%s, error=%v", key, err)
	}
}

// Delete removes key. Failures are logged and dropped.
func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		log.Printf("Store delete failed: key=%s, error=%v", key, err)
	}
}

// Load reads key into a value of type T. If the key is absent, the stored
// bytes do not parse, or the optional validator rejects the parsed value,
// the default is returned without error.
func Load[T any](ctx context.Context, s *Store, key string, def T, validator func(T) bool) T {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Store read failed, using default: key=%s, error=%v", key, err)
		}
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("Store value malformed, using default: key=%s, error=%v", key, err)
		return def
	}

	if validator != nil && !validator(v) {
		log.Printf("Store value rejected by validator, using default: key=%s", key)
		return def
	}
	return v
}

// PushCapped prepends a JSON-serialized entry to the list at key and trims
// the list to cap entries, oldest first out. Failures are logged and dropped.
func (s *Store) PushCapped(ctx context.Context, key string, v interface{}, cap int64) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Store list push skipped, marshal failed: key=%s, error=%v", key, err)
		return
	}

	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, cap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Store list push failed: key=%s, error=%v", key, err)
	}
}

// LoadList reads up to limit raw entries from the list at key, newest first.
// Any failure yields an empty slice.
func (s *Store) LoadList(ctx context.Context, key string, limit int64) []string {
	if limit <= 0 {
		limit = -1
	}
	entries, err := s.rdb.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Store list read failed, using empty: key=%s, error=%v", key, err)
		}
		return nil
	}
	return entries
}

// SweepStaleSessions deletes watch-session markers older than maxAge. A
// marker left behind by a run that died mid-session is useless once its
// owner has been away longer than any plausible reload.
func (s *Store) SweepStaleSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	removed := 0

	iter := s.rdb.Scan(ctx, 0, SessionStartPattern(), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		var startedAt int64
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &startedAt); err != nil {
			// Unreadable marker is stale by definition.
			s.Delete(ctx, key)
			removed++
			continue
		}
		if startedAt < cutoff {
			s.Delete(ctx, key)
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

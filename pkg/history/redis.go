package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "lawchat:session:"

// RedisStore keeps each session as a Redis list of JSON records. Keys expire
// after the retention period of inactivity.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// OpenRedis connects to the server at url and checks it answers.
func OpenRedis(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisStore(rdb, ttl), nil
}

// NewRedisStore wraps an existing client. A zero ttl keeps keys forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return sessionPrefix + sessionID
}

func (r *RedisStore) Append(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	key := sessionKey(rec.SessionID)
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	items, err := r.rdb.LRange(ctx, sessionKey(sessionID), 0, stop).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	recs := decodeRecords(items)
	sortRecords(recs)
	return recs, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) (int, error) {
	key := sessionKey(sessionID)
	pipe := r.rdb.TxPipeline()
	length := pipe.LLen(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	return int(length.Val()), nil
}

// Prune trims records older than before from the head of every session list.
func (r *RedisStore) Prune(ctx context.Context, before time.Time) (int, error) {
	removed := 0
	iter := r.rdb.Scan(ctx, 0, sessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		items, err := r.rdb.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to load %s: %w", strings.TrimPrefix(key, sessionPrefix), err)
		}
		stale := staleHead(items, before)
		if stale == 0 {
			continue
		}
		if stale == len(items) {
			err = r.rdb.Del(ctx, key).Err()
		} else {
			err = r.rdb.LTrim(ctx, key, int64(stale), -1).Err()
		}
		if err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", strings.TrimPrefix(key, sessionPrefix), err)
		}
		removed += stale
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan sessions: %w", err)
	}
	return removed, nil
}

// staleHead counts the leading items older than before. Lists are appended in
// time order, so the scan stops at the first fresh record. Undecodable items
// count as stale.
func staleHead(items []string, before time.Time) int {
	stale := 0
	for _, item := range items {
		var rec Record
		if json.Unmarshal([]byte(item), &rec) == nil && !rec.Timestamp.Before(before) {
			break
		}
		stale++
	}
	return stale
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func decodeRecords(items []string) []Record {
	recs := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

var _ Store = (*RedisStore)(nil)

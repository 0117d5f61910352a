package metriccache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
	"github.com/ddwolfer/Financial-Assistant/pkg/redis"
)

const redisKeyPrefix = "metrics:"

// RedisStore keeps one key per identifier with a Redis TTL equal to the
// entry kind's TTL, so expired entries disappear server-side.
type RedisStore struct {
	cache  *redis.Cache
	ttls   TTLs
	now    func() time.Time
	logger *logger.Logger
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client *redis.Client, prefix string, ttls TTLs, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStore{
		cache:  redis.NewCache(client, prefix),
		ttls:   ttls,
		now:    time.Now,
		logger: log.WithComponent("metriccache.redis"),
	}
}

// Load scans every metrics key and decodes it; corrupt values are skipped
func (s *RedisStore) Load(ctx context.Context) (map[string]Record, error) {
	keys, err := s.cache.Keys(ctx, redisKeyPrefix)
	if err != nil {
		return nil, err
	}

	records := make(map[string]Record, len(keys))
	for _, key := range keys {
		data, found, err := s.cache.GetRaw(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue // expired between SCAN and GET
		}

		symbol := strings.TrimPrefix(key, redisKeyPrefix)

		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			s.discard(symbol, err)
			continue
		}
		if err := r.validate(); err != nil {
			s.discard(symbol, err)
			continue
		}
		records[NormalizeKey(symbol)] = r
	}

	return records, nil
}

func (s *RedisStore) discard(symbol string, err error) {
	s.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"error":  err.Error(),
	}).Warn("Discarding corrupt cache entry")
}

// Save writes only the changed keys
func (s *RedisStore) Save(ctx context.Context, all map[string]Record, changed []string) error {
	now := s.now()

	for _, key := range changed {
		r, ok := all[key]
		if !ok {
			continue
		}

		ttl := r.ExpiresAt(s.ttls).Sub(now)
		if ttl <= 0 {
			continue
		}

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal cache entry %s: %w", key, err)
		}
		if err := s.cache.SetRaw(ctx, redis.MetricsKey(key), data, ttl); err != nil {
			return fmt.Errorf("save cache entry %s: %w", key, err)
		}
	}

	return nil
}

// Clear deletes every metrics key
func (s *RedisStore) Clear(ctx context.Context) error {
	keys, err := s.cache.Keys(ctx, redisKeyPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

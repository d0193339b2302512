package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/unklstewy/planes-near-me/pkg/coordinates"
)

// KeyPrefix namespaces session hashes in redis.
const KeyPrefix = "session:"

// RedisStore keeps coordinates in a redis hash per session with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client; the caller owns its lifetime.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sessionID string) string {
	return KeyPrefix + sessionID
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (coordinates.Geographic, bool, error) {
	vals, err := s.client.HMGet(ctx, redisKey(sessionID), "lat", "lon").Result()
	if err != nil {
		return coordinates.Geographic{}, false, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return coordinates.Geographic{}, false, nil
	}

	lat, err := parseRedisFloat(vals[0])
	if err != nil {
		return coordinates.Geographic{}, false, fmt.Errorf("session %s lat: %w", sessionID, err)
	}
	lon, err := parseRedisFloat(vals[1])
	if err != nil {
		return coordinates.Geographic{}, false, fmt.Errorf("session %s lon: %w", sessionID, err)
	}

	return coordinates.Geographic{Latitude: lat, Longitude: lon}, true, nil
}

// Set implements Store. The hash write and the expiry run in one MULTI.
func (s *RedisStore) Set(ctx context.Context, sessionID string, c coordinates.Geographic) error {
	key := redisKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"lat", strconv.FormatFloat(c.Latitude, 'f', -1, 64),
			"lon", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session %s: %w", sessionID, err)
	}
	return nil
}

func parseRedisFloat(v interface{}) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
	return strconv.ParseFloat(s, 64)
}

// internal/db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(redisURL string) (*RedisDB, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("[Redis] ✅ Connected to Redis")
	return &RedisDB{Client: client}, nil
}

// NewRedisDBFromClient wraps an existing client. Used by tests.
func NewRedisDBFromClient(client *redis.Client) *RedisDB {
	return &RedisDB{Client: client}
}

func (r *RedisDB) Close() {
	if r.Client != nil {
		r.Client.Close()
		log.Println("[Redis] Connection closed")
	}
}

const featureKeyPrefix = "features:"

// SetFeatures caches the resolved feature list for an organization.
func (r *RedisDB) SetFeatures(ctx context.Context, organizationID string, features []string, expiration time.Duration) error {
	data, err := json.Marshal(features)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, featureKeyPrefix+organizationID, data, expiration).Err()
}

// GetFeatures returns the cached feature list, or ok=false on a miss.
func (r *RedisDB) GetFeatures(ctx context.Context, organizationID string) ([]string, bool, error) {
	data, err := r.Client.Get(ctx, featureKeyPrefix+organizationID).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var features []string
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, false, err
	}
	return features, true, nil
}

// InvalidateFeatures drops the cached feature list for an organization.
func (r *RedisDB) InvalidateFeatures(ctx context.Context, organizationID string) error {
	return r.Client.Del(ctx, featureKeyPrefix+organizationID).Err()
}

// InvalidateAllFeatures drops every cached feature list. Called when
// the instance license changes, which affects all organizations.
func (r *RedisDB) InvalidateAllFeatures(ctx context.Context) error {
	keys, err := r.Client.Keys(ctx, featureKeyPrefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.Client.Del(ctx, keys...).Err()
	}
	return nil
}

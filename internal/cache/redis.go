package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"glow-backend-go/internal/models"
)

const planKeyPrefix = "glow:plan:"

// RedisPlanCache is a PlanCache backed by Redis.
type RedisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// RedisConfig contains options for creating a new RedisPlanCache.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisPlanCache connects to Redis and pings it once.
func NewRedisPlanCache(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisPlanCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	logger.Info("Connected to Redis plan cache", zap.String("address", cfg.Address), zap.Duration("ttl", cfg.TTL))
	return &RedisPlanCache{client: rdb, ttl: cfg.TTL, logger: logger}, nil
}

func planKey(userID string) string {
	return planKeyPrefix + userID
}

// Get returns the cached record, or nil on a miss.
func (r *RedisPlanCache) Get(ctx context.Context, userID string) (*models.UserPlanRecord, error) {
	val, err := r.client.Get(ctx, planKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", planKey(userID), err)
	}

	var record models.UserPlanRecord
	if err := json.Unmarshal(val, &record); err != nil {
		// a corrupt entry is treated as a miss and dropped
		r.logger.Warn("Discarding undecodable plan cache entry", zap.String("userID", userID), zap.Error(err))
		_ = r.client.Del(ctx, planKey(userID)).Err()
		return nil, nil
	}
	return &record, nil
}

// Set stores record for the configured TTL.
func (r *RedisPlanCache) Set(ctx context.Context, record *models.UserPlanRecord) error {
	val, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode plan for cache: %w", err)
	}
	if err := r.client.Set(ctx, planKey(record.UserID), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", planKey(record.UserID), err)
	}
	return nil
}

// SetIfAbsent stores record with SETNX, leaving an existing entry untouched.
func (r *RedisPlanCache) SetIfAbsent(ctx context.Context, record *models.UserPlanRecord) error {
	val, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode plan for cache: %w", err)
	}
	if err := r.client.SetNX(ctx, planKey(record.UserID), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", planKey(record.UserID), err)
	}
	return nil
}

// Delete invalidates the entry for userID.
func (r *RedisPlanCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, planKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", planKey(userID), err)
	}
	return nil
}

// Close closes the Redis client.
func (r *RedisPlanCache) Close() error {
	return r.client.Close()
}

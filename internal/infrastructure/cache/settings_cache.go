package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/welfare/backend/internal/domain/contribution"
	"go.uber.org/zap"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient creates a Redis client and verifies connectivity
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// CachedSettingsStore is a read-through Redis cache over a SettingsStore.
// Individual keys are cached with a short TTL and invalidated on Set.
// Snapshot always hits the backing store: engines snapshot once per unit
// of work and a stale snapshot could mix configuration generations.
type CachedSettingsStore struct {
	backing   contribution.SettingsStore
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCachedSettingsStore wraps the backing store with a Redis cache
func NewCachedSettingsStore(backing contribution.SettingsStore, client *redis.Client, logger *zap.Logger) *CachedSettingsStore {
	return &CachedSettingsStore{
		backing:   backing,
		client:    client,
		keyPrefix: "settings:",
		ttl:       5 * time.Minute,
		logger:    logger,
	}
}

// Get returns the cached value for key, falling through to the backing
// store on a miss. Cache failures degrade to the backing store.
func (s *CachedSettingsStore) Get(ctx context.Context, key, def string) (string, error) {
	cacheKey := s.keyPrefix + key

	cached, err := s.client.Get(ctx, cacheKey).Result()
	if err == nil {
		return cached, nil
	}
	if err != redis.Nil {
		s.logger.Warn("Settings cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := s.backing.Get(ctx, key, def)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, cacheKey, value, s.ttl).Err(); err != nil {
		s.logger.Warn("Settings cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// Set writes through to the backing store and invalidates the cached key
func (s *CachedSettingsStore) Set(ctx context.Context, key, value, description string) error {
	if err := s.backing.Set(ctx, key, value, description); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		s.logger.Warn("Settings cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Snapshot delegates to the backing store uncached
func (s *CachedSettingsStore) Snapshot(ctx context.Context) (contribution.Settings, error) {
	return s.backing.Snapshot(ctx)
}

// Ensure CachedSettingsStore implements SettingsStore
var _ contribution.SettingsStore = (*CachedSettingsStore)(nil)

package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/game-invites/internal/config"
)

const onlineSetKey = "players:online"

// PresenceService mirrors online state in Redis for cheap presence lookups.
// PostgreSQL stays the source of truth; every write here is best-effort and
// the callers log rather than surface failures.
type PresenceService struct {
	client *redis.Client
	logger *slog.Logger
}

// NewPresenceService creates a new Redis presence service
func NewPresenceService(cfg *config.RedisConfig, logger *slog.Logger) (*PresenceService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &PresenceService{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *PresenceService) Close() error {
	return s.client.Close()
}

// heartbeatKey returns the Redis key for a player's heartbeat stamp
func (s *PresenceService) heartbeatKey(playerID int64) string {
	return fmt.Sprintf("player:%d:heartbeat", playerID)
}

// SetOnline adds a player to the online set
func (s *PresenceService) SetOnline(ctx context.Context, playerID int64) error {
	err := s.client.SAdd(ctx, onlineSetKey, playerID).Err()
	if err != nil {
		return fmt.Errorf("adding to online set: %w", err)
	}
	return nil
}

// SetOffline removes a player from the online set and drops their
// heartbeat stamp
func (s *PresenceService) SetOffline(ctx context.Context, playerID int64) error {
	pipe := s.client.Pipeline()
	pipe.SRem(ctx, onlineSetKey, playerID)
	pipe.Del(ctx, s.heartbeatKey(playerID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("removing from online set: %w", err)
	}
	return nil
}

// Heartbeat stamps a player's heartbeat with a TTL matching the staleness
// threshold, so the key itself lapses when the player goes silent
func (s *PresenceService) Heartbeat(ctx context.Context, playerID int64, gameOpen bool, ttl time.Duration) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.heartbeatKey(playerID), strconv.FormatBool(gameOpen), ttl)
	pipe.SAdd(ctx, onlineSetKey, playerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stamping heartbeat: %w", err)
	}
	return nil
}

// IsOnline reports whether a player is in the online set
func (s *PresenceService) IsOnline(ctx context.Context, playerID int64) (bool, error) {
	online, err := s.client.SIsMember(ctx, onlineSetKey, playerID).Result()
	if err != nil {
		return false, fmt.Errorf("checking online set: %w", err)
	}
	return online, nil
}

// OnlineCount returns the size of the online set
func (s *PresenceService) OnlineCount(ctx context.Context) (int64, error) {
	count, err := s.client.SCard(ctx, onlineSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting online set: %w", err)
	}
	return count, nil
}

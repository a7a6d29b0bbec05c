package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/game-invites/internal/config"
	"github.com/game-invites/internal/domain"
)

// PlayerService handles player heartbeats and directory queries
type PlayerService struct {
	store    PlayerStore
	presence Presence
	cfg      *config.HeartbeatConfig
	logger   *slog.Logger
}

// NewPlayerService creates a player service. presence may be nil when no
// cache is configured.
func NewPlayerService(store PlayerStore, presence Presence, cfg *config.HeartbeatConfig, logger *slog.Logger) *PlayerService {
	return &PlayerService{
		store:    store,
		presence: presence,
		cfg:      cfg,
		logger:   logger,
	}
}

// Heartbeat stamps a player heartbeat in the durable store and mirrors it
// into the presence cache. The cache write is best-effort.
func (s *PlayerService) Heartbeat(ctx context.Context, playerID int64, gameOpen bool) error {
	if err := s.store.TouchPlayerHeartbeat(ctx, playerID, gameOpen); err != nil {
		return err
	}
	if s.presence != nil {
		if err := s.presence.Heartbeat(ctx, playerID, gameOpen, s.cfg.PlayerTimeout); err != nil {
			s.logger.Warn("failed to stamp presence cache", "player_id", playerID, "error", err)
		}
	}
	return nil
}

// ListOnline returns all online players except the requester
func (s *PlayerService) ListOnline(ctx context.Context, excludeID int64) ([]domain.Player, error) {
	return s.store.ListOnlinePlayers(ctx, excludeID)
}

// Lookup finds a player by display name and tag
func (s *PlayerService) Lookup(ctx context.Context, displayName, playerTag string) (*domain.Player, error) {
	if displayName == "" || playerTag == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.store.LookupPlayer(ctx, displayName, playerTag)
}

// Alive reports whether a player is actively heartbeating within the given
// window, defaulting to the configured player timeout
func (s *PlayerService) Alive(ctx context.Context, playerID int64, timeout time.Duration) (*domain.Player, bool, error) {
	if timeout <= 0 {
		timeout = s.cfg.PlayerTimeout
	}
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, false, err
	}
	return player, player.Alive(time.Now(), timeout), nil
}

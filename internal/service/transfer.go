package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/game-invites/internal/domain"
)

// SessionCoordinator moves an accepting player from wherever they stand
// into the target session. The whole move is a saga of single-row writes,
// not a transaction: origin cleanup is best-effort and never blocks the
// destination join, and periodic count recomputation backstops any drift.
type SessionCoordinator struct {
	store  Store
	logger *slog.Logger
}

// NewSessionCoordinator creates a session transfer coordinator
func NewSessionCoordinator(store Store, logger *slog.Logger) *SessionCoordinator {
	return &SessionCoordinator{
		store:  store,
		logger: logger,
	}
}

// AcceptInto detaches the player from any session they currently host and
// attaches them to the target session, adjusting session and server counters
// on both sides.
func (c *SessionCoordinator) AcceptInto(ctx context.Context, playerID int64, targetSessionCode string, targetServerID int64) {
	c.leaveCurrentSession(ctx, playerID, targetSessionCode)

	if err := c.store.IncrementSessionPlayers(ctx, targetSessionCode); err != nil {
		c.logger.Error("failed to update destination session count",
			"session_code", targetSessionCode,
			"error", err,
		)
	}
	if err := c.store.AdjustServerPlayerCount(ctx, targetServerID, 1); err != nil {
		c.logger.Error("failed to update destination server count",
			"server_id", targetServerID,
			"error", err,
		)
	}

	c.logger.Info("player joined session",
		"player_id", playerID,
		"session_code", targetSessionCode,
		"server_id", targetServerID,
	)
}

// leaveCurrentSession cleans up the session the player hosts, if any:
// reassign host and decrement when others remain, delete outright when the
// player was alone. Every failure here is logged and swallowed; the
// player's forward progress into the new session takes priority.
func (c *SessionCoordinator) leaveCurrentSession(ctx context.Context, playerID int64, targetSessionCode string) {
	current, err := c.store.FindHostedSession(ctx, playerID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			c.logger.Error("failed to look up current session", "player_id", playerID, "error", err)
		}
		return
	}
	if current.SessionCode == targetSessionCode {
		// Accepting into the session they already host; nothing to leave.
		return
	}

	if current.CurrentPlayers > 1 {
		if err := c.store.ReassignHostAndDecrement(ctx, current.ID, playerID); err != nil {
			c.logger.Error("failed to reassign host in origin session",
				"session_id", current.ID,
				"error", err,
			)
			if err := c.store.DecrementSessionPlayers(ctx, current.ID); err != nil {
				c.logger.Error("failed to decrement origin session count",
					"session_id", current.ID,
					"error", err,
				)
			}
		}
	} else {
		if err := c.store.DeleteSession(ctx, current.ID); err != nil {
			c.logger.Error("failed to delete empty origin session",
				"session_id", current.ID,
				"error", err,
			)
		}
	}

	if err := c.store.AdjustServerPlayerCount(ctx, current.ServerID, -1); err != nil {
		c.logger.Error("failed to decrement origin server count",
			"server_id", current.ServerID,
			"error", err,
		)
	}
}

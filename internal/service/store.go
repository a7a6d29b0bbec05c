package service

import (
	"context"
	"time"

	"github.com/game-invites/internal/domain"
)

// PlayerStore is the player surface the services need from the durable store
type PlayerStore interface {
	GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error)
	GetOnlinePlayer(ctx context.Context, playerID int64) (*domain.Player, error)
	LookupPlayer(ctx context.Context, displayName, playerTag string) (*domain.Player, error)
	ListOnlinePlayers(ctx context.Context, excludeID int64) ([]domain.Player, error)
	TouchPlayerHeartbeat(ctx context.Context, playerID int64, gameOpen bool) error
}

// SessionStore is the session surface the services need
type SessionStore interface {
	CreateSession(ctx context.Context, serverID, hostPlayerID int64, sessionCode string) (int64, error)
	GetSessionInfo(ctx context.Context, sessionCode string) (*domain.SessionInfo, error)
	FindHostedSession(ctx context.Context, hostPlayerID int64) (*domain.Session, error)
	IncrementSessionPlayers(ctx context.Context, sessionCode string) error
	DecrementSessionPlayers(ctx context.Context, sessionID int64) error
	ReassignHostAndDecrement(ctx context.Context, sessionID, leavingPlayerID int64) error
	DeleteSession(ctx context.Context, sessionID int64) error
}

// ServerStore is the compute-server surface the services need
type ServerStore interface {
	RegisterServer(ctx context.Context, address string, port, maxPlayers int, region string) (int64, error)
	TouchServerHeartbeat(ctx context.Context, serverID int64) error
	FindAvailableServer(ctx context.Context) (*domain.ComputeServer, error)
	AdjustServerPlayerCount(ctx context.Context, serverID int64, delta int) error
	SetServerOccupancy(ctx context.Context, serverID int64, currentPlayers int) error
	RecomputeServerCount(ctx context.Context, serverID int64) error
}

// InviteStore is the invite surface the lifecycle engine needs. The
// conditional TransitionInvite is the store-level arbitration point for
// concurrent responses.
type InviteStore interface {
	CreateInvite(ctx context.Context, senderID, receiverID int64, sessionCode string, ttl time.Duration) (*domain.Invite, error)
	HasPendingInvite(ctx context.Context, senderID, receiverID int64) (bool, error)
	GetInviteForReceiver(ctx context.Context, inviteID, receiverID int64) (*domain.InviteDetail, error)
	TransitionInvite(ctx context.Context, inviteID int64, target domain.InviteStatus) (bool, error)
	ListPendingInvites(ctx context.Context, receiverID int64) ([]domain.PendingInvite, error)
	DeleteExpiredInvites(ctx context.Context) (int64, error)
}

// Store is the full durable-store contract, satisfied by *postgres.Repository
type Store interface {
	PlayerStore
	SessionStore
	ServerStore
	InviteStore
}

// Notifier pushes an event to a player's live channel. Delivery is
// best-effort and at-most-once; false means the player has no live channel
// and will learn the outcome by polling.
type Notifier interface {
	SendTo(playerID int64, event string, payload any) bool
}

// Presence is the best-effort online cache surface
type Presence interface {
	Heartbeat(ctx context.Context, playerID int64, gameOpen bool, ttl time.Duration) error
}

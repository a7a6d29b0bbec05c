package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StatusStore is the durable-store surface the registry needs to keep
// online flags in step with live channels
type StatusStore interface {
	SetPlayerOnline(ctx context.Context, playerID int64) error
	SetPlayerOffline(ctx context.Context, playerID int64) error
}

// PresenceCache mirrors the online set; may be nil
type PresenceCache interface {
	SetOnline(ctx context.Context, playerID int64) error
	SetOffline(ctx context.Context, playerID int64) error
}

// Registry tracks which players currently hold a live, authenticated
// channel and delivers events to a specific player by id. At most one
// channel per player id: a new registration force-closes the prior channel
// so duplicate delivery is impossible.
type Registry struct {
	mu      sync.RWMutex
	clients map[int64]*Client

	store    StatusStore
	presence PresenceCache
	grace    time.Duration
	logger   *slog.Logger
}

// NewRegistry creates a connection registry. grace is the delay before a
// disconnected player is marked offline, tolerating rapid reconnects.
func NewRegistry(store StatusStore, presence PresenceCache, grace time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		clients:  make(map[int64]*Client),
		store:    store,
		presence: presence,
		grace:    grace,
		logger:   logger,
	}
}

// Register installs the client as its player's single live channel, marks
// the player online in the durable store, and sends the connection
// acknowledgement back on the channel.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	prior := r.clients[client.playerID]
	r.clients[client.playerID] = client
	r.mu.Unlock()

	if prior != nil {
		r.logger.Info("replacing prior channel for player", "player_id", client.playerID)
		prior.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.SetPlayerOnline(ctx, client.playerID); err != nil {
		r.logger.Error("failed to mark player online", "player_id", client.playerID, "error", err)
	}
	if r.presence != nil {
		if err := r.presence.SetOnline(ctx, client.playerID); err != nil {
			r.logger.Warn("failed to update presence cache", "player_id", client.playerID, "error", err)
		}
	}

	client.sendEvent(EventConnected, ConnectedPayload{
		Status:       "connected",
		PlayerID:     client.playerID,
		ConnectionID: client.id,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})

	r.logger.Info("player connected", "player_id", client.playerID, "connection_id", client.id)
}

// Unregister removes the client's mapping immediately, then marks the
// player offline only after the grace delay and only if no new channel has
// registered for that id in the interim.
func (r *Registry) Unregister(client *Client) {
	r.mu.Lock()
	current, ok := r.clients[client.playerID]
	if !ok || current != client {
		// A replacement channel already owns this id.
		r.mu.Unlock()
		return
	}
	delete(r.clients, client.playerID)
	r.mu.Unlock()

	client.Close()
	r.logger.Info("player disconnected", "player_id", client.playerID, "connection_id", client.id)

	playerID := client.playerID
	time.AfterFunc(r.grace, func() {
		r.mu.RLock()
		_, reconnected := r.clients[playerID]
		r.mu.RUnlock()
		if reconnected {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.SetPlayerOffline(ctx, playerID); err != nil {
			r.logger.Error("failed to mark player offline", "player_id", playerID, "error", err)
		}
		if r.presence != nil {
			if err := r.presence.SetOffline(ctx, playerID); err != nil {
				r.logger.Warn("failed to update presence cache", "player_id", playerID, "error", err)
			}
		}
	})
}

// SendTo pushes an event to a player's live channel. Best-effort,
// at-most-once: returns false when the player has no channel, and a full
// send buffer drops the event rather than blocking.
func (r *Registry) SendTo(playerID int64, event string, payload any) bool {
	r.mu.RLock()
	client, ok := r.clients[playerID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	client.sendEvent(event, payload)
	return true
}

// Connections returns the number of live channels
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// OnlineIDs returns the player ids with a live channel
func (r *Registry) OnlineIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

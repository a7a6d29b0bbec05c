package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/game-invites/internal/auth"
	"github.com/game-invites/internal/domain"
	"github.com/game-invites/internal/service"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	handleTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for development
		return true
	},
}

// InviteAPI is the invite lifecycle surface exposed over the channel
type InviteAPI interface {
	Send(ctx context.Context, senderID int64, senderName string, req service.SendRequest) (*service.InviteReceipt, error)
	Respond(ctx context.Context, receiverID, inviteID int64, response string) (*service.RespondResult, error)
}

// HeartbeatAPI records player liveness signals
type HeartbeatAPI interface {
	Heartbeat(ctx context.Context, playerID int64, gameOpen bool) error
}

// Client is a single authenticated WebSocket connection
type Client struct {
	id         string
	playerID   int64
	playerName string

	registry *Registry
	conn     *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool

	invites    InviteAPI
	heartbeats HeartbeatAPI
	logger     *slog.Logger
}

// NewClient creates a client for an authenticated connection
func NewClient(registry *Registry, conn *websocket.Conn, claims *auth.Claims, invites InviteAPI, heartbeats HeartbeatAPI, logger *slog.Logger) *Client {
	return &Client{
		id:         uuid.New().String(),
		playerID:   claims.PlayerID,
		playerName: claims.FullName(),
		registry:   registry,
		conn:       conn,
		send:       make(chan []byte, 256),
		invites:    invites,
		heartbeats: heartbeats,
		logger:     logger,
	}
}

// Close tears down the send channel; safe to call more than once
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps events from the WebSocket connection to the services
func (c *Client) readPump() {
	defer func() {
		c.registry.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "player_id", c.playerID, "error", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Warn("invalid event format", "player_id", c.playerID, "error", err)
			c.sendError(EventError, "invalid event format")
			continue
		}

		c.handleEvent(&env)
	}
}

// handleEvent dispatches an inbound client event
func (c *Client) handleEvent(env *Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch env.Event {
	case EventHeartbeat:
		var payload HeartbeatPayload
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				c.sendError(EventError, "invalid heartbeat payload")
				return
			}
		}
		if err := c.heartbeats.Heartbeat(ctx, c.playerID, payload.GameOpen); err != nil {
			c.logger.Error("heartbeat failed", "player_id", c.playerID, "error", err)
			return
		}
		c.sendEvent(EventHeartbeatAck, HeartbeatAckPayload{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			GameOpen:  payload.GameOpen,
		})

	case EventInviteSend:
		var req service.SendRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.sendError(EventInviteSendError, "invalid invite payload")
			return
		}
		receipt, err := c.invites.Send(ctx, c.playerID, c.playerName, req)
		if err != nil {
			c.sendError(EventInviteSendError, errorMessage(err))
			return
		}
		c.sendEvent(EventInviteSendSuccess, receipt)

	case EventInviteAcknowledged:
		var ack InviteAckPayload
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			c.sendError(EventError, "invalid acknowledgement payload")
			return
		}
		c.logger.Info("invite delivery acknowledged", "player_id", c.playerID, "invite_id", ack.InviteID)
		c.sendEvent(EventInviteAcknowledgedAck, ack)

	case EventInviteRespond:
		var resp InviteRespondPayload
		if err := json.Unmarshal(env.Data, &resp); err != nil {
			c.sendError(EventInviteRespondError, "invalid response payload")
			return
		}
		result, err := c.invites.Respond(ctx, c.playerID, resp.InviteID, resp.Response)
		if err != nil {
			c.sendError(EventInviteRespondError, errorMessage(err))
			return
		}
		c.sendEvent(EventInviteRespondSuccess, result)

	default:
		c.logger.Debug("unknown event", "event", env.Event, "player_id", c.playerID)
	}
}

// writePump pumps queued events to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The registry closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued events to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendEvent queues an event for delivery; a full buffer drops it
func (c *Client) sendEvent(event string, payload any) {
	msg := OutEnvelope{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}
	data, _ := json.Marshal(msg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// sendError queues an error event under the given event name
func (c *Client) sendError(event, message string) {
	c.sendEvent(event, ErrorPayload{Status: "error", Message: message})
}

// errorMessage maps service errors to client-safe text
func errorMessage(err error) string {
	var sentinel error
	for _, candidate := range []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidDecision,
		domain.ErrPlayerNotFound,
		domain.ErrSessionNotFound,
		domain.ErrReceiverUnavailable,
		domain.ErrDuplicateInvite,
		domain.ErrInviteNotActionable,
		domain.ErrServerUnavailable,
	} {
		if errors.Is(err, candidate) {
			sentinel = candidate
			break
		}
	}
	if sentinel != nil {
		return sentinel.Error()
	}
	return "internal error"
}

// ServeWS upgrades an authenticated request and registers the connection
func ServeWS(registry *Registry, invites InviteAPI, heartbeats HeartbeatAPI, claims *auth.Claims, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(registry, conn, claims, invites, heartbeats, logger)
	registry.Register(client)

	go client.writePump()
	go client.readPump()

	logger.Debug("new websocket connection", "client_id", client.id, "player_id", client.playerID)
}

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/game-invites/internal/config"
	"github.com/game-invites/internal/domain"
)

// Events pushed to live channels by the lifecycle engine
const (
	EventInviteReceived = "invite:received"
	EventInviteAccepted = "invite:accepted"
	EventInviteDeclined = "invite:declined"
)

// InviteReceivedPayload is the real-time push delivered to an invite's
// receiver
type InviteReceivedPayload struct {
	InviteID    int64  `json:"invite_id"`
	SenderID    int64  `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	SessionCode string `json:"session_code"`
	ServerIP    string `json:"server_ip"`
	ServerPort  int    `json:"server_port"`
	CreatedAt   string `json:"created_at"`
	ExpiresIn   int    `json:"expires_in"`
}

// InviteOutcomePayload notifies the original sender of the receiver's
// decision
type InviteOutcomePayload struct {
	InviteID   int64  `json:"invite_id"`
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
}

// SendRequest carries the caller-supplied fields of a send operation
type SendRequest struct {
	ReceiverID  int64  `json:"receiver_id"`
	SessionCode string `json:"session_code"`
}

// InviteReceipt confirms a successful send back to the sender
type InviteReceipt struct {
	InviteID     int64  `json:"invite_id"`
	SessionCode  string `json:"session_code"`
	ReceiverID   int64  `json:"receiver_id"`
	ReceiverName string `json:"receiver_name"`
	ExpiresIn    int    `json:"expires_in"`
}

// RespondResult confirms a response back to the receiver. Server address,
// port, and session code are filled on accept only.
type RespondResult struct {
	InviteID    int64               `json:"invite_id"`
	Status      domain.InviteStatus `json:"status"`
	ServerIP    string              `json:"server_ip,omitempty"`
	ServerPort  int                 `json:"server_port,omitempty"`
	SessionCode string              `json:"session_code,omitempty"`
	Message     string              `json:"message"`
}

// InviteService is the invite lifecycle engine: it validates, creates, and
// transitions invites, pushing real-time notifications as a side effect.
// The websocket and HTTP paths both run through these methods, so identical
// inputs reach identical persisted state.
type InviteService struct {
	store       Store
	notifier    Notifier
	coordinator *SessionCoordinator
	cfg         *config.InviteConfig
	logger      *slog.Logger
}

// NewInviteService creates the lifecycle engine
func NewInviteService(
	store Store,
	notifier Notifier,
	coordinator *SessionCoordinator,
	cfg *config.InviteConfig,
	logger *slog.Logger,
) *InviteService {
	return &InviteService{
		store:       store,
		notifier:    notifier,
		coordinator: coordinator,
		cfg:         cfg,
		logger:      logger,
	}
}

// Send validates and persists a new invite, then pushes a real-time
// notification to the receiver if they have a live channel. Push failure or
// receiver absence never fails the send; the invite stays discoverable by
// polling.
func (s *InviteService) Send(ctx context.Context, senderID int64, senderName string, req SendRequest) (*InviteReceipt, error) {
	if req.ReceiverID == 0 || req.SessionCode == "" {
		return nil, domain.ErrInvalidRequest
	}
	if req.ReceiverID == senderID {
		return nil, domain.ErrInvalidRequest
	}

	session, err := s.store.GetSessionInfo(ctx, req.SessionCode)
	if err != nil {
		return nil, err
	}
	if !session.HasStanding(senderID) {
		return nil, domain.ErrSessionNotFound
	}

	receiver, err := s.store.GetOnlinePlayer(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}

	pending, err := s.store.HasPendingInvite(ctx, senderID, req.ReceiverID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.ErrDuplicateInvite
	}

	invite, err := s.store.CreateInvite(ctx, senderID, req.ReceiverID, req.SessionCode, s.cfg.TTL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite created",
		"invite_id", invite.ID,
		"sender_id", senderID,
		"receiver_id", req.ReceiverID,
		"session_code", req.SessionCode,
	)

	expiresIn := invite.ExpiresIn(time.Now())

	delivered := s.notifier.SendTo(req.ReceiverID, EventInviteReceived, InviteReceivedPayload{
		InviteID:    invite.ID,
		SenderID:    senderID,
		SenderName:  senderName,
		SessionCode: req.SessionCode,
		ServerIP:    session.ServerAddress,
		ServerPort:  session.ServerPort,
		CreatedAt:   invite.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresIn:   expiresIn,
	})
	if !delivered {
		s.logger.Debug("receiver has no live channel, invite awaits polling",
			"invite_id", invite.ID,
			"receiver_id", req.ReceiverID,
		)
	}

	return &InviteReceipt{
		InviteID:     invite.ID,
		SessionCode:  req.SessionCode,
		ReceiverID:   req.ReceiverID,
		ReceiverName: receiver.FullName(),
		ExpiresIn:    expiresIn,
	}, nil
}

// Respond transitions a pending invite to accepted or declined. The
// conditional store update arbitrates concurrent responses: exactly one
// wins, the loser observes ErrInviteNotActionable. On accept the session
// transfer runs before the receiver gets their reply.
func (s *InviteService) Respond(ctx context.Context, receiverID, inviteID int64, response string) (*RespondResult, error) {
	decision, err := domain.ParseDecision(response)
	if err != nil {
		return nil, err
	}
	if inviteID == 0 {
		return nil, domain.ErrInvalidRequest
	}

	invite, err := s.store.GetInviteForReceiver(ctx, inviteID, receiverID)
	if err != nil {
		return nil, err
	}

	moved, err := s.store.TransitionInvite(ctx, inviteID, decision)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domain.ErrInviteNotActionable
	}

	if decision == domain.InviteStatusDeclined {
		s.logger.Info("invite declined", "invite_id", inviteID, "receiver_id", receiverID)
		s.notifier.SendTo(invite.SenderID, EventInviteDeclined, InviteOutcomePayload{
			InviteID:   inviteID,
			ReceiverID: receiverID,
			Message:    "Invite was declined",
		})
		return &RespondResult{
			InviteID: inviteID,
			Status:   domain.InviteStatusDeclined,
			Message:  "Invite declined",
		}, nil
	}

	// Accept: move the player into the target session before replying.
	s.coordinator.AcceptInto(ctx, receiverID, invite.SessionCode, invite.ServerID)

	s.logger.Info("invite accepted",
		"invite_id", inviteID,
		"receiver_id", receiverID,
		"session_code", invite.SessionCode,
	)
	s.notifier.SendTo(invite.SenderID, EventInviteAccepted, InviteOutcomePayload{
		InviteID:   inviteID,
		ReceiverID: receiverID,
		Message:    "Invite was accepted",
	})

	return &RespondResult{
		InviteID:    inviteID,
		Status:      domain.InviteStatusAccepted,
		ServerIP:    invite.ServerAddress,
		ServerPort:  invite.ServerPort,
		SessionCode: invite.SessionCode,
		Message:     "Connecting to game session...",
	}, nil
}

// CheckPending is the polling fallback: all pending, unexpired invites
// addressed to the player
func (s *InviteService) CheckPending(ctx context.Context, playerID int64) ([]domain.PendingInvite, error) {
	return s.store.ListPendingInvites(ctx, playerID)
}

// Cleanup deletes expired and terminal invites; invites are not retained as
// history. Returns the number of rows removed.
func (s *InviteService) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteExpiredInvites(ctx)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("cleaned up invites", "deleted", deleted)
	}
	return deleted, nil
}

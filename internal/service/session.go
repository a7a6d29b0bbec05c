package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"

	"github.com/game-invites/internal/domain"
)

const sessionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const sessionCodeLength = 6

// GenerateSessionCode returns a random 6-character shareable session code
func GenerateSessionCode() string {
	buf := make([]byte, sessionCodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = sessionCodeAlphabet[int(b)%len(sessionCodeAlphabet)]
	}
	return string(buf)
}

// SessionService creates sessions for connecting hosts and allocates them
// onto compute-servers
type SessionService struct {
	store  Store
	logger *slog.Logger
}

// NewSessionService creates a session service
func NewSessionService(store Store, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:  store,
		logger: logger,
	}
}

// HostSession returns the session the player already hosts, or allocates a
// compute-server and creates a fresh waiting session with the player as its
// only member. A duplicate session code gets one retry with a new code.
func (s *SessionService) HostSession(ctx context.Context, hostPlayerID int64) (*domain.SessionInfo, error) {
	if existing, err := s.store.FindHostedSession(ctx, hostPlayerID); err == nil {
		return s.store.GetSessionInfo(ctx, existing.SessionCode)
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}

	server, err := s.store.FindAvailableServer(ctx)
	if err != nil {
		return nil, err
	}

	code := GenerateSessionCode()
	_, err = s.store.CreateSession(ctx, server.ID, hostPlayerID, code)
	if errors.Is(err, domain.ErrSessionCodeTaken) {
		code = GenerateSessionCode()
		_, err = s.store.CreateSession(ctx, server.ID, hostPlayerID, code)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.AdjustServerPlayerCount(ctx, server.ID, 1); err != nil {
		s.logger.Warn("failed to bump server count for new session",
			"server_id", server.ID,
			"error", err,
		)
	}

	s.logger.Info("session created",
		"session_code", code,
		"host_player_id", hostPlayerID,
		"server_id", server.ID,
	)

	return s.store.GetSessionInfo(ctx, code)
}

package service

import (
	"context"
	"log/slog"

	"github.com/game-invites/internal/domain"
)

// RegisterServerRequest carries a compute-server registration
type RegisterServerRequest struct {
	Address    string `json:"ip_address"`
	Port       int    `json:"port"`
	MaxPlayers int    `json:"max_players"`
	Region     string `json:"region"`
}

// ServerService handles the compute-server fleet: registration, heartbeats,
// and occupancy reports. It also serves as the handler behind the Kafka
// status ingestion path.
type ServerService struct {
	store  ServerStore
	logger *slog.Logger
}

// NewServerService creates a server service
func NewServerService(store ServerStore, logger *slog.Logger) *ServerService {
	return &ServerService{
		store:  store,
		logger: logger,
	}
}

// Register adds a compute-server to the fleet
func (s *ServerService) Register(ctx context.Context, req RegisterServerRequest) (int64, error) {
	if req.Address == "" || req.Port == 0 {
		return 0, domain.ErrInvalidRequest
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 4
	}
	if req.Region == "" {
		req.Region = "default"
	}
	id, err := s.store.RegisterServer(ctx, req.Address, req.Port, req.MaxPlayers, req.Region)
	if err != nil {
		return 0, err
	}
	s.logger.Info("compute-server registered", "server_id", id, "address", req.Address, "port", req.Port)
	return id, nil
}

// ServerHeartbeat stamps a compute-server heartbeat and restores its
// availability
func (s *ServerService) ServerHeartbeat(ctx context.Context, serverID int64) error {
	if serverID == 0 {
		return domain.ErrInvalidRequest
	}
	return s.store.TouchServerHeartbeat(ctx, serverID)
}

// ServerOccupancy overwrites a server's reported aggregate player count
func (s *ServerService) ServerOccupancy(ctx context.Context, serverID int64, currentPlayers int) error {
	if serverID == 0 {
		return domain.ErrInvalidRequest
	}
	return s.store.SetServerOccupancy(ctx, serverID, currentPlayers)
}

// Reconcile recomputes a server's aggregate count from its live sessions
func (s *ServerService) Reconcile(ctx context.Context, serverID int64) error {
	return s.store.RecomputeServerCount(ctx, serverID)
}

package domain

import "time"

// SessionStatus represents the lifecycle state of a game session
type SessionStatus string

const (
	SessionStatusWaiting  SessionStatus = "waiting"
	SessionStatusActive   SessionStatus = "active"
	SessionStatusFinished SessionStatus = "finished"
)

// Session represents one host's joinable game instance
type Session struct {
	ID             int64         `json:"id"`
	ServerID       int64         `json:"server_id"`
	SessionCode    string        `json:"session_code"`
	HostPlayerID   int64         `json:"host_player_id"`
	CurrentPlayers int           `json:"current_players"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// SessionInfo is a session joined with its backing compute-server's address,
// the shape clients need to connect.
type SessionInfo struct {
	Session
	ServerAddress string `json:"server_ip"`
	ServerPort    int    `json:"server_port"`
}

// HasStanding reports whether the given player may act on behalf of this
// session: its host always can, and any session that already holds players
// is open to its members.
func (s *Session) HasStanding(playerID int64) bool {
	return s.HostPlayerID == playerID || s.CurrentPlayers > 0
}

// ComputeServer is a backing process capable of hosting game sessions
type ComputeServer struct {
	ID                 int64      `json:"id"`
	Address            string     `json:"ip_address"`
	Port               int        `json:"port"`
	MaxPlayers         int        `json:"max_players"`
	Region             string     `json:"region"`
	IsAvailable        bool       `json:"is_available"`
	CurrentPlayerCount int        `json:"current_player_count"`
	LastHeartbeat      *time.Time `json:"last_heartbeat,omitempty"`
}

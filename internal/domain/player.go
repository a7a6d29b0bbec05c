package domain

import (
	"fmt"
	"time"
)

// Player represents a registered player in the system
type Player struct {
	ID            int64      `json:"id"`
	DisplayName   string     `json:"display_name"`
	PlayerTag     string     `json:"player_tag"`
	IsOnline      bool       `json:"is_online"`
	GameOpen      bool       `json:"game_open"`
	ConnectedAt   *time.Time `json:"connected_at,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	LastSeen      *time.Time `json:"last_seen,omitempty"`
}

// FullName returns the display name with its disambiguation tag appended,
// e.g. "Ada#0042".
func (p *Player) FullName() string {
	return fmt.Sprintf("%s%s", p.DisplayName, p.PlayerTag)
}

// Alive reports whether the player is actively heartbeating: online, game
// open, and a heartbeat newer than the timeout.
func (p *Player) Alive(now time.Time, timeout time.Duration) bool {
	if !p.IsOnline || !p.GameOpen || p.LastHeartbeat == nil {
		return false
	}
	return now.Sub(*p.LastHeartbeat) <= timeout
}

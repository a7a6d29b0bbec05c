package domain

import (
	"time"
)

// InviteStatus represents the state of an invite. Status is monotonic: a
// terminal status never reverts to pending.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
)

// Terminal reports whether the status admits no further transitions.
func (s InviteStatus) Terminal() bool {
	return s == InviteStatusAccepted || s == InviteStatusDeclined
}

// CanTransitionTo reports whether moving from s to target is a legal
// state-machine transition. Only pending invites move, and only to a
// terminal status.
func (s InviteStatus) CanTransitionTo(target InviteStatus) bool {
	return s == InviteStatusPending && target.Terminal()
}

// ParseDecision maps a caller-supplied response literal to the status it
// transitions the invite into.
func ParseDecision(response string) (InviteStatus, error) {
	switch response {
	case "accept":
		return InviteStatusAccepted, nil
	case "decline":
		return InviteStatusDeclined, nil
	default:
		return "", ErrInvalidDecision
	}
}

// InviteTTL is the fixed validity window of every invite.
const InviteTTL = 120 * time.Second

// Invite is a time-boxed offer from one player to another to join a session
type Invite struct {
	ID          int64        `json:"invite_id"`
	SenderID    int64        `json:"sender_id"`
	ReceiverID  int64        `json:"receiver_id"`
	SessionCode string       `json:"session_code"`
	Status      InviteStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

// Expired reports lazy expiry: an invite past its window is dead even if its
// stored status still reads pending.
func (i *Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// ActionableBy reports whether the given player may accept or decline this
// invite right now. Only the receiver acts, and only while the invite is
// pending and unexpired.
func (i *Invite) ActionableBy(playerID int64, now time.Time) bool {
	return i.ReceiverID == playerID && i.Status == InviteStatusPending && !i.Expired(now)
}

// ExpiresIn returns the whole seconds remaining before expiry, floored at 0.
func (i *Invite) ExpiresIn(now time.Time) int {
	remaining := int(i.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// InviteDetail is an invite joined with its target session and backing
// server, the shape the respond path works from.
type InviteDetail struct {
	Invite
	SessionID     int64  `json:"session_id"`
	ServerID      int64  `json:"server_id"`
	ServerAddress string `json:"server_ip"`
	ServerPort    int    `json:"server_port"`
}

// PendingInvite is an invite joined with sender identity, returned by the
// polling fallback.
type PendingInvite struct {
	InviteID    int64     `json:"invite_id"`
	SenderID    int64     `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SessionCode string    `json:"session_code"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int       `json:"expires_in"`
}

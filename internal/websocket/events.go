package websocket

import (
	"encoding/json"
	"time"
)

// Channel event names
const (
	EventConnected = "connected"

	EventHeartbeat    = "heartbeat"
	EventHeartbeatAck = "heartbeat:ack"

	EventInviteSend        = "invite:send"
	EventInviteSendSuccess = "invite:send:success"
	EventInviteSendError   = "invite:send:error"

	EventInviteAcknowledged    = "invite:acknowledged"
	EventInviteAcknowledgedAck = "invite:acknowledged:ack"

	EventInviteRespond        = "invite:respond"
	EventInviteRespondSuccess = "invite:respond:success"
	EventInviteRespondError   = "invite:respond:error"

	EventError = "error"
)

// Envelope is the wire frame for inbound client events
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutEnvelope is the wire frame for events pushed to a client
type OutEnvelope struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConnectedPayload acknowledges a successful channel registration
type ConnectedPayload struct {
	Status       string `json:"status"`
	PlayerID     int64  `json:"player_id"`
	ConnectionID string `json:"connection_id"`
	Timestamp    string `json:"timestamp"`
}

// HeartbeatPayload is the inbound liveness signal
type HeartbeatPayload struct {
	GameOpen bool `json:"game_open"`
}

// HeartbeatAckPayload confirms a processed heartbeat
type HeartbeatAckPayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	GameOpen  bool   `json:"game_open"`
}

// InviteAckPayload confirms receipt of an invite (telemetry only)
type InviteAckPayload struct {
	InviteID int64 `json:"invite_id"`
}

// InviteRespondPayload is the inbound accept/decline decision
type InviteRespondPayload struct {
	InviteID int64  `json:"invite_id"`
	Response string `json:"response"`
}

// ErrorPayload carries an error message back to the client
type ErrorPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

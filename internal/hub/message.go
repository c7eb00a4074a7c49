package hub

import (
	"time"

	"github.com/soar/camstick/internal/config"
	"github.com/soar/camstick/internal/remap"
)

// Server to client message types.
const (
	TypeFull   = "full"
	TypeDelta  = "delta"
	TypeConfig = "config"
	TypeStatus = "status"
	TypeError  = "error"
)

// Client to server message types.
const (
	CmdUpdate        = "update"
	CmdSaveNow       = "save_now"
	CmdResetDefaults = "reset_defaults"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string              `json:"type"`
	Seq       int64               `json:"seq"`
	Timestamp int64               `json:"timestamp"` // Unix milliseconds
	Data      *remap.Telemetry    `json:"data,omitempty"`
	Changes   *remap.DeltaChanges `json:"changes,omitempty"`
	Config    *config.Config      `json:"config,omitempty"`
	Status    *config.Status      `json:"status,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// NewFullMessage creates a "full" message carrying the complete output state.
func NewFullMessage(seq int64, state *remap.Telemetry) *WSMessage {
	return &WSMessage{Type: TypeFull, Seq: seq, Timestamp: time.Now().UnixMilli(), Data: state}
}

// NewDeltaMessage creates a "delta" message carrying only changed fields.
func NewDeltaMessage(seq int64, changes *remap.DeltaChanges) *WSMessage {
	return &WSMessage{Type: TypeDelta, Seq: seq, Timestamp: time.Now().UnixMilli(), Changes: changes}
}

// NewConfigMessage creates a "config" message with a settings snapshot.
func NewConfigMessage(seq int64, cfg *config.Config) *WSMessage {
	return &WSMessage{Type: TypeConfig, Seq: seq, Timestamp: time.Now().UnixMilli(), Config: cfg}
}

// NewStatusMessage creates a "status" message with the editor's save state.
func NewStatusMessage(seq int64, status *config.Status) *WSMessage {
	return &WSMessage{Type: TypeStatus, Seq: seq, Timestamp: time.Now().UnixMilli(), Status: status}
}

// NewErrorMessage reports a failed client command back to that client.
func NewErrorMessage(msg string) *WSMessage {
	return &WSMessage{Type: TypeError, Timestamp: time.Now().UnixMilli(), Error: msg}
}

// ClientMessage represents a message sent from the client to the server.
type ClientMessage struct {
	Type   string         `json:"type"`
	Fields map[string]any `json:"fields,omitempty"`
}

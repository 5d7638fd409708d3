package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of a message.
type MessageType string

const (
	// Server -> client
	TypeNotification  MessageType = "notification"
	TypeAlert         MessageType = "alert"
	TypeEventsChanged MessageType = "events.changed"

	// Client -> server
	TypePing MessageType = "ping"

	// Server -> client responses
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// NotificationTimeout is how long a transient notification stays visible.
const NotificationTimeout = 3 * time.Second

// Message is the envelope for every frame.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload,omitempty"`
}

// NewMessage creates a message with a fresh id and the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationPayload is the payload of notification messages.
type NotificationPayload struct {
	Level       string `json:"level"` // success, error, info
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
	TimeoutMS   int64  `json:"timeout_ms"`
}

// AlertPayload is the payload of alert messages. Alerts stay until dismissed.
type AlertPayload struct {
	Message string `json:"message"`
}

// EventsChangedPayload tells clients to refetch state.
type EventsChangedPayload struct {
	TotalEvents   int `json:"total_events"`
	VisibleEvents int `json:"visible_events"`
}

// ErrorPayload is the payload of error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}

package encoding

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/marketbridge/chat-sdk/pkg/core"
)

// MessageType represents the type of a chat message
type MessageType string

const (
	TypeChat  MessageType = "CHAT"
	TypeJoin  MessageType = "JOIN"
	TypeLeave MessageType = "LEAVE"
	TypeRead  MessageType = "READ"
)

// Validate validates that a message type is one of the allowed values
func (t MessageType) Validate() error {
	switch t {
	case TypeChat, TypeJoin, TypeLeave, TypeRead:
		return nil
	default:
		return fmt.Errorf("invalid message type: %s", t)
	}
}

// ChatMessage is the message envelope exchanged with the chat backend.
type ChatMessage struct {
	ID         ID          `json:"id,omitempty"`
	ChatRoomID ID          `json:"chatRoomId"`
	SenderID   ID          `json:"senderId"`
	ReceiverID ID          `json:"receiverId,omitempty"`
	Content    string      `json:"content,omitempty"`
	Type       MessageType `json:"type,omitempty"`
	Timestamp  *time.Time  `json:"timestamp,omitempty"`
}

// Validate validates the chat message
func (m *ChatMessage) Validate() error {
	var violations []core.ValidationViolation
	if m.ChatRoomID.IsZero() {
		violations = append(violations, core.ValidationViolation{
			Field:   "chatRoomId",
			Message: "chat room id is required",
		})
	}
	if m.SenderID.IsZero() {
		violations = append(violations, core.ValidationViolation{
			Field:   "senderId",
			Message: "sender id is required",
		})
	}
	if m.Type != "" {
		if err := m.Type.Validate(); err != nil {
			violations = append(violations, core.ValidationViolation{
				Field:   "type",
				Message: err.Error(),
				Value:   m.Type,
			})
		}
	}
	if (m.Type == "" || m.Type == TypeChat) && m.Content == "" {
		violations = append(violations, core.ValidationViolation{
			Field:   "content",
			Message: "content is required",
		})
	}

	if len(violations) > 0 {
		return core.NewValidationError("invalid chat message", violations...)
	}
	return nil
}

// ToJSON serializes the message to JSON
func (m *ChatMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EncodeCommand builds the payload of a room command (join, leave, mark as read).
func EncodeCommand(roomID, senderID ID, t MessageType) ([]byte, error) {
	cmd := &ChatMessage{
		ChatRoomID: roomID,
		SenderID:   senderID,
		Type:       t,
	}
	if t == TypeChat {
		return nil, fmt.Errorf("%s is not a room command", t)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd.ToJSON()
}

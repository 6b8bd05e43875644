package encoding

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marketbridge/chat-sdk/pkg/core"
)

// Kind tags an inbound envelope with the family of topic it arrived on.
type Kind string

const (
	// KindInbox marks a delivery on the user's personal queue.
	KindInbox Kind = "inbox"
	// KindRoom marks a broadcast on a chat room topic.
	KindRoom Kind = "room"
)

// Validate validates that a kind is one of the allowed values
func (k Kind) Validate() error {
	switch k {
	case KindInbox, KindRoom:
		return nil
	default:
		return fmt.Errorf("invalid kind: %q", k)
	}
}

// Envelope is one decoded inbound application message.
type Envelope struct {
	Kind        Kind            `json:"kind"`
	RoomID      ID              `json:"roomId,omitempty"`
	SenderID    ID              `json:"senderId,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	ReceivedAt  time.Time       `json:"receivedAt"`
}

// routingFields are the well-known payload fields lifted onto the envelope.
type routingFields struct {
	ChatRoomID ID `json:"chatRoomId"`
	RoomID     ID `json:"roomId"`
	SenderID   ID `json:"senderId"`
}

var errNotObject = errors.New("payload is not a JSON object")

// DecodeInbound decodes a frame body received on destination. The body must
// be a JSON object; anything else yields a *core.DecodeError.
func DecodeInbound(kind Kind, destination string, body []byte) (*Envelope, error) {
	if err := kind.Validate(); err != nil {
		return nil, &core.DecodeError{Destination: destination, Err: err}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return nil, &core.DecodeError{Destination: destination, Err: err}
	}
	payload := compact.Bytes()
	if len(payload) == 0 || payload[0] != '{' {
		return nil, &core.DecodeError{Destination: destination, Err: errNotObject}
	}

	// Routing fields are best effort; a payload with odd ids is still a message.
	var fields routingFields
	_ = json.Unmarshal(payload, &fields)

	env := &Envelope{
		Kind:        kind,
		RoomID:      fields.ChatRoomID,
		SenderID:    fields.SenderID,
		Destination: destination,
		Payload:     json.RawMessage(payload),
		ReceivedAt:  time.Now(),
	}
	if env.RoomID.IsZero() {
		env.RoomID = fields.RoomID
	}
	if env.RoomID.IsZero() && kind == KindRoom {
		if key, err := core.ParseDestination(destination); err == nil {
			env.RoomID = ID(key.ID)
		}
	}
	return env, nil
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Kind, err)
	}
	return nil
}

// ChatMessage decodes the payload as a ChatMessage.
func (e *Envelope) ChatMessage() (*ChatMessage, error) {
	var msg ChatMessage
	if err := e.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

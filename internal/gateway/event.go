// Package gateway implements the inbound/outbound wire shapes at the
// edge of the core (spec §6 "Inbound event shape" / "Outbound send
// interface"). Grounded on the teacher's internal/agent JSON-envelope
// decoding style (a discriminated `event`/`type` field dispatching to
// a typed payload).
package gateway

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates the top-level inbound event.
type EventType string

const (
	EventMessage             EventType = "message"
	EventGroupParticipants   EventType = "group.participants"
)

// MessagePayload is payload for EventMessage.
type MessagePayload struct {
	ID            string `json:"id"`
	ChatID        string `json:"chat_id"`
	From          string `json:"from"`
	FromName      string `json:"from_name"`
	Body          string `json:"body"`
	Timestamp     int64  `json:"timestamp"`
	RepliedToID   string `json:"replied_to_id,omitempty"`
	QuotedBody    string `json:"quoted_body,omitempty"`
}

// ParticipantsPayload is payload for EventGroupParticipants.
type ParticipantsPayload struct {
	ChatID string   `json:"chat_id"`
	Type   string   `json:"type"` // join|leave|promote|demote
	JIDs   []string `json:"jids"`
}

// Event is one decoded inbound webhook envelope.
type Event struct {
	Type     EventType
	DeviceID string
	Message  *MessagePayload
	Participants *ParticipantsPayload
	// Unhandled is true for any event type other than the two above
	// (spec §6: "All other events are acknowledged as un-handled").
	Unhandled bool
}

type envelope struct {
	Event    EventType       `json:"event"`
	DeviceID string          `json:"device_id"`
	Payload  json.RawMessage `json:"payload"`
}

// Decode parses one inbound event envelope.
func Decode(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("gateway: decoding event envelope: %w", err)
	}

	ev := Event{Type: env.Event, DeviceID: env.DeviceID}
	switch env.Event {
	case EventMessage:
		var p MessagePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("gateway: decoding message payload: %w", err)
		}
		ev.Message = &p
	case EventGroupParticipants:
		var p ParticipantsPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("gateway: decoding participants payload: %w", err)
		}
		ev.Participants = &p
	default:
		ev.Unhandled = true
	}
	return ev, nil
}

// IsSelfMessage reports whether a message event originated from the
// bot's own device (spec §6: "A message whose payload.from ==
// device_id is skipped").
func (e Event) IsSelfMessage() bool {
	return e.Message != nil && e.Message.From == e.DeviceID
}

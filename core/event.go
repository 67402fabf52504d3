package core

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	// RoomUpdatedEvent is pushed to a room's listeners after a message is appended
	// or the room is renamed. Listeners are expected to re-read the room.
	RoomUpdatedEvent = "room_updated"
)

type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (e Event) String() string {
	return fmt.Sprintf("Event{Type: %s, Payload.Size: %d}", e.Type, len(e.Payload))
}

type RoomUpdatedPayload struct {
	RoomID      int    `json:"room_id"`
	ChannelName string `json:"channel_name,omitempty"`
	// LastUID is -1 when the update did not append a message.
	LastUID int `json:"last_uid"`
}

func EncodeEvent(w io.Writer, e *Event) error {
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return nil
}

func DecodeEvent(r io.Reader, e *Event) error {
	if err := json.NewDecoder(r).Decode(e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return nil
}

type EventTransport interface {
	SendToRooms(event *Event, rooms ...int)
}

// EventEmitter encodes payloads into events and hands them to a transport.
type EventEmitter struct {
	transport EventTransport
}

func NewEventEmitter(transport EventTransport) *EventEmitter {
	return &EventEmitter{transport: transport}
}

// EmitTo sends an event to every listener of the given rooms.
func (em *EventEmitter) EmitTo(t string, payload interface{}, rooms ...int) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	e := &Event{
		Type:    t,
		Payload: b,
	}

	em.transport.SendToRooms(e, rooms...)
	return nil
}

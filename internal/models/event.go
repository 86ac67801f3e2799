// Package models defines the wire and internal shapes of Tailscale webhook
// events.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotArray is returned when the webhook body is valid JSON but its
// top-level value is not an array of events.
var ErrNotArray = errors.New("webhook body is not a JSON array")

// Event is a single Tailscale webhook event. Type, Tailnet, Message,
// Timestamp and Version are required on the wire; Data carries whatever
// event-specific fields Tailscale attaches. Unknown fields on the outer
// object are tolerated and dropped.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
	Type      string         `json:"type"`    // e.g. "node.created", "node.key-expired"
	Tailnet   string         `json:"tailnet"` // tailnet domain name
	Message   string         `json:"message"` // human-readable description
	Data      map[string]any `json:"data"`
}

// wireEvent shadows Event with pointer fields so absent keys can be told
// apart from zero values during decode.
type wireEvent struct {
	Timestamp *time.Time     `json:"timestamp"`
	Version   *int           `json:"version"`
	Type      *string        `json:"type"`
	Tailnet   *string        `json:"tailnet"`
	Message   *string        `json:"message"`
	Data      map[string]any `json:"data"`
}

func (w *wireEvent) validate(index int) error {
	missing := func(field string) error {
		return fmt.Errorf("event %d: missing required field %q", index, field)
	}
	switch {
	case w.Timestamp == nil:
		return missing("timestamp")
	case w.Version == nil:
		return missing("version")
	case w.Type == nil:
		return missing("type")
	case w.Tailnet == nil:
		return missing("tailnet")
	case w.Message == nil:
		return missing("message")
	}
	return nil
}

func (w *wireEvent) toEvent() Event {
	data := w.Data
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		Timestamp: *w.Timestamp,
		Version:   *w.Version,
		Type:      *w.Type,
		Tailnet:   *w.Tailnet,
		Message:   *w.Message,
		Data:      data,
	}
}

// ParseEvents decodes a raw webhook body into its event batch. It fails when
// the body is not JSON, the top-level value is not an array, or any element
// is missing a required field or carries one of the wrong type. The parse is
// pure: the same body always yields the same batch.
func ParseEvents(body []byte) ([]Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if raw == nil {
		// A bare JSON null unmarshals without error but is not an array.
		return nil, ErrNotArray
	}

	events := make([]Event, 0, len(raw))
	for i, msg := range raw {
		var w wireEvent
		if err := json.Unmarshal(msg, &w); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if err := w.validate(i); err != nil {
			return nil, err
		}
		events = append(events, w.toEvent())
	}
	return events, nil
}

// NotificationPayload is the per-event projection handed to notification
// channels.
type NotificationPayload struct {
	EventType    string         `json:"event_type"`
	EventMessage string         `json:"event_message"`
	Tailnet      string         `json:"tailnet"`
	Timestamp    time.Time      `json:"timestamp"`
	RawData      map[string]any `json:"raw_data"`
}

// NewNotificationPayload projects an event into its notification form.
func NewNotificationPayload(e Event) NotificationPayload {
	return NotificationPayload{
		EventType:    e.Type,
		EventMessage: e.Message,
		Tailnet:      e.Tailnet,
		Timestamp:    e.Timestamp,
		RawData:      e.Data,
	}
}

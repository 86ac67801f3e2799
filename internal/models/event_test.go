package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBatch = `[{
	"timestamp": "2024-01-15T10:30:00Z",
	"version": 1,
	"type": "node.created",
	"tailnet": "example.com",
	"message": "Node created",
	"data": {"nodeID": "n123", "url": "https://example.com"}
}]`

func TestParseEvents_Valid(t *testing.T) {
	events, err := ParseEvents([]byte(validBatch))
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "node.created", e.Type)
	assert.Equal(t, "example.com", e.Tailnet)
	assert.Equal(t, "Node created", e.Message)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), e.Timestamp)
	assert.Equal(t, "n123", e.Data["nodeID"])
}

func TestParseEvents_EmptyBatch(t *testing.T) {
	events, err := ParseEvents([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseEvents_MultipleEventsKeepOrder(t *testing.T) {
	body := `[
		{"timestamp":"2024-01-15T10:30:00Z","version":1,"type":"node.created","tailnet":"a.com","message":"first"},
		{"timestamp":"2024-01-15T10:31:00Z","version":1,"type":"node.deleted","tailnet":"a.com","message":"second"}
	]`
	events, err := ParseEvents([]byte(body))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Message)
	assert.Equal(t, "second", events[1].Message)
}

func TestParseEvents_NotArray(t *testing.T) {
	_, err := ParseEvents([]byte(`{"type":"not-an-array"}`))
	assert.ErrorIs(t, err, ErrNotArray)
}

func TestParseEvents_NullBody(t *testing.T) {
	_, err := ParseEvents([]byte(`null`))
	assert.ErrorIs(t, err, ErrNotArray)
}

func TestParseEvents_InvalidJSON(t *testing.T) {
	_, err := ParseEvents([]byte(`not json at all`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotArray)
}

func TestParseEvents_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing timestamp", `[{"version":1,"type":"t","tailnet":"x","message":"m"}]`},
		{"missing version", `[{"timestamp":"2024-01-15T10:30:00Z","type":"t","tailnet":"x","message":"m"}]`},
		{"missing type", `[{"timestamp":"2024-01-15T10:30:00Z","version":1,"tailnet":"x","message":"m"}]`},
		{"missing tailnet", `[{"timestamp":"2024-01-15T10:30:00Z","version":1,"type":"t","message":"m"}]`},
		{"missing message", `[{"timestamp":"2024-01-15T10:30:00Z","version":1,"type":"t","tailnet":"x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvents([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParseEvents_WrongFieldTypes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"version not an integer", `[{"timestamp":"2024-01-15T10:30:00Z","version":"one","type":"t","tailnet":"x","message":"m"}]`},
		{"timestamp not a datetime", `[{"timestamp":"yesterday","version":1,"type":"t","tailnet":"x","message":"m"}]`},
		{"type not a string", `[{"timestamp":"2024-01-15T10:30:00Z","version":1,"type":7,"tailnet":"x","message":"m"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvents([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParseEvents_UnknownFieldsTolerated(t *testing.T) {
	body := `[{
		"timestamp": "2024-01-15T10:30:00Z",
		"version": 1,
		"type": "node.created",
		"tailnet": "example.com",
		"message": "Node created",
		"data": {},
		"futureField": {"nested": true},
		"anotherNewThing": 42
	}]`
	events, err := ParseEvents([]byte(body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "node.created", events[0].Type)
}

func TestParseEvents_MissingDataDefaultsEmpty(t *testing.T) {
	body := `[{"timestamp":"2024-01-15T10:30:00Z","version":1,"type":"t","tailnet":"x","message":"m"}]`
	events, err := ParseEvents([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, events[0].Data)
	assert.Empty(t, events[0].Data)
}

func TestParseEvents_Idempotent(t *testing.T) {
	first, err := ParseEvents([]byte(validBatch))
	require.NoError(t, err)
	second, err := ParseEvents([]byte(validBatch))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseEvents_OneBadElementFailsBatch(t *testing.T) {
	body := `[
		{"timestamp":"2024-01-15T10:30:00Z","version":1,"type":"t","tailnet":"x","message":"ok"},
		{"version":1,"type":"t","tailnet":"x","message":"no timestamp"}
	]`
	_, err := ParseEvents([]byte(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event 1")
}

func TestNewNotificationPayload(t *testing.T) {
	events, err := ParseEvents([]byte(validBatch))
	require.NoError(t, err)

	p := NewNotificationPayload(events[0])
	assert.Equal(t, "node.created", p.EventType)
	assert.Equal(t, "Node created", p.EventMessage)
	assert.Equal(t, "example.com", p.Tailnet)
	assert.Equal(t, events[0].Timestamp, p.Timestamp)
	assert.Equal(t, events[0].Data, p.RawData)
}

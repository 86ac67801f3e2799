package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookline-systems/hookline/internal/models"
)

func testPayload() models.NotificationPayload {
	return models.NotificationPayload{
		EventType:    "node.created",
		EventMessage: "Node created",
		Tailnet:      "example.com",
		Timestamp:    time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		RawData:      map[string]any{"nodeID": "n123"},
	}
}

func TestSend_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewChannel("bot-token", "@alerts", nil, WithBaseURL(server.URL))
	defer c.Close()

	err := c.Send(context.Background(), testPayload())
	require.NoError(t, err)

	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "@alerts", gotBody["chat_id"])
	assert.Equal(t, "HTML", gotBody["parse_mode"])
	assert.Contains(t, gotBody["text"], "node.created")
	assert.Contains(t, gotBody["text"], "example.com")
}

func TestSend_APIErrorReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	c := NewChannel("bot-token", "nope", nil, WithBaseURL(server.URL))
	defer c.Close()

	err := c.Send(context.Background(), testPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSend_TransportErrorReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := NewChannel("bot-token", "@alerts", nil, WithBaseURL(server.URL))
	defer c.Close()

	err := c.Send(context.Background(), testPayload())
	assert.Error(t, err)
}

func TestSend_HonorsContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	c := NewChannel("bot-token", "@alerts", nil, WithBaseURL(server.URL))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Send(ctx, testPayload())
	assert.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	text := FormatMessage(testPayload())

	assert.True(t, strings.HasPrefix(text, "🔔 <b>Tailscale Event</b>"))
	assert.Contains(t, text, "<b>Type:</b> <code>node.created</code>")
	assert.Contains(t, text, "<b>Tailnet:</b> example.com")
	assert.Contains(t, text, "<b>Message:</b> Node created")
	assert.Contains(t, text, "<b>Time:</b> 2024-01-15T10:30:00Z")
	assert.Contains(t, text, "<b>Details:</b>")
	assert.Contains(t, text, "nodeID: <code>n123</code>")
}

func TestFormatMessage_NoDataOmitsDetails(t *testing.T) {
	p := testPayload()
	p.RawData = map[string]any{}
	assert.NotContains(t, FormatMessage(p), "Details")
}

func TestFormatMessage_TruncatesLongValues(t *testing.T) {
	p := testPayload()
	p.RawData = map[string]any{"blob": strings.Repeat("x", 500)}

	text := FormatMessage(p)
	assert.Contains(t, text, strings.Repeat("x", 97)+"...")
	assert.NotContains(t, text, strings.Repeat("x", 101))
}

func TestFormatMessage_NonStringValues(t *testing.T) {
	p := testPayload()
	p.RawData = map[string]any{"count": float64(7)}
	assert.Contains(t, FormatMessage(p), "count: <code>7</code>")
}

func TestClose_Idempotent(t *testing.T) {
	c := NewChannel("bot-token", "@alerts", nil)
	c.Close()
	c.Close() // second call must be a no-op
}

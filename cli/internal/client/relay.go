package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hookline-systems/hookline/internal/models"
	"github.com/hookline-systems/hookline/internal/signature"
)

// RelayClient posts signed event batches to a hookline relay, the way
// Tailscale itself would.
type RelayClient struct {
	baseURL string
	client  *http.Client
}

func NewRelayClient(baseURL string) *RelayClient {
	return &RelayClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Response is the relay's reply body for accepted and failed deliveries.
type Response struct {
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"http_status"`
}

// SendEvents signs the batch with secret and posts it to /events. timestamp
// is the value signed into the header; pass time.Now().Unix() for a live
// delivery or an older value to exercise replay rejection.
func (c *RelayClient) SendEvents(secret string, timestamp int64, events []models.Event) (*Response, error) {
	body, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("marshal events: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	sig := signature.Compute(timestamp, body, []byte(secret))
	req.Header.Set("Tailscale-Webhook-Signature", fmt.Sprintf("t=%d,v1=%s", timestamp, sig))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	out := &Response{HTTPStatus: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode relay response: %w", err)
	}
	return out, nil
}

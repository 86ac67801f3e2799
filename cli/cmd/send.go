package cmd

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/hookline-systems/hookline/cli/internal/client"
	"github.com/hookline-systems/hookline/cli/pkg/output"
	"github.com/hookline-systems/hookline/internal/models"
)

var eventTypes = []string{
	"node.created",
	"node.approved",
	"node.deleted",
	"node.key-expired",
	"policy.updated",
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a signed test webhook",
	Long:  "Build an event batch, sign it with the shared secret and post it to a running relay.",
	Example: `  hookctl send --secret s3cret --message "Test node joined"
  hookctl send --secret s3cret --fake 3
  hookctl send --secret s3cret --age 600   # exercise replay rejection`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		if secret == "" {
			return fmt.Errorf("--secret is required (the relay's webhook secret)")
		}

		relayURL, _ := cmd.Flags().GetString("relay-url")
		eventType, _ := cmd.Flags().GetString("type")
		tailnet, _ := cmd.Flags().GetString("tailnet")
		message, _ := cmd.Flags().GetString("message")
		fakeCount, _ := cmd.Flags().GetInt("fake")
		ageSeconds, _ := cmd.Flags().GetInt64("age")
		format, _ := cmd.Flags().GetString("output")

		var events []models.Event
		if fakeCount > 0 {
			for i := 0; i < fakeCount; i++ {
				events = append(events, fakeEvent())
			}
		} else {
			events = append(events, models.Event{
				Timestamp: time.Now().UTC(),
				Version:   1,
				Type:      eventType,
				Tailnet:   tailnet,
				Message:   message,
				Data:      map[string]any{"source": "hookctl"},
			})
		}

		relayClient := client.NewRelayClient(relayURL)
		resp, err := relayClient.SendEvents(secret, time.Now().Unix()-ageSeconds, events)
		if err != nil {
			return fmt.Errorf("failed to send webhook: %w", err)
		}

		return output.Render(format, resp, func() {
			if resp.HTTPStatus >= 200 && resp.HTTPStatus < 300 {
				output.Success("%s (HTTP %d, request_id=%s)", resp.Message, resp.HTTPStatus, resp.RequestID)
			} else if resp.Detail != "" {
				output.Error("HTTP %d: %s", resp.HTTPStatus, resp.Detail)
			} else {
				output.Error("HTTP %d: %s (request_id=%s)", resp.HTTPStatus, resp.Message, resp.RequestID)
			}
		})
	},
}

func fakeEvent() models.Event {
	hostname := gofakeit.DomainName()
	return models.Event{
		Timestamp: time.Now().UTC(),
		Version:   1,
		Type:      eventTypes[gofakeit.Number(0, len(eventTypes)-1)],
		Tailnet:   hostname,
		Message:   gofakeit.HackerPhrase(),
		Data: map[string]any{
			"nodeID":   gofakeit.UUID(),
			"hostname": gofakeit.AppName(),
			"ip":       gofakeit.IPv4Address(),
			"actor":    gofakeit.Email(),
		},
	}
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().String("relay-url", "http://localhost:8000", "Relay base URL")
	sendCmd.Flags().StringP("secret", "s", "", "Shared webhook secret")
	sendCmd.Flags().StringP("type", "t", "node.created", "Event type")
	sendCmd.Flags().String("tailnet", "example.com", "Tailnet name")
	sendCmd.Flags().StringP("message", "m", "Test event from hookctl", "Event message")
	sendCmd.Flags().Int("fake", 0, "Send N generated sample events instead of a single explicit one")
	sendCmd.Flags().Int64("age", 0, "Age the signed timestamp by this many seconds")
	sendCmd.Flags().StringP("output", "o", "text", "Output format: text, json, yaml")
}

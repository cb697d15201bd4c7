// Package notify delivers analysis alerts out of band: Slack and Discord
// webhooks and SMTP email, fanned out by a retrying dispatcher.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/AntoineSierzputowski/carmen"
)

// SlackClient posts messages to a Slack incoming webhook.
type SlackClient struct {
	webhookURL string
	channel    string
	httpClient carmen.HTTPClient
}

func NewSlackClient(webhookURL, channel string, httpClient carmen.HTTPClient) *SlackClient {
	return &SlackClient{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: httpClient,
	}
}

func (c *SlackClient) Notify(ctx context.Context, subject, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": c.channel,
		"text":    fmt.Sprintf("*%s*\n%s", subject, message),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/AntoineSierzputowski/carmen"
)

// discordMaxMessageLen is Discord's webhook content limit.
const discordMaxMessageLen = 2000

// DiscordClient posts messages to a Discord webhook.
type DiscordClient struct {
	webhookURL string
	httpClient carmen.HTTPClient
}

func NewDiscordClient(webhookURL string, httpClient carmen.HTTPClient) *DiscordClient {
	return &DiscordClient{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *DiscordClient) Notify(ctx context.Context, subject, message string) error {
	content := fmt.Sprintf("**%s**\n%s", subject, message)
	if len(content) > discordMaxMessageLen {
		content = content[:discordMaxMessageLen-3] + "..."
	}

	payload, err := json.Marshal(map[string]any{
		"content": content,
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

	// Discord returns 204 on success
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

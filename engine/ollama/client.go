// Package ollama implements the reasoning-engine boundary against a local
// Ollama instance over its chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AntoineSierzputowski/carmen"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient carmen.HTTPClient
	options    options
	debug      bool
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   carmen.HTTPClient
	Temperature  float64
	TopP         float64
	Debug        bool
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.ModelID == "" {
		return nil, fmt.Errorf("invalid model id")
	}
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("invalid http client")
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}
	if opts.TopP == 0 {
		opts.TopP = 0.9
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   opts.BaseEndpoint + "/api/chat",
		debug:      opts.Debug,
		options: options{
			Temperature:   opts.Temperature,
			TopP:          opts.TopP,
			RepeatPenalty: 1.05,
			NumCtx:        16384,
		},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponse struct {
	Message wireMessage `json:"message"`
	// other metadata omitted but available
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

const systemPrompt = `You are a plant-care analyst. You receive one plant's sensor reading, the comparison of each metric against the species' ideal conditions, and historical trend context when available. You respond with exactly one JSON object following the output contract in the user message: no extra text, no markdown, no code fences.`

// Generate sends the assembled prompt to the Ollama chat API and returns the
// model's textual output verbatim. Parsing is the normalizer's job, so a body
// that fails to decode is returned raw rather than failing the run.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	slog.Debug("ENGINE: Invoking Ollama", "model", c.model, "prompt_len", len(prompt))

	reqBody := wireRequest{
		Model: c.model,
		Messages: []wireMessage{
			{Role: "system", Content: strings.TrimSpace(systemPrompt)},
			{Role: "user", Content: prompt},
		},
		Stream:  false,
		Options: c.options,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	if c.debug {
		carmen.Dump(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ENGINE: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		slog.Warn("ENGINE: decode failed, returning raw", "err", err, "body", string(body))
		return string(body), nil
	}

	return wr.Message.Content, nil
}

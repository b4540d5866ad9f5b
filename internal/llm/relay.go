package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// ReceiveResultPath is the relay endpoint that returns generated text.
const ReceiveResultPath = "/api/v1/methods/receive_result"

// RelayClient fetches generated text from an intermediary HTTP relay.
// The relay does not read the prompt; it answers with its own text.
type RelayClient struct {
	baseURL string
	client  *http.Client
}

// NewRelayClient creates a client for the relay at baseURL.
func NewRelayClient(baseURL string, client *http.Client) *RelayClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RelayClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Complete implements Completer.
func (c *RelayClient) Complete(ctx context.Context, _ string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ReceiveResultPath, nil)
	if err != nil {
		return "", callError("relay request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", callError("relay: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return "", callError("relay status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		NewText *string `json:"new_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", callError("relay decode: %v", err)
	}
	if payload.NewText == nil {
		return "", callError("relay response has no new_text")
	}
	return *payload.NewText, nil
}

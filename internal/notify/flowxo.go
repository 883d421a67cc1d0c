package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FlowXOClient posts denormalized operation records to FlowXO automation
// webhooks. One URL per flow; empty URLs disable that flow.
type FlowXOClient struct {
	http *http.Client
}

func NewFlowXOClient() *FlowXOClient {
	return &FlowXOClient{
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *FlowXOClient) Post(ctx context.Context, webhookURL string, payload map[string]any) error {
	if webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal flowxo payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building flowxo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("flowxo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("flowxo responded %d", resp.StatusCode)
	}
	return nil
}

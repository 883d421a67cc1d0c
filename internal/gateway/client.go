package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

type Config struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	RequestTimeout time.Duration
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("gateway client credentials are required")
	}
	return nil
}

type client struct {
	http   *http.Client
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New creates a PatchWallet gateway client. The request timeout defaults to
// 100 seconds, matching the gateway's own execution window.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gateway config: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 100 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &client{
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (c *client) ResolveAddress(ctx context.Context, userTelegramID string) (string, error) {
	var resp struct {
		Users []struct {
			AccountAddress string `json:"accountAddress"`
		} `json:"users"`
	}

	body := map[string]any{
		"userIds":      patchUserID(userTelegramID),
		"delegatecall": 0,
	}
	if err := c.post(ctx, "/v1/resolver", body, &resp); err != nil {
		return "", fmt.Errorf("resolve address: %w", err)
	}
	if len(resp.Users) == 0 || resp.Users[0].AccountAddress == "" {
		return "", fmt.Errorf("resolve address: no account for user %s", userTelegramID)
	}
	return resp.Users[0].AccountAddress, nil
}

func (c *client) SubmitTransaction(ctx context.Context, req TxRequest) (*TxResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("submit transaction: %w", err)
	}

	body := map[string]any{
		"userId":       patchUserID(req.UserTelegramID),
		"chain":        req.Chain,
		"to":           req.To,
		"value":        req.Value,
		"data":         req.Data,
		"delegatecall": req.DelegateCall,
		"auth":         token,
	}

	var result TxResult
	start := time.Now()
	if err := c.post(ctx, "/v1/kernel/tx", body, &result); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "gateway transaction submitted",
		"user_telegram_id", req.UserTelegramID,
		"chain", req.Chain,
		"has_tx_hash", result.TxHash != "",
		"has_user_op_hash", result.UserOpHash != "",
		"duration_ms", time.Since(start).Milliseconds())
	return &result, nil
}

func (c *client) PollStatus(ctx context.Context, userOpHash string) (*TxResult, error) {
	var result TxResult
	body := map[string]any{"userOpHash": userOpHash}
	if err := c.post(ctx, "/v1/kernel/txStatus", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// token returns a cached access token, fetching a fresh one when the cached
// token is within a minute of expiry.
func (c *client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/auth", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{StatusCode: resp.StatusCode, Body: truncateBody(raw)}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &tokenResp); err != nil {
		return "", fmt.Errorf("decoding auth response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("auth response contained no access token")
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)

	return c.accessToken, nil
}

func (c *client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Body: truncateBody(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response %s: %w", path, err)
		}
	}
	return nil
}

// patchUserID prefixes the Telegram id the way the gateway namespaces users.
func patchUserID(userTelegramID string) string {
	return "grindery:" + userTelegramID
}

func truncateBody(raw []byte) string {
	const maxLen = 512
	s := string(raw)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

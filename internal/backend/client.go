package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// ActionApprove credits the requested vales to the account.
	ActionApprove = "approve"
	// ActionReject declines the request.
	ActionReject = "reject"

	accountTimeout = 10 * time.Second
	topupTimeout   = 12 * time.Second
)

// Error is a business rejection from the game server (ok=false). Its text
// is the server's own message and is shown to the admin verbatim.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "unknown server error"
	}
	return e.Message
}

// Client talks to the game server's bot API. It is stateless; every call
// carries its own deadline.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL and shared bot API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body any, withKey bool, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set("x-bot-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return data, nil
}

// ListPending returns the full pending top-up queue. A transport failure or
// a non-JSON body is an error, never an empty queue.
func (c *Client) ListPending(ctx context.Context, actor string) ([]TopupRequest, error) {
	body := map[string]string{"actorTelegramUsername": actor}
	data, err := c.postJSON(ctx, "/api/bot/topup/pending", body, true, topupTimeout)
	if err != nil {
		return nil, err
	}

	var resp pendingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal pending response: %w", err)
	}
	if !resp.OK {
		return nil, &Error{Message: resp.Message}
	}

	return resp.Rows, nil
}

// Resolve approves or rejects a pending request. The action is validated
// before any network call.
func (c *Client) Resolve(ctx context.Context, actor, requestID, action, reason string) (*ResolvedRequest, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, fmt.Errorf("invalid resolve action %q", action)
	}

	body := map[string]string{
		"actorTelegramUsername": actor,
		"requestId":             requestID,
		"action":                action,
		"reason":                reason,
	}
	data, err := c.postJSON(ctx, "/api/bot/topup/resolve", body, true, topupTimeout)
	if err != nil {
		return nil, err
	}

	var resp resolveResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal resolve response: %w", err)
	}
	if !resp.OK {
		return nil, &Error{Message: resp.Message}
	}
	if resp.Request == nil {
		resp.Request = &ResolvedRequest{Status: action}
	}

	return resp.Request, nil
}

// LinkAccount binds a game account to a telegram handle. This endpoint is
// unauthenticated on the server side, so no API key header is sent.
func (c *Client) LinkAccount(ctx context.Context, username, tgUsername string) (*AccountResult, error) {
	body := map[string]string{
		"username":         username,
		"telegramUsername": tgUsername,
	}
	return c.accountOp(ctx, "/api/profile/link-telegram", body, false)
}

// ConfirmLinkCode completes account linking with a code issued in the app.
func (c *Client) ConfirmLinkCode(ctx context.Context, code, tgUsername string) (*AccountResult, error) {
	body := map[string]string{
		"code":             code,
		"telegramUsername": tgUsername,
	}
	return c.accountOp(ctx, "/api/profile/link-code/confirm", body, true)
}

// ResetPassword sets a new password for the account linked to tgUsername.
func (c *Client) ResetPassword(ctx context.Context, tgUsername, newPassword string) (*AccountResult, error) {
	body := map[string]string{
		"telegramUsername": tgUsername,
		"newPassword":      newPassword,
	}
	return c.accountOp(ctx, "/api/profile/reset-self-from-telegram", body, true)
}

// SetBlocked bans or unbans a game account.
func (c *Client) SetBlocked(ctx context.Context, username string, blocked bool, actor string) (*AccountResult, error) {
	body := map[string]any{
		"username":              username,
		"blocked":               blocked,
		"actorTelegramUsername": actor,
	}
	return c.accountOp(ctx, "/api/profile/admin/block", body, true)
}

func (c *Client) accountOp(ctx context.Context, path string, body any, withKey bool) (*AccountResult, error) {
	data, err := c.postJSON(ctx, path, body, withKey, accountTimeout)
	if err != nil {
		return nil, err
	}

	var res AccountResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshal account response: %w", err)
	}

	return &res, nil
}

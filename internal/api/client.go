// Package api implements the REST collaborators: message history, context
// queries, the AI-ask service and authentication.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/signaldesk/sigdesk-go/internal/auth"
	"github.com/signaldesk/sigdesk-go/internal/model"
)

// FetchError is a failed REST call. It is surfaced to the caller as-is;
// there is no automatic retry and store state is left untouched.
type FetchError struct {
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// Config holds API client settings.
type Config struct {
	BaseURL        string // chat backend
	AIBaseURL      string // AI service
	RequestTimeout time.Duration
	ResourceCeil   time.Duration
}

// Client calls the signalDesk REST endpoints.
type Client struct {
	cfg    Config
	tokens auth.TokenStore
	http   *http.Client
}

// New creates an API client. tokens seeds the Authorization header and is
// cleared when the backend reports the session is no longer valid.
func New(cfg Config, tokens auth.TokenStore) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ResourceCeil == 0 {
		cfg.ResourceCeil = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		http:   &http.Client{Timeout: cfg.ResourceCeil},
	}
}

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthSession, error) {
	body := map[string]string{"email": email, "password": password}

	var session model.AuthSession
	if err := c.do(ctx, http.MethodPost, c.cfg.BaseURL, "/api/auth/login", body, &session); err != nil {
		return nil, err
	}
	if err := c.tokens.SetToken(session.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &session, nil
}

// Messages fetches a page of channel history, oldest first.
func (c *Client) Messages(ctx context.Context, channelID string, page, limit int) ([]model.Message, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	endpoint := fmt.Sprintf("/api/channels/%s/messages?page=%d&limit=%d",
		url.PathEscape(channelID), page, limit)

	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, c.cfg.BaseURL, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Contexts fetches prior classified signals for a channel and category.
func (c *Client) Contexts(ctx context.Context, channelID, category string, limit int) ([]model.ContextSignal, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if channelID != "" {
		q.Set("channelId", channelID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := "/api/context"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var resp struct {
		Contexts []model.ContextSignal `json:"contexts"`
	}
	if err := c.do(ctx, http.MethodGet, c.cfg.BaseURL, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contexts, nil
}

// Ask sends a slash-command query to the AI service.
func (c *Client) Ask(ctx context.Context, req model.AIAskRequest) (*model.AIAskResponse, error) {
	var resp model.AIAskResponse
	if err := c.do(ctx, http.MethodPost, c.cfg.AIBaseURL, "/ai/ask", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, baseURL, endpoint string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+endpoint, reader)
	if err != nil {
		return &FetchError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The session is dead; drop the token so the caller re-authenticates.
		c.tokens.SetToken("")
		return &FetchError{Status: resp.StatusCode, Message: "unauthorized"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{Status: resp.StatusCode, Message: serverMessage(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &FetchError{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

func serverMessage(data []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil && e.Message != "" {
		return e.Message
	}
	return "request failed"
}

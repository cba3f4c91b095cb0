package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TokenSource hands out an access token that is valid right now
type TokenSource interface {
	EnsureValidToken(ctx context.Context) (string, error)
}

// refresher is implemented by token sources that can be forced to refresh, used to recover
// once from a 401 on a token the client believed was still valid
type refresher interface {
	Refresh(ctx context.Context) error
}

// Package is a subscription plan shown on the pricing page
type Package struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Interval string `json:"interval"`
}

// MoodEntry is one tracked mood
type MoodEntry struct {
	ID        string    `json:"id,omitempty"`
	Mood      string    `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Client calls the remote REST API with the session's bearer token
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, tokens TokenSource, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) ListPackages(ctx context.Context) ([]Package, error) {
	var packages []Package
	if err := c.get(ctx, "/packages", &packages); err != nil {
		return nil, fmt.Errorf("apiclient.ListPackages: %w", err)
	}
	return packages, nil
}

func (c *Client) TrackMood(ctx context.Context, entry MoodEntry) (*MoodEntry, error) {
	var created MoodEntry
	if err := c.post(ctx, "/moods", entry, &created); err != nil {
		return nil, fmt.Errorf("apiclient.TrackMood: %w", err)
	}
	return &created, nil
}

// ListMoods returns the most recent mood entries, newest first
func (c *Client) ListMoods(ctx context.Context, limit int) ([]MoodEntry, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/moods"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var moods []MoodEntry
	if err := c.get(ctx, path, &moods); err != nil {
		return nil, fmt.Errorf("apiclient.ListMoods: %w", err)
	}
	return moods, nil
}

// Forward sends an arbitrary request to the API and returns the raw response. Error
// statuses are not converted to HTTPError so the caller can relay them as they are.
func (c *Client) Forward(ctx context.Context, method, pathAndQuery string, header http.Header, body []byte) (*http.Response, error) {
	resp, err := c.send(ctx, method, pathAndQuery, header, body)
	if err != nil {
		return nil, fmt.Errorf("apiclient.Forward: %w", err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var data []byte
	header := http.Header{}
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		header.Set("Content-Type", "application/json")
	}
	header.Set("Accept", "application/json")

	resp, err := c.send(ctx, method, path, header, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// send attaches a valid bearer token. A 401 on a token that looked valid triggers one
// forced refresh and a single retry.
func (c *Client) send(ctx context.Context, method, path string, header http.Header, body []byte) (*http.Response, error) {
	token, err := c.tokens.EnsureValidToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}

	resp, err := c.sendWithToken(ctx, method, path, header, body, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	r, ok := c.tokens.(refresher)
	if !ok {
		return resp, nil
	}
	if err := r.Refresh(ctx); err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("Refresh after 401 failed")
		return resp, nil
	}
	token, err = c.tokens.EnsureValidToken(ctx)
	if err != nil {
		return resp, nil
	}
	resp.Body.Close()
	return c.sendWithToken(ctx, method, path, header, body, token)
}

func (c *Client) sendWithToken(ctx context.Context, method, path string, header http.Header, body []byte, token string) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return resp, nil
}

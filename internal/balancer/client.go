package balancer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client lets a game server report itself to the balancer.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a client for the balancer at baseURL.
func NewClient(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[BALANCER] ", log.LstdFlags)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

// Connect registers the server.
func (c *Client) Connect(ctx context.Context, info ServerInfo) error {
	return c.post(ctx, "/connect", info)
}

// Update sends a fresh load report.
func (c *Client) Update(ctx context.Context, info ServerInfo) error {
	return c.post(ctx, "/update", info)
}

// Disconnect removes the server from the pool.
func (c *Client) Disconnect(ctx context.Context, url string) error {
	return c.post(ctx, "/disconnect", DisconnectRequest{URL: url})
}

// JoinGame asks which server a new player should use.
func (c *Client) JoinGame(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/join-game", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("join game: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return "", err
	}
	var out JoinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode join response: %w", err)
	}
	return out.URL, nil
}

// Report connects, then sends source() every interval until ctx is done,
// then disconnects.
func (c *Client) Report(ctx context.Context, interval time.Duration, source func() ServerInfo) {
	info := source()
	if err := c.Connect(ctx, info); err != nil {
		c.logger.Printf("Connect failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := c.Disconnect(shutdown, info.URL); err != nil {
				c.logger.Printf("Disconnect failed: %v", err)
			}
			cancel()
			return
		case <-ticker.C:
			info = source()
			err := c.Update(ctx, info)
			if errors.Is(err, ErrUnknownServer) {
				err = c.Connect(ctx, info)
			}
			if err != nil && ctx.Err() == nil {
				c.logger.Printf("Update failed: %v", err)
			}
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	return statusError(resp)
}

// statusError maps balancer status codes back to the package errors.
func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return ErrDuplicateServer
	case http.StatusNotFound:
		return ErrUnknownServer
	case http.StatusServiceUnavailable:
		return ErrNoServers
	}
	return fmt.Errorf("balancer returned %s", resp.Status)
}

// Package genai calls the external reply generation service.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/recovery"
)

// Config holds the generation service settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client generates reply text over HTTP. Every call carries a timeout,
// and misconfiguration or an empty completion raises a validation error
// instead of letting an empty reply reach the publisher.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a generation client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("genai: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Generate produces a reply for the given comment text.
func (c *Client) Generate(ctx context.Context, commentText, tone string) (string, error) {
	if strings.TrimSpace(commentText) == "" {
		return "", fmt.Errorf("genai: comment text is required field")
	}

	body, err := json.Marshal(map[string]string{
		"model":   c.cfg.Model,
		"comment": commentText,
		"tone":    tone,
	})
	if err != nil {
		return "", fmt.Errorf("encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/replies", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &recovery.StatusError{
			Code:   resp.StatusCode,
			Header: resp.Header,
			Body:   string(bytes.TrimSpace(raw)),
		}
	}

	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if strings.TrimSpace(out.Reply) == "" {
		return "", fmt.Errorf("genai: service returned an empty reply")
	}
	return out.Reply, nil
}

// Package rest talks to the social platform's comment API. It implements
// the engine's CommentSource and ReplyPublisher over plain JSON endpoints.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/recovery"
)

// Config holds the platform API settings.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client is an HTTP adapter for the platform API. Non-2xx responses are
// surfaced as *recovery.StatusError so the classifier can use the status
// code and Retry-After header.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a platform client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("platform: base URL is required")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("platform: access token is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type apiPost struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

type apiComment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ListRecentPosts returns the account's most recent posts.
func (c *Client) ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	var data struct {
		Posts []apiPost `json:"posts"`
	}
	url := fmt.Sprintf("%s/me/posts?limit=%d", c.cfg.BaseURL, limit)
	if err := c.get(ctx, url, &data); err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(data.Posts))
	for _, p := range data.Posts {
		posts = append(posts, domain.Post{
			ID:        p.ID,
			AuthorID:  p.AuthorID,
			Caption:   p.Caption,
			CreatedAt: p.CreatedAt,
		})
	}
	return posts, nil
}

// ListComments returns the comments under a post.
func (c *Client) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	var data struct {
		Comments []apiComment `json:"comments"`
	}
	url := fmt.Sprintf("%s/posts/%s/comments", c.cfg.BaseURL, postID)
	if err := c.get(ctx, url, &data); err != nil {
		return nil, err
	}

	comments := make([]domain.Comment, 0, len(data.Comments))
	for _, cm := range data.Comments {
		comments = append(comments, domain.Comment{
			ID:        cm.ID,
			PostID:    cm.PostID,
			AuthorID:  cm.AuthorID,
			Text:      cm.Text,
			CreatedAt: cm.CreatedAt,
		})
	}
	return comments, nil
}

// Publish posts a reply under a comment.
func (c *Client) Publish(ctx context.Context, postID, commentID, text string) error {
	body, err := json.Marshal(map[string]string{
		"parent_id": commentID,
		"text":      text,
	})
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	url := fmt.Sprintf("%s/posts/%s/comments", c.cfg.BaseURL, postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &recovery.StatusError{
		Code:   resp.StatusCode,
		Header: resp.Header,
		Body:   string(bytes.TrimSpace(body)),
	}
}

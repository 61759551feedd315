package domain

import "time"

// Post represents a post on the monitored account's feed.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment represents a comment left on a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Package source defines the boundary for social post acquisition.
// Concrete sources are variants behind the Source interface, selected by
// configuration; the pipeline never depends on a particular platform.
package source

import (
	"context"
	"time"
)

// Post is a single social media post with its upstream sentiment score.
// The sentiment is consumed as an opaque signal; it is never recomputed here.
type Post struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Platform  string    `json:"platform"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	PostedAt  time.Time `json:"posted_at"`
	Likes     int       `json:"likes"`
	Shares    int       `json:"shares"`
	Replies   int       `json:"replies"`
	Sentiment float64   `json:"sentiment"`
}

// Source extracts posts from a platform, most recent first.
type Source interface {
	Extract(ctx context.Context, limit int) ([]Post, error)
}

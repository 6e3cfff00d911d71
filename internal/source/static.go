package source

import "context"

// Static serves a fixed slice of posts. Suitable for dev and tests, and as
// the sink for posts pushed in over the API.
type Static struct {
	posts []Post
}

// NewStatic creates a Static source over the given posts.
func NewStatic(posts []Post) *Static {
	return &Static{posts: posts}
}

// Extract returns up to limit posts. A limit <= 0 returns everything.
func (s *Static) Extract(_ context.Context, limit int) ([]Post, error) {
	n := len(s.posts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Post, n)
	copy(out, s.posts[:n])
	return out, nil
}

package feature

import (
	"strings"
	"time"

	"github.com/procop07/mood-sentinel/internal/source"
)

// Engagement weights per interaction type.
const (
	likeWeight  = 1.0
	shareWeight = 2.0
	replyWeight = 1.5
)

// DefaultCrisisTerms returns the built-in crisis vocabulary. Deployments
// extend it through configuration.
func DefaultCrisisTerms() []string {
	return []string{
		"hopeless",
		"worthless",
		"give up",
		"giving up",
		"can't go on",
		"end it all",
		"self harm",
		"self-harm",
		"no way out",
	}
}

// Extractor derives a Snapshot from a window of posts for one subject.
type Extractor struct {
	crisisTerms []string
}

// NewExtractor creates an Extractor scanning for the given crisis terms.
// Terms are matched case-insensitively as substrings of post content.
func NewExtractor(crisisTerms []string) *Extractor {
	terms := make([]string, 0, len(crisisTerms))
	for _, t := range crisisTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &Extractor{crisisTerms: terms}
}

// Extract builds a Snapshot for subjectID over posts. baselineVolume is the
// historical average post count for the same window length, used downstream
// for spike detection.
func (e *Extractor) Extract(subjectID string, posts []source.Post, baselineVolume float64, now time.Time) *Snapshot {
	snap := &Snapshot{
		SubjectID:     subjectID,
		ObservedAt:    now,
		PostVolume:    len(posts),
		AvgPostVolume: baselineVolume,
	}
	if len(posts) == 0 {
		return snap
	}

	var sentimentSum, engagementSum float64
	seen := make(map[string]bool)

	for i := range posts {
		p := &posts[i]
		sentimentSum += p.Sentiment
		engagementSum += e.engagement(p, now)

		content := strings.ToLower(p.Content)
		for _, term := range e.crisisTerms {
			if !seen[term] && strings.Contains(content, term) {
				seen[term] = true
				snap.CrisisKeywords = append(snap.CrisisKeywords, term)
			}
		}
	}

	snap.AvgSentiment = sentimentSum / float64(len(posts))
	snap.EngagementScore = engagementSum / float64(len(posts))
	return snap
}

// engagement computes a weighted interaction score with time decay, so older
// posts contribute less than fresh ones.
func (e *Extractor) engagement(p *source.Post, now time.Time) float64 {
	raw := float64(p.Likes)*likeWeight + float64(p.Shares)*shareWeight + float64(p.Replies)*replyWeight

	hoursOld := now.Sub(p.PostedAt).Hours()
	if hoursOld < 0 {
		hoursOld = 0
	}
	decay := 1.0 / (1.0 + hoursOld*0.1)
	if decay < 0.1 {
		decay = 0.1
	}

	return raw * decay
}

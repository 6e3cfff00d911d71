// Package feature defines the scored signal snapshot consumed by the
// alerting pipeline and the extractor that derives it from posts.
package feature

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Snapshot is an immutable window of scored signals for one subject.
// The pipeline never mutates it.
type Snapshot struct {
	SubjectID       string    `json:"subject_id"`
	ObservedAt      time.Time `json:"observed_at"`
	AvgSentiment    float64   `json:"avg_sentiment"`
	EngagementScore float64   `json:"engagement_score"`
	PostVolume      int       `json:"post_volume"`
	AvgPostVolume   float64   `json:"avg_post_volume"`
	CrisisKeywords  []string  `json:"crisis_keywords,omitempty"`
}

// Validate reports whether the snapshot is well-formed enough to evaluate.
func (s *Snapshot) Validate() error {
	var errs []error

	if s.SubjectID == "" {
		errs = append(errs, errors.New("subject_id is required"))
	}
	if math.IsNaN(s.AvgSentiment) || math.IsInf(s.AvgSentiment, 0) {
		errs = append(errs, fmt.Errorf("avg_sentiment %v is not a finite number", s.AvgSentiment))
	}
	if s.AvgSentiment < -1 || s.AvgSentiment > 1 {
		errs = append(errs, fmt.Errorf("avg_sentiment %v out of range [-1, 1]", s.AvgSentiment))
	}
	if math.IsNaN(s.EngagementScore) || math.IsInf(s.EngagementScore, 0) {
		errs = append(errs, fmt.Errorf("engagement_score %v is not a finite number", s.EngagementScore))
	}
	if s.PostVolume < 0 {
		errs = append(errs, fmt.Errorf("post_volume %d is negative", s.PostVolume))
	}
	if s.AvgPostVolume < 0 || math.IsNaN(s.AvgPostVolume) || math.IsInf(s.AvgPostVolume, 0) {
		errs = append(errs, fmt.Errorf("avg_post_volume %v is invalid", s.AvgPostVolume))
	}

	return errors.Join(errs...)
}

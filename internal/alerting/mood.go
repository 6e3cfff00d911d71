package alerting

import (
	"errors"
	"fmt"
)

// MoodBand classifies a single mood score. It shares the severity vocabulary
// with the multi-signal rules but is independent of them.
type MoodBand string

const (
	BandCritical MoodBand = "CRITICAL"
	BandWarning  MoodBand = "WARNING"
	BandNeutral  MoodBand = "NEUTRAL"
	BandPositive MoodBand = "POSITIVE"
)

// MoodBands holds classification cut points over a [0, 1] mood score.
type MoodBands struct {
	Critical float64 // at or below: CRITICAL
	Warning  float64 // at or below: WARNING
	Recovery float64 // at or above: POSITIVE
}

// DefaultMoodBands returns the stock band thresholds.
func DefaultMoodBands() MoodBands {
	return MoodBands{Critical: 0.2, Warning: 0.4, Recovery: 0.6}
}

// Validate checks the bands are ordered and inside [0, 1].
func (b MoodBands) Validate() error {
	var errs []error

	if b.Critical < 0 || b.Critical > 1 {
		errs = append(errs, fmt.Errorf("critical threshold %v out of range [0, 1]", b.Critical))
	}
	if b.Recovery < 0 || b.Recovery > 1 {
		errs = append(errs, fmt.Errorf("recovery threshold %v out of range [0, 1]", b.Recovery))
	}
	if b.Critical >= b.Warning || b.Warning >= b.Recovery {
		errs = append(errs, fmt.Errorf("thresholds must be ordered critical < warning < recovery, got %v/%v/%v",
			b.Critical, b.Warning, b.Recovery))
	}

	return errors.Join(errs...)
}

// MoodEvaluation is the outcome of classifying one mood score.
type MoodEvaluation struct {
	Band            MoodBand `json:"band"`
	ActionRequired  bool     `json:"action_required"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations,omitempty"`
}

var (
	criticalMoodRecommendations = []string{
		"Consider reaching out to a mental health professional",
		"Contact a trusted friend or family member",
		"Use crisis helpline if feeling overwhelmed",
		"Practice grounding techniques (5-4-3-2-1 method)",
		"Ensure you're in a safe environment",
	}
	warningMoodRecommendations = []string{
		"Take a short break from current activities",
		"Practice deep breathing or meditation",
		"Go for a brief walk or light exercise",
		"Listen to calming music",
		"Consider talking to someone you trust",
	}
	positiveMoodRecommendations = []string{
		"Great job maintaining positive mood!",
		"Consider sharing your positive energy with others",
		"Take note of what's contributing to your good mood",
		"This might be a good time for creative activities",
	}
)

// ClassifyMood maps a mood score in [0, 1] to a band with its fixed
// recommendation list.
func (b MoodBands) ClassifyMood(score float64) MoodEvaluation {
	switch {
	case score <= b.Critical:
		return MoodEvaluation{
			Band:            BandCritical,
			ActionRequired:  true,
			Message:         fmt.Sprintf("Critical mood detected (score: %.2f)", score),
			Recommendations: criticalMoodRecommendations,
		}
	case score <= b.Warning:
		return MoodEvaluation{
			Band:            BandWarning,
			ActionRequired:  true,
			Message:         fmt.Sprintf("Low mood detected (score: %.2f)", score),
			Recommendations: warningMoodRecommendations,
		}
	case score >= b.Recovery:
		return MoodEvaluation{
			Band:            BandPositive,
			Message:         fmt.Sprintf("Positive mood detected (score: %.2f)", score),
			Recommendations: positiveMoodRecommendations,
		}
	default:
		return MoodEvaluation{
			Band:    BandNeutral,
			Message: fmt.Sprintf("Neutral mood (score: %.2f)", score),
		}
	}
}

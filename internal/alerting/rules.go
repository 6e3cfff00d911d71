package alerting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/procop07/mood-sentinel/internal/feature"
)

// Thresholds control when the evaluation rules fire.
type Thresholds struct {
	Sentiment   float64 // candidate below this avg sentiment, default -0.5
	Engagement  float64 // candidate below this engagement score, default 0.2
	VolumeSpike float64 // candidate above baseline * this multiplier, default 2.0
}

// DefaultThresholds returns the stock rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Sentiment:   -0.5,
		Engagement:  0.2,
		VolumeSpike: 2.0,
	}
}

// Validate checks thresholds for sane ranges. Out-of-range values are fatal
// at startup, never retried.
func (t Thresholds) Validate() error {
	var errs []error

	if t.Sentiment < -1 || t.Sentiment > 1 {
		errs = append(errs, fmt.Errorf("sentiment threshold %v out of range [-1, 1]", t.Sentiment))
	}
	if t.Engagement < 0 {
		errs = append(errs, fmt.Errorf("engagement threshold %v must be >= 0", t.Engagement))
	}
	if t.VolumeSpike <= 1 {
		errs = append(errs, fmt.Errorf("volume spike threshold %v must be > 1", t.VolumeSpike))
	}

	return errors.Join(errs...)
}

// Sentiment below -0.8 escalates NEGATIVE_SENTIMENT from MEDIUM to HIGH.
const severeSentiment = -0.8

// Fixed recommended-action lists per rule type.
var (
	negativeSentimentActions = []string{
		"Monitor user closely for signs of distress",
		"Consider reaching out with support resources",
		"Track sentiment trends over time",
	}
	lowEngagementActions = []string{
		"Monitor for social withdrawal patterns",
		"Check if user needs support or encouragement",
	}
	activitySpikeActions = []string{
		"Review recent posts for concerning content",
		"Check if spike indicates manic episode or crisis",
	}
	crisisKeywordActions = []string{
		"IMMEDIATE attention required",
		"Contact crisis intervention team",
		"Reach out to user directly",
		"Monitor continuously",
	}
)

// Evaluate converts a snapshot into zero or more candidate alerts. It is a
// pure function: all rules are independent and evaluated every cycle, and no
// candidate is ever discarded here; suppression belongs to the gate.
func Evaluate(snap *feature.Snapshot, th Thresholds) []CandidateAlert {
	var candidates []CandidateAlert

	if snap.AvgSentiment < th.Sentiment {
		sev := SeverityMedium
		if snap.AvgSentiment < severeSentiment {
			sev = SeverityHigh
		}
		candidates = append(candidates, CandidateAlert{
			SubjectID: snap.SubjectID,
			Type:      TypeNegativeSentiment,
			Severity:  sev,
			Summary:   fmt.Sprintf("Negative sentiment detected: %.2f", snap.AvgSentiment),
			Actions:   negativeSentimentActions,
		})
	}

	if snap.EngagementScore < th.Engagement {
		candidates = append(candidates, CandidateAlert{
			SubjectID: snap.SubjectID,
			Type:      TypeLowEngagement,
			Severity:  SeverityLow,
			Summary:   fmt.Sprintf("Low engagement detected: %.2f", snap.EngagementScore),
			Actions:   lowEngagementActions,
		})
	}

	if float64(snap.PostVolume) > snap.AvgPostVolume*th.VolumeSpike {
		candidates = append(candidates, CandidateAlert{
			SubjectID: snap.SubjectID,
			Type:      TypeActivitySpike,
			Severity:  SeverityMedium,
			Summary:   fmt.Sprintf("Unusual activity spike: %d posts (avg: %.1f)", snap.PostVolume, snap.AvgPostVolume),
			Actions:   activitySpikeActions,
		})
	}

	if len(snap.CrisisKeywords) > 0 {
		candidates = append(candidates, CandidateAlert{
			SubjectID: snap.SubjectID,
			Type:      TypeCrisisKeywords,
			Severity:  SeverityCritical,
			Summary:   fmt.Sprintf("Crisis keywords detected: %s", strings.Join(snap.CrisisKeywords, ", ")),
			Actions:   crisisKeywordActions,
		})
	}

	return candidates
}

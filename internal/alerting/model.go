package alerting

import "time"

// Severity orders alerts by urgency.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the ordering weight of a severity, CRITICAL highest.
// Unknown severities rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// AlertType identifies which rule produced an alert.
type AlertType string

const (
	TypeNegativeSentiment AlertType = "NEGATIVE_SENTIMENT"
	TypeLowEngagement     AlertType = "LOW_ENGAGEMENT"
	TypeActivitySpike     AlertType = "ACTIVITY_SPIKE"
	TypeCrisisKeywords    AlertType = "CRISIS_KEYWORDS"
)

// Status tracks where an alert is in its delivery lifecycle.
type Status string

const (
	// StatusPending means persisted, not yet delivered.
	StatusPending Status = "PENDING"

	// StatusDelivered means confirmed sent to a channel.
	StatusDelivered Status = "DELIVERED"

	// StatusFailed means delivery gave up (permanent error or retry budget
	// exhausted). Only an explicit Retry re-arms a failed alert.
	StatusFailed Status = "FAILED"
)

// CandidateAlert is an alert proposed by rule evaluation. It has no identity
// until the gate admits it and the store persists it.
type CandidateAlert struct {
	SubjectID string    `json:"subject_id"`
	Type      AlertType `json:"alert_type"`
	Severity  Severity  `json:"severity"`
	Summary   string    `json:"summary"`
	Actions   []string  `json:"recommended_actions,omitempty"`
}

// Alert is a persisted alert owned by the store. Identity is assigned at
// persistence time.
type Alert struct {
	ID               string    `json:"id"`
	SubjectID        string    `json:"subject_id"`
	Type             AlertType `json:"alert_type"`
	Severity         Severity  `json:"severity"`
	Summary          string    `json:"summary"`
	Actions          []string  `json:"recommended_actions,omitempty"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	DeliveredAt      time.Time `json:"delivered_at,omitempty"`
	DeliveryChannel  string    `json:"delivery_channel,omitempty"`
	DeliveryAttempts int       `json:"delivery_attempts,omitempty"`
	FailReason       string    `json:"fail_reason,omitempty"`
}

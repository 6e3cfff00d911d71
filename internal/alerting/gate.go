package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// DenyReason explains a gate suppression.
type DenyReason string

const (
	DenyCooldown DenyReason = "cooldown"
	DenyDailyCap DenyReason = "daily_cap"
)

// Decision is the outcome of admitting one candidate.
type Decision struct {
	Allow  bool       `json:"allow"`
	Reason DenyReason `json:"reason,omitempty"`
}

// GatePolicy holds the suppression knobs.
type GatePolicy struct {
	Cooldown        time.Duration // min interval between similar non-critical alerts
	MaxAlertsPerDay int           // non-critical admissions per subject per UTC day
}

// DefaultGatePolicy returns the stock policy: 2h cooldown, 5 alerts per day.
func DefaultGatePolicy() GatePolicy {
	return GatePolicy{
		Cooldown:        2 * time.Hour,
		MaxAlertsPerDay: 5,
	}
}

// Validate checks the policy for sane ranges.
func (p GatePolicy) Validate() error {
	var errs []error

	if p.Cooldown <= 0 || p.Cooldown > 7*24*time.Hour {
		errs = append(errs, fmt.Errorf("cooldown %v out of range (0, 168h]", p.Cooldown))
	}
	if p.MaxAlertsPerDay <= 0 || p.MaxAlertsPerDay > 100 {
		errs = append(errs, fmt.Errorf("max alerts per day %d out of range [1, 100]", p.MaxAlertsPerDay))
	}

	return errors.Join(errs...)
}

// Gate applies cooldown and daily-cap policy to candidate alerts. Decisions
// are deterministic given identical history; callers must serialize admission
// per subject so concurrent cycles do not race a stale history snapshot.
type Gate struct {
	store  Store
	policy GatePolicy
	logger log.Logger
}

// NewGate creates a Gate over the given store and policy.
func NewGate(store Store, policy GatePolicy, logger log.Logger) *Gate {
	if logger == nil {
		logger = log.Nop()
	}
	return &Gate{store: store, policy: policy, logger: logger}
}

// Admit decides whether a candidate may be persisted. CRITICAL candidates are
// always allowed; they bypass both cooldown and the daily cap.
func (g *Gate) Admit(ctx context.Context, cand *CandidateAlert, now time.Time) (Decision, error) {
	if cand.Severity == SeverityCritical {
		return Decision{Allow: true}, nil
	}

	since := now.Add(-g.policy.Cooldown)
	similar, err := g.store.CountSimilarSince(ctx, cand.SubjectID, cand.Type, cand.Severity, since)
	if err != nil {
		return Decision{}, fmt.Errorf("cooldown query: %w", err)
	}
	if similar > 0 {
		g.logger.Info(ctx, "alert suppressed by cooldown",
			"subject_id", cand.SubjectID,
			"alert_type", string(cand.Type),
			"severity", string(cand.Severity),
		)
		return Decision{Reason: DenyCooldown}, nil
	}

	today, err := g.store.CountForSubjectOn(ctx, cand.SubjectID, now)
	if err != nil {
		return Decision{}, fmt.Errorf("daily cap query: %w", err)
	}
	if today >= g.policy.MaxAlertsPerDay {
		g.logger.Warn(ctx, "daily alert limit reached",
			"subject_id", cand.SubjectID,
			"count", today,
			"limit", g.policy.MaxAlertsPerDay,
		)
		return Decision{Reason: DenyDailyCap}, nil
	}

	return Decision{Allow: true}, nil
}

package alerting

import (
	"context"
	"time"
)

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	SubjectID string
	Type      AlertType
	Status    Status
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// Store is the persistence interface for alerts and their delivery state
// machine. Implementations must provide row-level atomicity: Persist commits
// fully or not at all, and the Mark* batch updates re-check the current
// status in their predicate so repeated calls are idempotent.
type Store interface {
	// Persist inserts an admitted alert with status PENDING, assigning its
	// identity. It returns the assigned ID.
	Persist(ctx context.Context, a *Alert) (string, error)

	// Get retrieves a single alert by ID.
	Get(ctx context.Context, id string) (*Alert, bool, error)

	// ListUndelivered returns PENDING alerts created at or after since,
	// ordered by severity (CRITICAL > HIGH > MEDIUM > LOW) then created_at
	// ascending.
	ListUndelivered(ctx context.Context, since time.Time) ([]*Alert, error)

	// MarkDelivered transitions PENDING alerts in ids to DELIVERED in one
	// atomic batch and returns the number of rows actually transitioned.
	// Rows not PENDING at update time are left untouched and not counted.
	MarkDelivered(ctx context.Context, ids []string, channel string, sentAt time.Time) (int64, error)

	// MarkFailed transitions PENDING alerts in ids to FAILED.
	MarkFailed(ctx context.Context, ids []string, reason string) (int64, error)

	// Retry re-arms FAILED alerts in ids back to PENDING, clearing the fail
	// reason and resetting the attempt counter.
	Retry(ctx context.Context, ids []string) (int64, error)

	// IncrementAttempts bumps the persisted delivery attempt counter for ids,
	// so a restart does not grant a fresh retry budget.
	IncrementAttempts(ctx context.Context, ids []string) error

	// List returns alerts matching the filter, newest first.
	List(ctx context.Context, f ListFilter) ([]*Alert, error)

	// CountSimilarSince counts alerts for (subject, type, severity) created
	// at or after since. Used for cooldown gating.
	CountSimilarSince(ctx context.Context, subjectID string, t AlertType, sev Severity, since time.Time) (int, error)

	// CountForSubjectOn counts alerts of any type for a subject created on
	// the UTC calendar day containing day. Used for daily-cap gating.
	CountForSubjectOn(ctx context.Context, subjectID string, day time.Time) (int, error)
}

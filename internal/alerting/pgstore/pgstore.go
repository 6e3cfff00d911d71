// Package pgstore provides a PostgreSQL implementation of alerting.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/procop07/mood-sentinel/internal/alerting"
)

var tracer = otel.Tracer("github.com/procop07/mood-sentinel/internal/alerting/pgstore")

//go:embed schema.sql
var schema string

const alertColumns = `id, subject_id, alert_type, severity, summary, actions,
	status, created_at, delivered_at, delivery_channel, delivery_attempts, fail_reason`

// severityRank orders rows CRITICAL > HIGH > MEDIUM > LOW in SQL.
const severityRank = `CASE severity
	WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END`

// Store persists alerts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store over the given pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func spanErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Persist inserts the alert with a fresh ULID and status PENDING.
func (s *Store) Persist(ctx context.Context, a *alerting.Alert) (string, error) {
	ctx, span := startSpan(ctx, "pgstore.Persist", "INSERT")
	defer span.End()

	actionsJSON, err := json.Marshal(a.Actions)
	if err != nil {
		spanErr(span, err)
		return "", fmt.Errorf("marshal actions: %w", err)
	}

	id := ulid.Make().String()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO alerts (id, subject_id, alert_type, severity, summary, actions, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, a.SubjectID, string(a.Type), string(a.Severity), a.Summary, actionsJSON,
		string(alerting.StatusPending), createdAt,
	)
	if err != nil {
		spanErr(span, err)
		return "", fmt.Errorf("insert alert: %w", err)
	}
	return id, nil
}

// Get retrieves a single alert by ID.
func (s *Store) Get(ctx context.Context, id string) (*alerting.Alert, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlert(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		spanErr(span, err)
		return nil, false, err
	}
	return a, true, nil
}

// ListUndelivered returns PENDING alerts created at or after since, ordered
// by severity then created_at ascending.
func (s *Store) ListUndelivered(ctx context.Context, since time.Time) ([]*alerting.Alert, error) {
	ctx, span := startSpan(ctx, "pgstore.ListUndelivered", "SELECT")
	defer span.End()

	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE status = $1 AND created_at >= $2
		ORDER BY ` + severityRank + ` DESC, created_at ASC`
	out, err := s.queryAlerts(ctx, query, string(alerting.StatusPending), since)
	if err != nil {
		spanErr(span, err)
	}
	return out, err
}

// MarkDelivered transitions PENDING alerts to DELIVERED in one atomic batch
// update. The predicate re-checks status, so repeating the call affects 0
// rows.
func (s *Store) MarkDelivered(ctx context.Context, ids []string, channel string, sentAt time.Time) (int64, error) {
	ctx, span := startSpan(ctx, "pgstore.MarkDelivered", "UPDATE")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = $1, delivered_at = $2, delivery_channel = $3
		WHERE status = $4 AND id = ANY($5)`,
		string(alerting.StatusDelivered), sentAt, channel, string(alerting.StatusPending), ids,
	)
	if err != nil {
		spanErr(span, err)
		return 0, fmt.Errorf("mark delivered: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkFailed transitions PENDING alerts to FAILED.
func (s *Store) MarkFailed(ctx context.Context, ids []string, reason string) (int64, error) {
	ctx, span := startSpan(ctx, "pgstore.MarkFailed", "UPDATE")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = $1, fail_reason = $2
		WHERE status = $3 AND id = ANY($4)`,
		string(alerting.StatusFailed), reason, string(alerting.StatusPending), ids,
	)
	if err != nil {
		spanErr(span, err)
		return 0, fmt.Errorf("mark failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Retry re-arms FAILED alerts back to PENDING.
func (s *Store) Retry(ctx context.Context, ids []string) (int64, error) {
	ctx, span := startSpan(ctx, "pgstore.Retry", "UPDATE")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE alerts SET status = $1, fail_reason = '', delivery_attempts = 0
		WHERE status = $2 AND id = ANY($3)`,
		string(alerting.StatusPending), string(alerting.StatusFailed), ids,
	)
	if err != nil {
		spanErr(span, err)
		return 0, fmt.Errorf("retry: %w", err)
	}
	return tag.RowsAffected(), nil
}

// IncrementAttempts bumps the persisted delivery attempt counter.
func (s *Store) IncrementAttempts(ctx context.Context, ids []string) error {
	ctx, span := startSpan(ctx, "pgstore.IncrementAttempts", "UPDATE")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx,
		`UPDATE alerts SET delivery_attempts = delivery_attempts + 1 WHERE id = ANY($1)`, ids)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// List returns alerts matching the filter, newest first.
func (s *Store) List(ctx context.Context, f alerting.ListFilter) ([]*alerting.Alert, error) {
	ctx, span := startSpan(ctx, "pgstore.List", "SELECT")
	defer span.End()

	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.SubjectID != "" {
		conds = append(conds, "subject_id = "+arg(f.SubjectID))
	}
	if f.Type != "" {
		conds = append(conds, "alert_type = "+arg(string(f.Type)))
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= "+arg(f.Since))
	}
	if !f.Until.IsZero() {
		conds = append(conds, "created_at < "+arg(f.Until))
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
		if f.Offset > 0 {
			query += ` OFFSET ` + arg(f.Offset)
		}
	}

	out, err := s.queryAlerts(ctx, query, args...)
	if err != nil {
		spanErr(span, err)
	}
	return out, err
}

// CountSimilarSince counts alerts for (subject, type, severity) created at or
// after since.
func (s *Store) CountSimilarSince(ctx context.Context, subjectID string, t alerting.AlertType, sev alerting.Severity, since time.Time) (int, error) {
	ctx, span := startSpan(ctx, "pgstore.CountSimilarSince", "SELECT")
	defer span.End()

	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM alerts
		WHERE subject_id = $1 AND alert_type = $2 AND severity = $3 AND created_at >= $4`,
		subjectID, string(t), string(sev), since,
	).Scan(&n)
	if err != nil {
		spanErr(span, err)
		return 0, fmt.Errorf("count similar: %w", err)
	}
	return n, nil
}

// CountForSubjectOn counts a subject's alerts created on the UTC calendar day
// containing day.
func (s *Store) CountForSubjectOn(ctx context.Context, subjectID string, day time.Time) (int, error) {
	ctx, span := startSpan(ctx, "pgstore.CountForSubjectOn", "SELECT")
	defer span.End()

	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM alerts
		WHERE subject_id = $1 AND created_at >= $2 AND created_at < $3`,
		subjectID, dayStart, dayEnd,
	).Scan(&n)
	if err != nil {
		spanErr(span, err)
		return 0, fmt.Errorf("count for day: %w", err)
	}
	return n, nil
}

func (s *Store) queryAlerts(ctx context.Context, query string, args ...any) ([]*alerting.Alert, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*alerting.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func scanAlert(row pgx.Row) (*alerting.Alert, error) {
	var (
		a           alerting.Alert
		alertType   string
		severity    string
		status      string
		actionsJSON []byte
		deliveredAt *time.Time
	)

	err := row.Scan(
		&a.ID, &a.SubjectID, &alertType, &severity, &a.Summary, &actionsJSON,
		&status, &a.CreatedAt, &deliveredAt, &a.DeliveryChannel, &a.DeliveryAttempts, &a.FailReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	a.Type = alerting.AlertType(alertType)
	a.Severity = alerting.Severity(severity)
	a.Status = alerting.Status(status)
	if deliveredAt != nil {
		a.DeliveredAt = *deliveredAt
	}

	if err := json.Unmarshal(actionsJSON, &a.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return &a, nil
}

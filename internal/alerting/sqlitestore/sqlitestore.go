// Package sqlitestore provides a SQLite implementation of alerting.Store,
// the default when no PostgreSQL URL is configured.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/procop07/mood-sentinel/internal/alerting"
)

//go:embed schema.sql
var schema string

// alertColumns is the canonical SELECT column list.
const alertColumns = `id, subject_id, alert_type, severity, summary, actions_json,
	status, created_at_ns, delivered_at_ns, delivery_channel, delivery_attempts, fail_reason`

// severityRank orders rows CRITICAL > HIGH > MEDIUM > LOW in SQL.
const severityRank = `CASE severity
	WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END`

// Store persists alerts in a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, applies the schema, and
// returns a ready Store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY under
	// concurrent pipeline and coordinator writes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close shuts down the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Persist inserts the alert with a fresh ULID and status PENDING. The insert
// is a single statement, so it commits fully or not at all.
func (s *Store) Persist(ctx context.Context, a *alerting.Alert) (string, error) {
	actionsJSON, err := json.Marshal(a.Actions)
	if err != nil {
		return "", fmt.Errorf("marshal actions: %w", err)
	}

	id := ulid.Make().String()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, subject_id, alert_type, severity, summary, actions_json, status, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, a.SubjectID, string(a.Type), string(a.Severity), a.Summary, string(actionsJSON),
		string(alerting.StatusPending), createdAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert alert: %w", err)
	}
	return id, nil
}

// Get retrieves a single alert by ID.
func (s *Store) Get(ctx context.Context, id string) (*alerting.Alert, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// ListUndelivered returns PENDING alerts created at or after since.
func (s *Store) ListUndelivered(ctx context.Context, since time.Time) ([]*alerting.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE status = ? AND created_at_ns >= ?
		ORDER BY ` + severityRank + ` DESC, created_at_ns ASC`
	return s.queryAlerts(ctx, query, string(alerting.StatusPending), since.UnixNano())
}

// MarkDelivered transitions PENDING alerts to DELIVERED in one statement.
// The predicate re-checks status, so repeating the call affects 0 rows.
func (s *Store) MarkDelivered(ctx context.Context, ids []string, channel string, sentAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `UPDATE alerts SET status = ?, delivered_at_ns = ?, delivery_channel = ?
		WHERE status = ? AND id IN (` + placeholders(len(ids)) + `)`
	args := []any{string(alerting.StatusDelivered), sentAt.UnixNano(), channel, string(alerting.StatusPending)}
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark delivered: %w", err)
	}
	return res.RowsAffected()
}

// MarkFailed transitions PENDING alerts to FAILED.
func (s *Store) MarkFailed(ctx context.Context, ids []string, reason string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `UPDATE alerts SET status = ?, fail_reason = ?
		WHERE status = ? AND id IN (` + placeholders(len(ids)) + `)`
	args := []any{string(alerting.StatusFailed), reason, string(alerting.StatusPending)}
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark failed: %w", err)
	}
	return res.RowsAffected()
}

// Retry re-arms FAILED alerts back to PENDING.
func (s *Store) Retry(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `UPDATE alerts SET status = ?, fail_reason = '', delivery_attempts = 0
		WHERE status = ? AND id IN (` + placeholders(len(ids)) + `)`
	args := []any{string(alerting.StatusPending), string(alerting.StatusFailed)}
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry: %w", err)
	}
	return res.RowsAffected()
}

// IncrementAttempts bumps the persisted delivery attempt counter.
func (s *Store) IncrementAttempts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE alerts SET delivery_attempts = delivery_attempts + 1
		WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// List returns alerts matching the filter, newest first.
func (s *Store) List(ctx context.Context, f alerting.ListFilter) ([]*alerting.Alert, error) {
	var conds []string
	var args []any

	if f.SubjectID != "" {
		conds = append(conds, "subject_id = ?")
		args = append(args, f.SubjectID)
	}
	if f.Type != "" {
		conds = append(conds, "alert_type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at_ns >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "created_at_ns < ?")
		args = append(args, f.Until.UnixNano())
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at_ns DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	return s.queryAlerts(ctx, query, args...)
}

// CountSimilarSince counts alerts for (subject, type, severity) created at or
// after since.
func (s *Store) CountSimilarSince(ctx context.Context, subjectID string, t alerting.AlertType, sev alerting.Severity, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts
		WHERE subject_id = ? AND alert_type = ? AND severity = ? AND created_at_ns >= ?`,
		subjectID, string(t), string(sev), since.UnixNano(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count similar: %w", err)
	}
	return n, nil
}

// CountForSubjectOn counts a subject's alerts created on the UTC calendar day
// containing day.
func (s *Store) CountForSubjectOn(ctx context.Context, subjectID string, day time.Time) (int, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts
		WHERE subject_id = ? AND created_at_ns >= ? AND created_at_ns < ?`,
		subjectID, dayStart.UnixNano(), dayEnd.UnixNano(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count for day: %w", err)
	}
	return n, nil
}

func (s *Store) queryAlerts(ctx context.Context, query string, args ...any) ([]*alerting.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*alerting.Alert, error) {
	var (
		a           alerting.Alert
		alertType   string
		severity    string
		status      string
		actionsJSON string
		createdNs   int64
		deliveredNs sql.NullInt64
	)

	err := row.Scan(
		&a.ID, &a.SubjectID, &alertType, &severity, &a.Summary, &actionsJSON,
		&status, &createdNs, &deliveredNs, &a.DeliveryChannel, &a.DeliveryAttempts, &a.FailReason,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	a.Type = alerting.AlertType(alertType)
	a.Severity = alerting.Severity(severity)
	a.Status = alerting.Status(status)
	a.CreatedAt = time.Unix(0, createdNs).UTC()
	if deliveredNs.Valid {
		a.DeliveredAt = time.Unix(0, deliveredNs.Int64).UTC()
	}

	if err := json.Unmarshal([]byte(actionsJSON), &a.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return &a, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

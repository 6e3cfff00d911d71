// Package memstore provides an in-memory implementation of alerting.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/procop07/mood-sentinel/internal/alerting"
)

// Store holds alerts in memory. Suitable for dev/testing.
type Store struct {
	mu     sync.RWMutex
	alerts map[string]*alerting.Alert
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{alerts: make(map[string]*alerting.Alert)}
}

// Persist inserts the alert with a fresh ULID and status PENDING.
func (s *Store) Persist(_ context.Context, a *alerting.Alert) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	cp.ID = ulid.Make().String()
	cp.Status = alerting.StatusPending
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.Actions = append([]string(nil), a.Actions...)

	s.alerts[cp.ID] = &cp
	return cp.ID, nil
}

// Get retrieves an alert by ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*alerting.Alert, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, false, nil
	}
	return copyAlert(a), true, nil
}

// copyAlert clones an alert including its Actions slice, so callers cannot
// reach back into store state through the returned value.
func copyAlert(a *alerting.Alert) *alerting.Alert {
	cp := *a
	cp.Actions = append([]string(nil), a.Actions...)
	return &cp
}

// ListUndelivered returns PENDING alerts created at or after since, ordered
// by severity rank descending then created_at ascending.
func (s *Store) ListUndelivered(_ context.Context, since time.Time) ([]*alerting.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alerting.Alert
	for _, a := range s.alerts {
		if a.Status == alerting.StatusPending && !a.CreatedAt.Before(since) {
			out = append(out, copyAlert(a))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MarkDelivered transitions PENDING alerts to DELIVERED and returns the count
// of rows actually transitioned. Repeating the call yields 0.
func (s *Store) MarkDelivered(_ context.Context, ids []string, channel string, sentAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range ids {
		a, ok := s.alerts[id]
		if !ok || a.Status != alerting.StatusPending {
			continue
		}
		a.Status = alerting.StatusDelivered
		a.DeliveredAt = sentAt
		a.DeliveryChannel = channel
		n++
	}
	return n, nil
}

// MarkFailed transitions PENDING alerts to FAILED.
func (s *Store) MarkFailed(_ context.Context, ids []string, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range ids {
		a, ok := s.alerts[id]
		if !ok || a.Status != alerting.StatusPending {
			continue
		}
		a.Status = alerting.StatusFailed
		a.FailReason = reason
		n++
	}
	return n, nil
}

// Retry re-arms FAILED alerts back to PENDING.
func (s *Store) Retry(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range ids {
		a, ok := s.alerts[id]
		if !ok || a.Status != alerting.StatusFailed {
			continue
		}
		a.Status = alerting.StatusPending
		a.FailReason = ""
		a.DeliveryAttempts = 0
		n++
	}
	return n, nil
}

// IncrementAttempts bumps the delivery attempt counter.
func (s *Store) IncrementAttempts(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if a, ok := s.alerts[id]; ok {
			a.DeliveryAttempts++
		}
	}
	return nil
}

// List returns alerts matching the filter, newest first.
func (s *Store) List(_ context.Context, f alerting.ListFilter) ([]*alerting.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*alerting.Alert
	for _, a := range s.alerts {
		if f.SubjectID != "" && a.SubjectID != f.SubjectID {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.Since.IsZero() && a.CreatedAt.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !a.CreatedAt.Before(f.Until) {
			continue
		}
		out = append(out, copyAlert(a))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

// CountSimilarSince counts alerts for (subject, type, severity) created at or
// after since.
func (s *Store) CountSimilarSince(_ context.Context, subjectID string, t alerting.AlertType, sev alerting.Severity, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.alerts {
		if a.SubjectID == subjectID && a.Type == t && a.Severity == sev && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// CountForSubjectOn counts a subject's alerts created on the UTC calendar day
// containing day.
func (s *Store) CountForSubjectOn(_ context.Context, subjectID string, day time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	n := 0
	for _, a := range s.alerts {
		created := a.CreatedAt.UTC()
		if a.SubjectID == subjectID && !created.Before(dayStart) && created.Before(dayEnd) {
			n++
		}
	}
	return n, nil
}

package alerting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// fakeStore is a minimal in-memory Store for exercising the gate, service,
// coordinator and reporter without a database. Error fields inject failures.
// The mutex keeps it safe under the batch and concurrency tests.
type fakeStore struct {
	mu     sync.Mutex
	alerts []*Alert
	nextID int

	persistErr      error
	countSimilarErr error
	countDayErr     error
	listErr         error
	markErr         error
}

func (s *fakeStore) Persist(_ context.Context, a *Alert) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return "", s.persistErr
	}
	s.nextID++
	cp := *a
	cp.ID = fmt.Sprintf("stub-%03d", s.nextID)
	cp.Status = StatusPending
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.alerts = append(s.alerts, &cp)
	return cp.ID, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID == id {
			cp := *a
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

func (s *fakeStore) ListUndelivered(_ context.Context, since time.Time) ([]*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*Alert
	for _, a := range s.alerts {
		if a.Status == StatusPending && !a.CreatedAt.Before(since) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeStore) MarkDelivered(_ context.Context, ids []string, channel string, sentAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return 0, s.markErr
	}
	var n int64
	for _, id := range ids {
		for _, a := range s.alerts {
			if a.ID == id && a.Status == StatusPending {
				a.Status = StatusDelivered
				a.DeliveredAt = sentAt
				a.DeliveryChannel = channel
				n++
			}
		}
	}
	return n, nil
}

func (s *fakeStore) MarkFailed(_ context.Context, ids []string, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return 0, s.markErr
	}
	var n int64
	for _, id := range ids {
		for _, a := range s.alerts {
			if a.ID == id && a.Status == StatusPending {
				a.Status = StatusFailed
				a.FailReason = reason
				n++
			}
		}
	}
	return n, nil
}

func (s *fakeStore) Retry(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		for _, a := range s.alerts {
			if a.ID == id && a.Status == StatusFailed {
				a.Status = StatusPending
				a.FailReason = ""
				a.DeliveryAttempts = 0
				n++
			}
		}
	}
	return n, nil
}

func (s *fakeStore) IncrementAttempts(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		for _, a := range s.alerts {
			if a.ID == id {
				a.DeliveryAttempts++
			}
		}
	}
	return nil
}

func (s *fakeStore) List(_ context.Context, f ListFilter) ([]*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*Alert
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
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) CountSimilarSince(_ context.Context, subjectID string, t AlertType, sev Severity, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countSimilarErr != nil {
		return 0, s.countSimilarErr
	}
	n := 0
	for _, a := range s.alerts {
		if a.SubjectID == subjectID && a.Type == t && a.Severity == sev && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountForSubjectOn(_ context.Context, subjectID string, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countDayErr != nil {
		return 0, s.countDayErr
	}
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

package alerting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"
	"github.com/procop07/mood-sentinel/internal/feature"
)

// Suppression records one candidate the gate denied.
type Suppression struct {
	Type     AlertType  `json:"alert_type"`
	Severity Severity   `json:"severity"`
	Reason   DenyReason `json:"reason"`
}

// ProcessResult is the outcome of one evaluation cycle for one snapshot.
type ProcessResult struct {
	SubjectID  string        `json:"subject_id"`
	Admitted   []string      `json:"admitted,omitempty"` // persisted alert IDs
	Suppressed []Suppression `json:"suppressed,omitempty"`
}

// Service runs the evaluate -> gate -> persist cycle. Cycles for the same
// subject are serialized behind a per-subject mutex so the gate always sees a
// consistent history; cycles for different subjects run in parallel.
type Service struct {
	store      Store
	gate       *Gate
	thresholds Thresholds
	logger     log.Logger
	metrics    *Metrics
	now        func() time.Time

	mu       sync.Mutex
	subjects map[string]*sync.Mutex
}

// NewService creates the pipeline service.
func NewService(store Store, gate *Gate, thresholds Thresholds, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:      store,
		gate:       gate,
		thresholds: thresholds,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
		subjects:   make(map[string]*sync.Mutex),
	}
}

func (s *Service) subjectLock(subjectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.subjects[subjectID]
	if !ok {
		m = &sync.Mutex{}
		s.subjects[subjectID] = m
	}
	return m
}

// Process evaluates one snapshot, gates each candidate, and persists the
// admitted ones. A malformed snapshot returns an error without touching the
// store; nothing candidate-level is visible until Persist commits.
func (s *Service) Process(ctx context.Context, snap *feature.Snapshot) (*ProcessResult, error) {
	if err := snap.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.SnapshotsTotal.WithLabelValues("invalid").Inc()
		}
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	lock := s.subjectLock(snap.SubjectID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	candidates := Evaluate(snap, s.thresholds)

	result := &ProcessResult{SubjectID: snap.SubjectID}
	L := s.logger.With("subject_id", snap.SubjectID)

	for i := range candidates {
		cand := &candidates[i]
		if s.metrics != nil {
			s.metrics.CandidatesTotal.WithLabelValues(string(cand.Type), string(cand.Severity)).Inc()
		}

		decision, err := s.gate.Admit(ctx, cand, now)
		if err != nil {
			// Abort the cycle without partial commit; the next cycle
			// re-evaluates from scratch.
			return nil, fmt.Errorf("admit %s: %w", cand.Type, err)
		}

		if !decision.Allow {
			if s.metrics != nil {
				s.metrics.GateDecisionsTotal.WithLabelValues(string(decision.Reason)).Inc()
			}
			result.Suppressed = append(result.Suppressed, Suppression{
				Type:     cand.Type,
				Severity: cand.Severity,
				Reason:   decision.Reason,
			})
			continue
		}
		if s.metrics != nil {
			s.metrics.GateDecisionsTotal.WithLabelValues("allow").Inc()
		}

		id, err := s.store.Persist(ctx, &Alert{
			SubjectID: cand.SubjectID,
			Type:      cand.Type,
			Severity:  cand.Severity,
			Summary:   cand.Summary,
			Actions:   cand.Actions,
			Status:    StatusPending,
			CreatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("persist %s: %w", cand.Type, err)
		}

		if s.metrics != nil {
			s.metrics.AlertsPersistedTotal.WithLabelValues(string(cand.Severity)).Inc()
		}
		result.Admitted = append(result.Admitted, id)

		L.Info(ctx, "alert admitted",
			"alert_id", id,
			"alert_type", string(cand.Type),
			"severity", string(cand.Severity),
		)
	}

	if s.metrics != nil {
		s.metrics.SnapshotsTotal.WithLabelValues("ok").Inc()
	}
	return result, nil
}

// ProcessBatch processes snapshots concurrently. A snapshot that fails to
// evaluate is logged and skipped; it never aborts the batch. The per-subject
// mutex in Process serializes same-subject snapshots.
func (s *Service) ProcessBatch(ctx context.Context, snaps []*feature.Snapshot) ([]*ProcessResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	var mu sync.Mutex
	var results []*ProcessResult

	for _, snap := range snaps {
		g.Go(func() error {
			r, err := s.Process(gctx, snap)
			if err != nil {
				s.logger.Error(gctx, err, "snapshot processing failed", "subject_id", snap.SubjectID)
				return nil
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

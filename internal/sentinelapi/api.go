// Package sentinelapi exposes the snapshot ingest, alert query, statistics
// and delivery endpoints over HTTP.
package sentinelapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/procop07/mood-sentinel/internal/alerting"
	"github.com/procop07/mood-sentinel/internal/feature"
)

// SnapshotProcessor runs the evaluate, gate and persist cycle for snapshots.
type SnapshotProcessor interface {
	Process(ctx context.Context, snap *feature.Snapshot) (*alerting.ProcessResult, error)
	ProcessBatch(ctx context.Context, snaps []*feature.Snapshot) ([]*alerting.ProcessResult, error)
}

// AlertReader queries persisted alerts.
type AlertReader interface {
	Get(ctx context.Context, id string) (*alerting.Alert, bool, error)
	List(ctx context.Context, f alerting.ListFilter) ([]*alerting.Alert, error)
}

// StatsProvider computes summaries and trends over the alert history.
type StatsProvider interface {
	Summarize(ctx context.Context, since time.Time) (*alerting.Stats, error)
	Trend(ctx context.Context, since time.Time) (*alerting.TrendReport, error)
}

// DeliveryRunner flushes pending alerts to the notification channel.
type DeliveryRunner interface {
	RunOnce(ctx context.Context) (*alerting.DeliveryOutcome, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	processor SnapshotProcessor
	alerts    AlertReader
	stats     StatsProvider
	delivery  DeliveryRunner
	extractor *feature.Extractor
	bands     *alerting.MoodBands
}

// New creates a new API handler.
func New(logger log.Logger, processor SnapshotProcessor, alerts AlertReader, stats StatsProvider, delivery DeliveryRunner) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if processor == nil {
		panic(xerrors.New("snapshot processor is required"))
	}
	if alerts == nil {
		panic(xerrors.New("alert reader is required"))
	}
	return &API{
		logger:    logger,
		processor: processor,
		alerts:    alerts,
		stats:     stats,
		delivery:  delivery,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/snapshots", a.handleIngestSnapshots)
		r.Post("/posts", a.handleIngestPosts)
		r.Post("/mood", a.handleCheckMood)
		r.Get("/alerts", a.handleListAlerts)
		r.Get("/alerts/{id}", a.handleGetAlert)
		r.Get("/statistics", a.handleStatistics)
		r.Post("/delivery/run", a.handleRunDelivery)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package sentinelapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/procop07/mood-sentinel/internal/feature"
	"github.com/procop07/mood-sentinel/internal/source"
)

// postsRequest carries raw posts for one subject plus the volume baseline
// used for spike detection.
type postsRequest struct {
	SubjectID      string        `json:"subject_id"`
	BaselineVolume float64       `json:"baseline_volume"`
	Posts          []source.Post `json:"posts"`
}

// SetExtractor enables the raw post ingest endpoint.
func (a *API) SetExtractor(e *feature.Extractor) {
	a.extractor = e
}

func (a *API) handleIngestPosts(w http.ResponseWriter, r *http.Request) {
	if a.extractor == nil {
		http.Error(w, `{"error":"post ingest not available"}`, http.StatusNotImplemented)
		return
	}

	var req postsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.SubjectID == "" {
		http.Error(w, `{"error":"subject_id is required"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("sentinel.subject.id", req.SubjectID),
		attribute.Int("sentinel.posts.count", len(req.Posts)),
	)

	snap := a.extractor.Extract(req.SubjectID, req.Posts, req.BaselineVolume, time.Now())
	if err := snap.Validate(); err != nil {
		a.logger.Warn(r.Context(), "extracted snapshot invalid", "subject_id", req.SubjectID, "error", err.Error())
		http.Error(w, `{"error":"invalid snapshot"}`, http.StatusUnprocessableEntity)
		return
	}

	result, err := a.processor.Process(r.Context(), snap)
	if err != nil {
		a.logger.Error(r.Context(), err, "post processing failed", "subject_id", req.SubjectID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"snapshot": snap,
		"result":   result,
	})
}

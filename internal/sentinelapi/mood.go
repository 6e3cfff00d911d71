package sentinelapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/procop07/mood-sentinel/internal/alerting"
)

// moodRequest carries a composite mood score for classification.
type moodRequest struct {
	SubjectID string   `json:"subject_id"`
	Score     *float64 `json:"score"`
}

// SetMoodBands enables the mood check endpoint with the given cut points.
func (a *API) SetMoodBands(b alerting.MoodBands) {
	a.bands = &b
}

func (a *API) handleCheckMood(w http.ResponseWriter, r *http.Request) {
	if a.bands == nil {
		http.Error(w, `{"error":"mood check not available"}`, http.StatusNotImplemented)
		return
	}

	var req moodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.Score == nil || *req.Score < 0 || *req.Score > 1 {
		http.Error(w, `{"error":"score must be within [0, 1]"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Float64("sentinel.mood.score", *req.Score))

	eval := a.bands.ClassifyMood(*req.Score)
	if eval.ActionRequired {
		a.logger.Warn(r.Context(), "low mood classified",
			"subject_id", req.SubjectID,
			"band", string(eval.Band),
			"score", *req.Score,
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id": req.SubjectID,
		"evaluation": eval,
	})
}

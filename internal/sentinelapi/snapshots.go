package sentinelapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/procop07/mood-sentinel/internal/feature"
)

// ingestRequest accepts a single snapshot or a batch.
type ingestRequest struct {
	Snapshots []*feature.Snapshot `json:"snapshots"`
}

func (a *API) handleIngestSnapshots(w http.ResponseWriter, r *http.Request) {
	body, err := decodeSnapshots(r)
	if err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, `{"error":"no snapshots in payload"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("sentinel.snapshots.count", len(body)))

	for _, snap := range body {
		if err := snap.Validate(); err != nil {
			a.logger.Warn(r.Context(), "rejected snapshot", "subject_id", snap.SubjectID, "error", err.Error())
			http.Error(w, `{"error":"invalid snapshot: `+snap.SubjectID+`"}`, http.StatusUnprocessableEntity)
			return
		}
	}

	results, err := a.processor.ProcessBatch(r.Context(), body)
	if err != nil {
		a.logger.Error(r.Context(), err, "snapshot batch processing failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"results": results,
	})
}

// decodeSnapshots accepts either {"snapshots":[...]}, a bare array, or a
// single snapshot object.
func decodeSnapshots(r *http.Request) ([]*feature.Snapshot, error) {
	dec := json.NewDecoder(r.Body)

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	var batch ingestRequest
	if err := json.Unmarshal(raw, &batch); err == nil && len(batch.Snapshots) > 0 {
		return batch.Snapshots, nil
	}

	var list []*feature.Snapshot
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var one feature.Snapshot
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []*feature.Snapshot{&one}, nil
}

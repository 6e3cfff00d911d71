package sentinelapi

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/procop07/mood-sentinel/internal/alerting"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sentinel.alert.id", id))

	alert, ok, err := a.alerts.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get alert", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, alert)
}

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	f, err := listFilterFromQuery(r)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	alerts, err := a.alerts.List(r.Context(), f)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list alerts")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if alerts == nil {
		alerts = []*alerting.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func listFilterFromQuery(r *http.Request) (alerting.ListFilter, error) {
	q := r.URL.Query()
	f := alerting.ListFilter{
		SubjectID: q.Get("subject_id"),
		Limit:     defaultListLimit,
	}

	if v := q.Get("type"); v != "" {
		f.Type = alerting.AlertType(v)
	}
	if v := q.Get("status"); v != "" {
		s := alerting.Status(v)
		switch s {
		case alerting.StatusPending, alerting.StatusDelivered, alerting.StatusFailed:
			f.Status = s
		default:
			return f, errInvalidParam("status")
		}
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errInvalidParam("since")
		}
		f.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, errInvalidParam("limit")
		}
		f.Limit = min(n, maxListLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errInvalidParam("offset")
		}
		f.Offset = n
	}

	return f, nil
}

type errInvalidParam string

func (e errInvalidParam) Error() string { return "invalid " + string(e) + " parameter" }

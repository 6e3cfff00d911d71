package sentinelapi

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultStatsDays = 7
	maxStatsDays     = 365
)

func (a *API) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if a.stats == nil {
		http.Error(w, `{"error":"statistics not available"}`, http.StatusNotImplemented)
		return
	}

	days := defaultStatsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxStatsDays {
			http.Error(w, `{"error":"invalid days parameter"}`, http.StatusBadRequest)
			return
		}
		days = n
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("sentinel.stats.days", days))

	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

	summary, err := a.stats.Summarize(r.Context(), since)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to summarize alerts")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	trend, err := a.stats.Trend(r.Context(), since)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to compute trend")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period_days": days,
		"summary":     summary,
		"trend":       trend,
	})
}

func (a *API) handleRunDelivery(w http.ResponseWriter, r *http.Request) {
	if a.delivery == nil {
		http.Error(w, `{"error":"delivery not configured"}`, http.StatusNotImplemented)
		return
	}

	outcome, err := a.delivery.RunOnce(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "delivery run failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

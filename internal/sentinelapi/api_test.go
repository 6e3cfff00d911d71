package sentinelapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/procop07/mood-sentinel/internal/alerting"
	"github.com/procop07/mood-sentinel/internal/alerting/memstore"
	"github.com/procop07/mood-sentinel/internal/feature"
)

type recordingChannel struct {
	sent []string
}

func (c *recordingChannel) Name() string { return "test" }

func (c *recordingChannel) Deliver(_ context.Context, text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func newTestRouter(t *testing.T) (chi.Router, *memstore.Store, *recordingChannel) {
	t.Helper()

	store := memstore.New()
	gate := alerting.NewGate(store, alerting.DefaultGatePolicy(), log.Nop())
	svc := alerting.NewService(store, gate, alerting.DefaultThresholds(), log.Nop(), nil)
	reporter := alerting.NewReporter(store)
	ch := &recordingChannel{}
	coord := alerting.NewCoordinator(store, ch, alerting.DefaultCoordinatorConfig(), log.Nop(), nil)

	api := New(nil, svc, store, reporter, coord)
	api.SetExtractor(feature.NewExtractor(feature.DefaultCrisisTerms()))
	api.SetMoodBands(alerting.DefaultMoodBands())
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, store, ch
}

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	gate := alerting.NewGate(store, alerting.DefaultGatePolicy(), log.Nop())
	svc := alerting.NewService(store, gate, alerting.DefaultThresholds(), log.Nop(), nil)

	api := New(nil, svc, store, nil, nil)
	if api.logger == nil {
		t.Fatal("expected Nop logger for nil logger")
	}
}

func TestNew_NilProcessor_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for nil processor")
		}
	}()
	New(nil, nil, memstore.New(), nil, nil)
}

func TestIngestSnapshots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			"single crisis snapshot",
			`{"subject_id":"team-7","avg_sentiment":-0.9,"engagement_score":0.5,"post_volume":10,"avg_post_volume":10,"crisis_keywords":["burnout"]}`,
			http.StatusAccepted,
		},
		{
			"batch envelope",
			`{"snapshots":[{"subject_id":"team-1","avg_sentiment":0.3,"engagement_score":0.5,"post_volume":5,"avg_post_volume":5}]}`,
			http.StatusAccepted,
		},
		{
			"bare array",
			`[{"subject_id":"team-2","avg_sentiment":0.1,"engagement_score":0.4,"post_volume":5,"avg_post_volume":5}]`,
			http.StatusAccepted,
		},
		{"invalid json", `{bad`, http.StatusBadRequest},
		{"empty array", `[]`, http.StatusBadRequest},
		{
			"out of range sentiment",
			`{"subject_id":"team-3","avg_sentiment":-3.0,"engagement_score":0.5,"post_volume":5,"avg_post_volume":5}`,
			http.StatusUnprocessableEntity,
		},
		{
			"missing subject",
			`{"avg_sentiment":0.0,"engagement_score":0.5,"post_volume":5,"avg_post_volume":5}`,
			http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _, _ := newTestRouter(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestIngestSnapshots_PersistsAdmittedAlerts(t *testing.T) {
	t.Parallel()

	r, store, _ := newTestRouter(t)

	body := `{"subject_id":"team-7","avg_sentiment":-0.9,"engagement_score":0.5,"post_volume":10,"avg_post_volume":10,"crisis_keywords":["hopeless"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", w.Code, w.Body.String())
	}

	var resp struct {
		Results []*alerting.ProcessResult `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	// -0.9 trips both NEGATIVE_SENTIMENT and CRISIS_KEYWORDS.
	if len(resp.Results[0].Admitted) != 2 {
		t.Fatalf("admitted = %d, want 2", len(resp.Results[0].Admitted))
	}

	for _, id := range resp.Results[0].Admitted {
		a, ok, err := store.Get(context.Background(), id)
		if err != nil || !ok {
			t.Fatalf("Get(%s): ok=%v err=%v", id, ok, err)
		}
		if a.Status != alerting.StatusPending {
			t.Errorf("status = %s, want PENDING", a.Status)
		}
	}
}

func TestListAlerts(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	// Seed through the ingest endpoint.
	body := `{"subject_id":"team-9","avg_sentiment":-0.6,"engagement_score":0.5,"post_volume":5,"avg_post_volume":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots", strings.NewReader(body))
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts?subject_id=team-9&status=PENDING", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	var resp struct {
		Alerts []*alerting.Alert `json:"alerts"`
		Count  int               `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
	if len(resp.Alerts) != 1 || resp.Alerts[0].Type != alerting.TypeNegativeSentiment {
		t.Errorf("alerts = %+v, want one NEGATIVE_SENTIMENT", resp.Alerts)
	}
}

func TestListAlerts_BadParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
	}{
		{"bad status", "?status=BOGUS"},
		{"bad since", "?since=not-a-time"},
		{"bad limit", "?limit=zero"},
		{"negative offset", "?offset=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _, _ := newTestRouter(t)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts"+tt.query, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetAlert_NotFound(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/01XXXXXXXXXXXXXXXXXXXXXXXX", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStatistics(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)

	body := `{"subject_id":"team-9","avg_sentiment":-0.9,"engagement_score":0.5,"post_volume":5,"avg_post_volume":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots", strings.NewReader(body))
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/statistics?days=7", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	var resp struct {
		PeriodDays int              `json:"period_days"`
		Summary    *alerting.Stats  `json:"summary"`
		Trend      *json.RawMessage `json:"trend"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PeriodDays != 7 {
		t.Errorf("period_days = %d, want 7", resp.PeriodDays)
	}
	if resp.Summary == nil || resp.Summary.Total != 1 {
		t.Errorf("summary = %+v, want total 1", resp.Summary)
	}
}

func TestStatistics_BadDays(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/statistics?days=0", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRunDelivery_FlushesPending(t *testing.T) {
	t.Parallel()

	r, store, ch := newTestRouter(t)

	body := `{"subject_id":"team-5","avg_sentiment":-0.6,"engagement_score":0.5,"post_volume":5,"avg_post_volume":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots", strings.NewReader(body))
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/delivery/run", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	var outcome alerting.DeliveryOutcome
	if err := json.NewDecoder(w.Body).Decode(&outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Sent != 1 {
		t.Errorf("sent = %d, want 1", outcome.Sent)
	}
	if len(ch.sent) != 1 {
		t.Fatalf("channel received %d messages, want 1", len(ch.sent))
	}
	if !strings.Contains(ch.sent[0], "team-5") {
		t.Errorf("message %q should mention the subject", ch.sent[0])
	}

	pending, err := store.ListUndelivered(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("ListUndelivered: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after delivery = %d, want 0", len(pending))
	}
}

func TestIngestPosts(t *testing.T) {
	t.Parallel()

	r, store, _ := newTestRouter(t)

	body := `{"subject_id":"team-3","baseline_volume":2,"posts":[` +
		`{"id":"p1","subject_id":"team-3","content":"I feel completely hopeless about this project","sentiment":-0.9,"posted_at":"2026-08-30T10:00:00Z"},` +
		`{"id":"p2","subject_id":"team-3","content":"another rough day","sentiment":-0.7,"posted_at":"2026-08-30T11:00:00Z"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", w.Code, w.Body.String())
	}

	var resp struct {
		Result *alerting.ProcessResult `json:"result"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// avg sentiment -0.8 and the crisis term both fire.
	if len(resp.Result.Admitted) == 0 {
		t.Fatal("expected at least one admitted alert")
	}

	alerts, err := store.List(context.Background(), alerting.ListFilter{SubjectID: "team-3"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(alerts) != len(resp.Result.Admitted) {
		t.Errorf("stored %d alerts, result admitted %d", len(alerts), len(resp.Result.Admitted))
	}
}

func TestIngestPosts_NoExtractor(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	gate := alerting.NewGate(store, alerting.DefaultGatePolicy(), log.Nop())
	svc := alerting.NewService(store, gate, alerting.DefaultThresholds(), log.Nop(), nil)

	api := New(nil, svc, store, nil, nil)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader(`{"subject_id":"x"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func TestCheckMood(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBand   alerting.MoodBand
	}{
		{"critical score", `{"subject_id":"team-1","score":0.1}`, http.StatusOK, alerting.BandCritical},
		{"warning score", `{"subject_id":"team-1","score":0.35}`, http.StatusOK, alerting.BandWarning},
		{"neutral score", `{"subject_id":"team-1","score":0.5}`, http.StatusOK, alerting.BandNeutral},
		{"positive score", `{"subject_id":"team-1","score":0.8}`, http.StatusOK, alerting.BandPositive},
		{"missing score", `{"subject_id":"team-1"}`, http.StatusBadRequest, ""},
		{"score out of range", `{"score":1.5}`, http.StatusBadRequest, ""},
		{"bad json", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _, _ := newTestRouter(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/mood", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Evaluation alerting.MoodEvaluation `json:"evaluation"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Evaluation.Band != tt.wantBand {
				t.Errorf("band = %s, want %s", resp.Evaluation.Band, tt.wantBand)
			}
		})
	}
}

func TestCheckMood_NoBands(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	gate := alerting.NewGate(store, alerting.DefaultGatePolicy(), log.Nop())
	svc := alerting.NewService(store, gate, alerting.DefaultThresholds(), log.Nop(), nil)

	api := New(nil, svc, store, nil, nil)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mood", strings.NewReader(`{"score":0.5}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

package alerting

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Stats aggregates persisted alerts over a window.
type Stats struct {
	Since        time.Time        `json:"since"`
	Total        int              `json:"total"`
	Delivered    int              `json:"delivered"`
	Pending      int              `json:"pending"`
	Failed       int              `json:"failed"`
	BySeverity   map[Severity]int `json:"severity_breakdown"`
	DeliveryRate float64          `json:"delivery_rate"` // percent, 0 when Total is 0
}

// TrendDirection labels how HIGH/CRITICAL alert counts moved over a window.
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendWorsening        TrendDirection = "worsening"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// TrendReport is the outcome of a trend analysis.
type TrendReport struct {
	Direction      TrendDirection `json:"direction"`
	Magnitude      int            `json:"magnitude"`
	FirstHalfHigh  int            `json:"first_half_high"`
	SecondHalfHigh int            `json:"second_half_high"`
}

// Reporter computes summaries and trends over the store.
type Reporter struct {
	store Store
	now   func() time.Time
}

// NewReporter creates a stats reporter.
func NewReporter(store Store) *Reporter {
	return &Reporter{store: store, now: time.Now}
}

// Summarize aggregates all alerts created at or after since.
func (r *Reporter) Summarize(ctx context.Context, since time.Time) (*Stats, error) {
	alerts, err := r.store.List(ctx, ListFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	stats := &Stats{
		Since:      since,
		Total:      len(alerts),
		BySeverity: make(map[Severity]int),
	}

	for _, a := range alerts {
		stats.BySeverity[a.Severity]++
		switch a.Status {
		case StatusDelivered:
			stats.Delivered++
		case StatusPending:
			stats.Pending++
		case StatusFailed:
			stats.Failed++
		}
	}

	if stats.Total > 0 {
		stats.DeliveryRate = float64(stats.Delivered) / float64(stats.Total) * 100
	}
	return stats, nil
}

// Trend splits the window in half chronologically and compares HIGH and
// CRITICAL alert counts between the halves. Equal counts mean stable.
func (r *Reporter) Trend(ctx context.Context, since time.Time) (*TrendReport, error) {
	alerts, err := r.store.List(ctx, ListFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	if len(alerts) < 2 {
		return &TrendReport{Direction: TrendInsufficientData}, nil
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})

	mid := len(alerts) / 2
	first := countSevere(alerts[:mid])
	second := countSevere(alerts[mid:])

	report := &TrendReport{
		FirstHalfHigh:  first,
		SecondHalfHigh: second,
		Magnitude:      abs(second - first),
	}
	switch {
	case second > first:
		report.Direction = TrendWorsening
	case second < first:
		report.Direction = TrendImproving
	default:
		report.Direction = TrendStable
	}
	return report, nil
}

func countSevere(alerts []*Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Severity == SeverityHigh || a.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

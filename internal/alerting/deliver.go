package alerting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// Channel delivers a formatted alert message to an external destination.
// Implementations classify failures: a PermanentError means the alert will
// never be deliverable (malformed recipient, payload rejected outright);
// anything else is treated as transient and retried on a later pass.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, text string) error
}

// PermanentError marks a delivery failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent delivery error: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// DeliveryOutcome summarizes one coordinator pass.
type DeliveryOutcome struct {
	Sent      int `json:"sent"`      // confirmed delivered and marked
	Failed    int `json:"failed"`    // marked FAILED (permanent or budget exhausted)
	Deferred  int `json:"deferred"`  // left PENDING for a later pass
	BatchSize int `json:"batch_size"`
}

// CoordinatorConfig holds delivery policy.
type CoordinatorConfig struct {
	Timeout     time.Duration // per-send bound; expiry counts as transient
	Window      time.Duration // how far back ListUndelivered looks
	MaxAttempts int           // transient failures before conversion to FAILED
}

// DefaultCoordinatorConfig returns the stock delivery policy.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Timeout:     10 * time.Second,
		Window:      24 * time.Hour,
		MaxAttempts: 5,
	}
}

// Validate checks the coordinator policy for sane ranges.
func (c CoordinatorConfig) Validate() error {
	var errs []error

	if c.Timeout <= 0 || c.Timeout > 2*time.Minute {
		errs = append(errs, fmt.Errorf("delivery timeout %v out of range (0, 2m]", c.Timeout))
	}
	if c.Window <= 0 || c.Window > 30*24*time.Hour {
		errs = append(errs, fmt.Errorf("delivery window %v out of range (0, 720h]", c.Window))
	}
	if c.MaxAttempts <= 0 || c.MaxAttempts > 20 {
		errs = append(errs, fmt.Errorf("max delivery attempts %d out of range [1, 20]", c.MaxAttempts))
	}

	return errors.Join(errs...)
}

// Coordinator polls undelivered alerts and pushes them through a channel.
// Marking only happens on confirmed success, so the guarantee is
// at-least-once: racing coordinators may double-send, but the store's
// PENDING predicate means delivery is never double-counted.
type Coordinator struct {
	store   Store
	channel Channel
	cfg     CoordinatorConfig
	logger  log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewCoordinator creates a delivery coordinator. Scheduling is external;
// callers invoke RunOnce from a timer or trigger endpoint.
func NewCoordinator(store Store, channel Channel, cfg CoordinatorConfig, logger log.Logger, metrics *Metrics) *Coordinator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Coordinator{
		store:   store,
		channel: channel,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// RunOnce pulls one batch of undelivered alerts, attempts delivery for each,
// and records outcomes. Successes are marked in a single batch update.
func (c *Coordinator) RunOnce(ctx context.Context) (*DeliveryOutcome, error) {
	start := c.now()
	since := start.Add(-c.cfg.Window)

	batch, err := c.store.ListUndelivered(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list undelivered: %w", err)
	}

	outcome := &DeliveryOutcome{BatchSize: len(batch)}
	var delivered []string

	for _, a := range batch {
		if err := ctx.Err(); err != nil {
			// Mid-flight cancellation: already-sent alerts still get marked
			// below, the rest stay PENDING and are retried later.
			break
		}

		err := c.deliverOne(ctx, a)
		switch {
		case err == nil:
			delivered = append(delivered, a.ID)
			c.observe("sent")

		case IsPermanent(err):
			if _, mErr := c.store.MarkFailed(ctx, []string{a.ID}, err.Error()); mErr != nil {
				c.logger.Error(ctx, mErr, "failed to mark alert failed", "alert_id", a.ID)
			}
			outcome.Failed++
			c.observe("permanent")
			c.logger.Warn(ctx, "alert delivery failed permanently", "alert_id", a.ID, "reason", err.Error())

		default:
			c.handleTransient(ctx, a, err, outcome)
		}
	}

	if len(delivered) > 0 {
		n, err := c.store.MarkDelivered(ctx, delivered, c.channel.Name(), c.now())
		if err != nil {
			return outcome, fmt.Errorf("mark delivered: %w", err)
		}
		outcome.Sent = int(n)
	}

	if c.metrics != nil {
		c.metrics.DeliveryBatchDuration.Observe(c.now().Sub(start).Seconds())
		c.metrics.DeliveryBatchSize.Observe(float64(outcome.BatchSize))
	}

	c.logger.Info(ctx, "delivery pass complete",
		"batch_size", outcome.BatchSize,
		"sent", outcome.Sent,
		"failed", outcome.Failed,
		"deferred", outcome.Deferred,
	)
	return outcome, nil
}

func (c *Coordinator) deliverOne(ctx context.Context, a *Alert) error {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	return c.channel.Deliver(dctx, FormatMessage(a))
}

// handleTransient leaves the alert PENDING unless its persisted attempt
// counter has reached the budget, in which case it converts to FAILED.
func (c *Coordinator) handleTransient(ctx context.Context, a *Alert, derr error, outcome *DeliveryOutcome) {
	if err := c.store.IncrementAttempts(ctx, []string{a.ID}); err != nil {
		c.logger.Error(ctx, err, "failed to record delivery attempt", "alert_id", a.ID)
	}

	attempts := a.DeliveryAttempts + 1
	if attempts >= c.cfg.MaxAttempts {
		reason := fmt.Sprintf("delivery retry budget exhausted after %d attempts: %v", attempts, derr)
		if _, err := c.store.MarkFailed(ctx, []string{a.ID}, reason); err != nil {
			c.logger.Error(ctx, err, "failed to mark alert failed", "alert_id", a.ID)
		}
		outcome.Failed++
		c.observe("exhausted")
		c.logger.Warn(ctx, "alert retry budget exhausted", "alert_id", a.ID, "attempts", attempts)
		return
	}

	outcome.Deferred++
	c.observe("transient")
	c.logger.Warn(ctx, "alert delivery deferred",
		"alert_id", a.ID,
		"attempts", attempts,
		"error", derr.Error(),
	)
}

func (c *Coordinator) observe(result string) {
	if c.metrics != nil {
		c.metrics.DeliveriesTotal.WithLabelValues(result).Inc()
	}
}

// FormatMessage renders one alert as a channel message.
func FormatMessage(a *Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\U0001F6A8 *Mood Sentinel Alert* \U0001F6A8\n\n")
	fmt.Fprintf(&b, "*Subject:* %s\n", a.SubjectID)
	fmt.Fprintf(&b, "*Type:* %s\n", a.Type)
	fmt.Fprintf(&b, "*Severity:* %s\n", a.Severity)
	fmt.Fprintf(&b, "*Summary:* %s\n", a.Summary)

	if len(a.Actions) > 0 {
		b.WriteString("\n*Recommended actions:*\n")
		for _, action := range a.Actions {
			fmt.Fprintf(&b, "- %s\n", action)
		}
	}

	fmt.Fprintf(&b, "\n_%s_", a.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	return b.String()
}

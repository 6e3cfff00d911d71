// Package cfg holds the service configuration, registered as flags and
// fillable from the environment.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	DatabaseURL           string

	SentimentThreshold  float64
	EngagementThreshold float64
	VolumeSpikeFactor   float64
	CrisisKeywords      string

	MoodCriticalBand float64
	MoodWarningBand  float64
	MoodRecoveryBand float64

	CooldownHours   int
	MaxAlertsPerDay int

	DeliveryTimeoutSeconds int
	DeliveryWindowHours    int
	MaxDeliveryAttempts    int

	TelegramBotToken string
	TelegramChatID   string
	SlackWebhookURL  string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "postgres:// URL, sqlite file path, or empty for in-memory store")

	fs.Float64Var(&c.SentimentThreshold, "sentiment-threshold", -0.5, "average sentiment below which an alert fires (-1..0)")
	fs.Float64Var(&c.EngagementThreshold, "engagement-threshold", 0.2, "engagement score below which an alert fires (0..1)")
	fs.Float64Var(&c.VolumeSpikeFactor, "volume-spike-factor", 2.0, "multiple of baseline volume that counts as a spike (>1)")
	fs.StringVar(&c.CrisisKeywords, "crisis-keywords", "", "comma-separated extra crisis keywords merged with the built-in set")

	fs.Float64Var(&c.MoodCriticalBand, "mood-critical-band", 0.2, "mood score at or below which the band is CRITICAL")
	fs.Float64Var(&c.MoodWarningBand, "mood-warning-band", 0.4, "mood score at or below which the band is WARNING")
	fs.Float64Var(&c.MoodRecoveryBand, "mood-recovery-band", 0.6, "mood score at or above which the band is POSITIVE")

	fs.IntVar(&c.CooldownHours, "cooldown-hours", 2, "hours during which a repeated similar alert is suppressed")
	fs.IntVar(&c.MaxAlertsPerDay, "max-alerts-per-day", 5, "per-subject daily alert cap (CRITICAL bypasses)")

	fs.IntVar(&c.DeliveryTimeoutSeconds, "delivery-timeout-seconds", 10, "per-message delivery timeout")
	fs.IntVar(&c.DeliveryWindowHours, "delivery-window-hours", 24, "how far back a delivery pass looks for pending alerts")
	fs.IntVar(&c.MaxDeliveryAttempts, "max-delivery-attempts", 5, "transient delivery failures before an alert is marked FAILED")

	fs.StringVar(&c.TelegramBotToken, "telegram-bot-token", "", "Telegram bot token for alert delivery (empty = delivery disabled)")
	fs.StringVar(&c.TelegramChatID, "telegram-chat-id", "", "Telegram chat ID receiving alerts")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack incoming webhook URL, used when Telegram is not configured")
}

// CrisisKeywordList parses the comma-separated keyword flag, dropping empty
// entries.
func (c *Config) CrisisKeywordList() []string {
	if c.CrisisKeywords == "" {
		return nil
	}
	var out []string
	for _, kw := range strings.Split(c.CrisisKeywords, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.SentimentThreshold < -1 || c.SentimentThreshold > 0 {
		errs = append(errs, fmt.Errorf("invalid SENTIMENT_THRESHOLD %.2f (must be -1..0)", c.SentimentThreshold))
	}
	if c.EngagementThreshold < 0 || c.EngagementThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid ENGAGEMENT_THRESHOLD %.2f (must be 0..1)", c.EngagementThreshold))
	}
	if c.VolumeSpikeFactor <= 1 {
		errs = append(errs, fmt.Errorf("invalid VOLUME_SPIKE_FACTOR %.2f (must be > 1)", c.VolumeSpikeFactor))
	}

	// Mood bands must be strictly ordered
	if !(c.MoodCriticalBand < c.MoodWarningBand && c.MoodWarningBand < c.MoodRecoveryBand) {
		errs = append(errs, fmt.Errorf("mood bands must satisfy CRITICAL %.2f < WARNING %.2f < RECOVERY %.2f",
			c.MoodCriticalBand, c.MoodWarningBand, c.MoodRecoveryBand))
	}

	if c.CooldownHours <= 0 {
		errs = append(errs, fmt.Errorf("invalid COOLDOWN_HOURS %d (must be positive)", c.CooldownHours))
	}
	if c.MaxAlertsPerDay <= 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_ALERTS_PER_DAY %d (must be positive)", c.MaxAlertsPerDay))
	}

	if c.DeliveryTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid DELIVERY_TIMEOUT_SECONDS %d (must be positive)", c.DeliveryTimeoutSeconds))
	}
	if c.DeliveryWindowHours <= 0 {
		errs = append(errs, fmt.Errorf("invalid DELIVERY_WINDOW_HOURS %d (must be positive)", c.DeliveryWindowHours))
	}
	if c.MaxDeliveryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_DELIVERY_ATTEMPTS %d (must be positive)", c.MaxDeliveryAttempts))
	}

	// Telegram settings come as a pair
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}

	if c.SlackWebhookURL != "" && !strings.HasPrefix(c.SlackWebhookURL, "http") {
		errs = append(errs, fmt.Errorf("invalid SLACK_WEBHOOK_URL %q (must be an http(s) URL)", c.SlackWebhookURL))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

package cfg

import (
	"flag"
	"strings"
	"testing"
)

// validBase returns a Config with all fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:           60,
		ShutdownBudgetSeconds:  90,
		APIPort:                8080,
		SentimentThreshold:     -0.5,
		EngagementThreshold:    0.2,
		VolumeSpikeFactor:      2.0,
		MoodCriticalBand:       0.2,
		MoodWarningBand:        0.4,
		MoodRecoveryBand:       0.6,
		CooldownHours:          2,
		MaxAlertsPerDay:        5,
		DeliveryTimeoutSeconds: 10,
		DeliveryWindowHours:    24,
		MaxDeliveryAttempts:    5,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.SentimentThreshold != -0.5 {
		t.Errorf("SentimentThreshold = %v, want -0.5", c.SentimentThreshold)
	}
	if c.CooldownHours != 2 {
		t.Errorf("CooldownHours = %d, want 2", c.CooldownHours)
	}
	if c.MaxAlertsPerDay != 5 {
		t.Errorf("MaxAlertsPerDay = %d, want 5", c.MaxAlertsPerDay)
	}
	if c.MaxDeliveryAttempts != 5 {
		t.Errorf("MaxDeliveryAttempts = %d, want 5", c.MaxDeliveryAttempts)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-sentiment-threshold", "-0.3",
		"-cooldown-hours", "4",
		"-max-alerts-per-day", "10",
		"-telegram-bot-token", "tok",
		"-telegram-chat-id", "123",
		"-crisis-keywords", "quit, burnout",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.SentimentThreshold != -0.3 {
		t.Errorf("SentimentThreshold = %v, want -0.3", c.SentimentThreshold)
	}
	if c.CooldownHours != 4 {
		t.Errorf("CooldownHours = %d, want 4", c.CooldownHours)
	}
	if c.TelegramBotToken != "tok" {
		t.Errorf("TelegramBotToken = %q, want tok", c.TelegramBotToken)
	}
}

func TestCrisisKeywordList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "burnout", []string{"burnout"}},
		{"trims spaces", " quit , overwhelmed ", []string{"quit", "overwhelmed"}},
		{"drops empties", "a,,b,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := Config{CrisisKeywords: tt.in}
			got := c.CrisisKeywordList()
			if len(got) != len(tt.want) {
				t.Fatalf("CrisisKeywordList() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("keyword[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"drain too low", func(c *Config) { c.DrainSeconds = 0 }, "DRAIN_SECONDS"},
		{"drain too high", func(c *Config) { c.DrainSeconds = 301 }, "DRAIN_SECONDS"},
		{"budget below drain", func(c *Config) { c.ShutdownBudgetSeconds = 30 }, "must be greater than"},
		{"port zero", func(c *Config) { c.APIPort = 0 }, "HTTP_PORT"},
		{"port too high", func(c *Config) { c.APIPort = 70000 }, "HTTP_PORT"},
		{"sentiment positive", func(c *Config) { c.SentimentThreshold = 0.5 }, "SENTIMENT_THRESHOLD"},
		{"engagement above one", func(c *Config) { c.EngagementThreshold = 1.5 }, "ENGAGEMENT_THRESHOLD"},
		{"spike factor one", func(c *Config) { c.VolumeSpikeFactor = 1.0 }, "VOLUME_SPIKE_FACTOR"},
		{"bands unordered", func(c *Config) { c.MoodWarningBand = 0.1 }, "mood bands"},
		{"cooldown zero", func(c *Config) { c.CooldownHours = 0 }, "COOLDOWN_HOURS"},
		{"daily cap zero", func(c *Config) { c.MaxAlertsPerDay = 0 }, "MAX_ALERTS_PER_DAY"},
		{"delivery timeout zero", func(c *Config) { c.DeliveryTimeoutSeconds = 0 }, "DELIVERY_TIMEOUT_SECONDS"},
		{"window zero", func(c *Config) { c.DeliveryWindowHours = 0 }, "DELIVERY_WINDOW_HOURS"},
		{"attempts zero", func(c *Config) { c.MaxDeliveryAttempts = 0 }, "MAX_DELIVERY_ATTEMPTS"},
		{"token without chat", func(c *Config) { c.TelegramBotToken = "tok" }, "must be set together"},
		{"chat without token", func(c *Config) { c.TelegramChatID = "123" }, "must be set together"},
		{"bad slack webhook", func(c *Config) { c.SlackWebhookURL = "not-a-url" }, "SLACK_WEBHOOK_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Validate() = %q, want to contain %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.DrainSeconds = 0
	c.APIPort = 0
	c.CooldownHours = 0

	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, sub := range []string{"DRAIN_SECONDS", "HTTP_PORT", "COOLDOWN_HOURS"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("joined error missing %q: %q", sub, err)
		}
	}
}

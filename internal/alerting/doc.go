// Package alerting is the business boundary of the mood-sentinel pipeline.
// It defines the rule evaluator (pure candidate generation), the gate
// (cooldown and daily-cap suppression), the Store interface (persistence and
// the delivery state machine), the delivery Coordinator, and the stats
// Reporter.
package alerting

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnomalySeverity grades a behavioral anomaly. CRITICAL anomalies notify the
// owner immediately; the rest only count toward the accumulation threshold.
type AnomalySeverity string

const (
	AnomalySeverityCritical AnomalySeverity = "CRITICAL"
	AnomalySeverityMinor    AnomalySeverity = "MINOR"
)

// IsValid returns true if the severity is a recognized value.
func (s AnomalySeverity) IsValid() bool {
	return s == AnomalySeverityCritical || s == AnomalySeverityMinor
}

// Anomaly is one behavioral anomaly recorded against a driver. Anomalies are
// append-only: they are never deleted or reset, so a driver's total is always
// a count over the full log.
type Anomaly struct {
	ID          uuid.UUID
	DriverID    uuid.UUID
	Severity    AnomalySeverity
	Description string
	Notified    bool
	CreatedAt   time.Time
}

// NotifyRule names which escalation rule fired for an anomaly write.
type NotifyRule string

const (
	NotifyRuleNone      NotifyRule = ""
	NotifyRuleCritical  NotifyRule = RuleAnomalyCritical
	NotifyRuleThreshold NotifyRule = RuleAnomalyThreshold
)

// AnomalyNotifyRule decides whether an owner notification fires for a new
// anomaly. total is the driver's all-time count including the new anomaly;
// threshold is the accumulation step (every exact multiple notifies).
// Criticals always notify, and take precedence when both rules would fire.
func AnomalyNotifyRule(severity AnomalySeverity, total, threshold int) NotifyRule {
	if severity == AnomalySeverityCritical {
		return NotifyRuleCritical
	}
	if threshold > 0 && total%threshold == 0 {
		return NotifyRuleThreshold
	}
	return NotifyRuleNone
}

// CreateAnomalyParams contains parameters for recording an anomaly.
type CreateAnomalyParams struct {
	DriverID    uuid.UUID
	Severity    AnomalySeverity
	Description string
}

// AnomalyRecordResult is what an anomaly write reports back: the running
// total, whether a notification fired, and which rule fired it.
type AnomalyRecordResult struct {
	Anomaly  *Anomaly
	Total    int
	Notified bool
	Rule     NotifyRule
}

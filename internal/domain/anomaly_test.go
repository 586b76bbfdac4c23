package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnomalyNotifyRule(t *testing.T) {
	tests := []struct {
		name     string
		severity AnomalySeverity
		total    int
		want     NotifyRule
	}{
		{"first minor", AnomalySeverityMinor, 1, NotifyRuleNone},
		{"second minor", AnomalySeverityMinor, 2, NotifyRuleNone},
		{"third minor hits threshold", AnomalySeverityMinor, 3, NotifyRuleThreshold},
		{"fourth minor", AnomalySeverityMinor, 4, NotifyRuleNone},
		{"fifth minor", AnomalySeverityMinor, 5, NotifyRuleNone},
		{"sixth minor hits threshold", AnomalySeverityMinor, 6, NotifyRuleThreshold},
		{"critical always notifies", AnomalySeverityCritical, 1, NotifyRuleCritical},
		{"critical wins over threshold", AnomalySeverityCritical, 3, NotifyRuleCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnomalyNotifyRule(tt.severity, tt.total, 3))
		})
	}
}

func TestAnomalyNotifyRule_ZeroThreshold(t *testing.T) {
	// A zero threshold disables accumulation notifications entirely rather
	// than dividing by zero.
	assert.Equal(t, NotifyRuleNone, AnomalyNotifyRule(AnomalySeverityMinor, 3, 0))
	assert.Equal(t, NotifyRuleCritical, AnomalyNotifyRule(AnomalySeverityCritical, 3, 0))
}

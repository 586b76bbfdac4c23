package domain

// Domain rule identifiers. These are stable, machine-readable codes surfaced
// in API error bodies so clients can react to specific rule failures. The
// numbering follows the fleet operations rulebook.
const (
	// Daily report rules
	RuleReportFieldsRequired  = "R-PD-012" // all required fields present
	RuleReportOdometerOrder   = "R-PD-013" // end odometer strictly greater than start
	RuleReportRevenueOrder    = "R-PD-014" // total revenue >= card revenue
	RuleReportFuelEvidence    = "R-PD-015" // fuel expense requires fuel evidence
	RuleReportUniquePerDay    = "R-PD-016" // one report per vehicle per work date
	RuleReportImmutable       = "R-PD-017" // reports never edited after submission
	RuleReportOdometerRegress = "R-PD-018" // end odometer below vehicle's current reading

	// Photo evidence rules
	RuleEvidenceIllegible  = "R-FT-001" // illegible evidence creates a pending task
	RuleEvidenceMaxRetries = "R-FT-003" // replacement attempts capped
	RuleEvidenceLocked     = "R-FT-004" // evidence locked after cap reached
	RuleEvidenceUnlock     = "R-FT-005" // unlock requires a closed incident
	RuleEvidenceGate       = "R-FT-006" // pending tasks block new submissions

	// Anomaly rules
	RuleAnomalyThreshold = "R-AN-003" // owner notified every N accumulated anomalies
	RuleAnomalyCritical  = "R-AN-004" // critical anomalies notify immediately

	// Maintenance rules
	RuleMaintenanceLearned = "R-MT-003" // learned frequency overrides catalog default

	// Incident rules
	RuleIncidentNeedsOwner  = "R-IN-001" // driver must have an assigned owner
	RuleIncidentOwnerCloses = "R-IN-002" // only the assigned owner closes
)

package model

// FindingType discriminates violations from missing evidence.
type FindingType string

const (
	FindingRuleViolation FindingType = "rule_violation"
	FindingEvidenceGap   FindingType = "evidence_gap"
)

// Severity of a rule or finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityMinor:    1,
	SeverityMajor:    2,
	SeverityCritical: 3,
}

// Rank orders severities; unknown severities rank below info.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Lower returns the next severity below s, floored at info.
func (s Severity) Lower() Severity {
	switch s {
	case SeverityCritical:
		return SeverityMajor
	case SeverityMajor:
		return SeverityMinor
	default:
		return SeverityInfo
	}
}

// Finding is the atomic output of evaluating one rule.
type Finding struct {
	FindingID         string             `json:"finding_id"`
	RuleID            string             `json:"rule_id"`
	PackID            string             `json:"pack_id"`
	FindingType       FindingType        `json:"finding_type"`
	Severity          Severity           `json:"severity"`
	Refs              []string           `json:"refs"`
	Title             string             `json:"title"`
	RecommendedAction string             `json:"recommended_action"`
	ExpectedImpact    string             `json:"expected_impact,omitempty"`
	MissingInputs     []string           `json:"missing_inputs,omitempty"`
	Observed          map[string]float64 `json:"observed,omitempty"`
	Threshold         map[string]float64 `json:"threshold,omitempty"`
}

// OutcomeStatus is how a single rule resolved during evaluation.
type OutcomeStatus string

const (
	OutcomeViolation       OutcomeStatus = "violation"
	OutcomeDeferred        OutcomeStatus = "deferred"
	OutcomePassed          OutcomeStatus = "passed"
	OutcomeNotActiveInMode OutcomeStatus = "not_active_in_mode"
)

// RuleOutcome records the evaluation status of every rule in a plan's packs,
// including rules that produced no finding.
type RuleOutcome struct {
	RuleID string        `json:"rule_id"`
	PackID string        `json:"pack_id"`
	Refs   []string      `json:"refs"`
	Status OutcomeStatus `json:"status"`
}

// StandardRef is a resolved reference in the derived standards list.
type StandardRef struct {
	RefID string `json:"ref_id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Type  string `json:"type,omitempty"`
}

// TraceStatus summarises a reference's state in a route.
type TraceStatus string

const (
	TraceFinding         TraceStatus = "finding"
	TraceEvidenceGap     TraceStatus = "evidence_gap"
	TracePassed          TraceStatus = "passed"
	TraceNotActiveInMode TraceStatus = "not_active_in_mode"
)

// StandardTrace aggregates, per reference, how the rules citing it resolved.
type StandardTrace struct {
	RefID                  string      `json:"ref_id"`
	Title                  string      `json:"title"`
	ActiveInMode           bool        `json:"active_in_mode"`
	RulesConsidered        int         `json:"rules_considered"`
	DesignRiskFindings     int         `json:"design_risk_findings"`
	EvidenceGapFindings    int         `json:"evidence_gap_findings"`
	BlockedByMissingInputs int         `json:"blocked_by_missing_inputs"`
	ChecksPassed           int         `json:"checks_passed"`
	ChecksUnresolved       int         `json:"checks_unresolved"`
	RulesNotActiveInMode   int         `json:"rules_not_active_in_mode"`
	Status                 TraceStatus `json:"status"`
}

// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"encoding/json"
	"strconv"
)

// Number is a numeric input value that remembers the literal it was read from.
// Output only ever prints Raw, so "40.0" stays "40.0" and "1e2" stays "1e2".
type Number struct {
	Raw   string
	Value float64
}

// NewNumber parses a numeric literal. It reports false when raw is not a number.
func NewNumber(raw string) (Number, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Number{}, false
	}
	return Number{Raw: raw, Value: v}, true
}

// String returns the verbatim literal.
func (n Number) String() string { return n.Raw }

// MarshalJSON writes the literal back unchanged.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.Raw == "" {
		return []byte("null"), nil
	}
	return []byte(n.Raw), nil
}

// OptionalNumber is a backlog figure that upstream collectors may omit.
type OptionalNumber struct {
	Number
	Present bool
}

// Some wraps a present number.
func Some(n Number) OptionalNumber { return OptionalNumber{Number: n, Present: true} }

// MarshalJSON writes null for absent values.
func (o OptionalNumber) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return o.Number.MarshalJSON()
}

// Lens is one of the three evaluation dimensions.
type Lens string

const (
	LensExecution Lens = "execution_systems"
	LensCommunity Lens = "community_sustainability"
	LensStrategy  Lens = "strategy_value"
)

// LensPriority is the tie-break order: earlier lenses win equal scores.
var LensPriority = []Lens{LensExecution, LensCommunity, LensStrategy}

// Title is the human label used in Markdown.
func (l Lens) Title() string {
	switch l {
	case LensExecution:
		return "Execution Systems"
	case LensCommunity:
		return "Community Sustainability"
	case LensStrategy:
		return "Strategy Value"
	}
	return string(l)
}

// TrendDirection is the normalized reading of a trend indicator.
type TrendDirection string

const (
	TrendUnknown   TrendDirection = ""
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// Trend keeps the upstream indicator verbatim alongside its direction.
type Trend struct {
	Raw       string
	Direction TrendDirection
}

// Known reports whether any trend indicator was supplied.
func (t Trend) Known() bool { return t.Raw != "" }

// MarshalJSON writes the indicator the way it was read: numeric deltas as
// numbers, labels as strings.
func (t Trend) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		return []byte("null"), nil
	}
	if _, ok := NewNumber(t.Raw); ok && json.Valid([]byte(t.Raw)) {
		return []byte(t.Raw), nil
	}
	return json.Marshal(t.Raw)
}

// Score is a lens (or backlog) score with its trend.
type Score struct {
	Value Number `json:"score"`
	Trend Trend  `json:"trend"`
}

// Metrics holds the named scores of a report.
type Metrics struct {
	Execution Score          `json:"execution_systems"`
	Community Score          `json:"community_sustainability"`
	Strategy  Score          `json:"strategy_value"`
	Backlog   Score          `json:"backlog"`
	Overall   OptionalNumber `json:"overall"`
}

// Lens returns the score of the given lens.
func (m Metrics) Lens(l Lens) Score {
	switch l {
	case LensExecution:
		return m.Execution
	case LensCommunity:
		return m.Community
	default:
		return m.Strategy
	}
}

// BacklogSnapshot holds open-item counts and ages. Every field is optional.
type BacklogSnapshot struct {
	OpenPRs        OptionalNumber `json:"open_prs"`
	OpenIssues     OptionalNumber `json:"open_issues"`
	PRsOver365     OptionalNumber `json:"prs_over_365_days"`
	IssuesOver365  OptionalNumber `json:"issues_over_365_days"`
	IssuesOver730  OptionalNumber `json:"issues_over_730_days"`
	MedianPRAge    OptionalNumber `json:"median_pr_age_days_est"`
	MedianIssueAge OptionalNumber `json:"median_issue_age_days_est"`
}

// StalledAction identifies an open PR or issue needing attention.
type StalledAction struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}

// Report is the validated input. It is never modified after parsing.
type Report struct {
	GeneratedAt     string          `json:"report_generated_at,omitempty"`
	Metrics         Metrics         `json:"metrics"`
	BacklogSnapshot BacklogSnapshot `json:"backlog_snapshot"`
	RiskFlags       []string        `json:"risk_flags"`
	StalledActions  []StalledAction `json:"stalled_actions"`
}

package domain

// Evidence is a single input figure cited in support of a constraint.
type Evidence struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Value Number `json:"value"`
}

// Constraint is a diagnosed bottleneck. Field always names the metric it is derived from.
type Constraint struct {
	Lens          Lens       `json:"lens"`
	Field         string     `json:"field"`
	Score         Number     `json:"score"`
	Trend         Trend      `json:"trend"`
	Tied          bool       `json:"tied"`
	Justification string     `json:"justification"`
	Evidence      []Evidence `json:"evidence,omitempty"`
	RiskFlags     []string   `json:"risk_flags,omitempty"`
}

// BacklogPatternKind labels the shape of the open backlog.
type BacklogPatternKind string

const (
	PatternAccumulation    BacklogPatternKind = "accumulation"
	PatternGradualAging    BacklogPatternKind = "gradual aging"
	PatternHealthyTurnover BacklogPatternKind = "healthy turnover"
)

// BacklogPattern is the backlog classification and its grounded description.
type BacklogPattern struct {
	Kind        BacklogPatternKind `json:"kind"`
	Description string             `json:"description"`
	// AgedRatio is used for classification only and is never rendered.
	AgedRatio float64 `json:"-"`
}

// ExecutionSignal contrasts visible throughput with what the backlog hides.
type ExecutionSignal struct {
	Healthy bool   `json:"healthy"`
	Working string `json:"working"`
	Hidden  string `json:"hidden"`
}

// Diagnosis is derived once per invocation from a Report.
type Diagnosis struct {
	Primary         Constraint      `json:"primary_constraint"`
	Secondary       *Constraint     `json:"secondary_constraint,omitempty"`
	AllTied         bool            `json:"all_tied,omitempty"`
	BacklogPattern  *BacklogPattern `json:"backlog_pattern,omitempty"`
	ExecutionSignal ExecutionSignal `json:"execution_signal"`
	// Omitted lists the clauses dropped because their inputs were missing.
	Omitted []InsufficientDataError `json:"omitted,omitempty"`
}

// Constraints returns the primary and, when present, secondary constraint.
func (d Diagnosis) Constraints() []Constraint {
	out := []Constraint{d.Primary}
	if d.Secondary != nil {
		out = append(out, *d.Secondary)
	}
	return out
}

// ConstraintRole says which diagnosed constraint a recommendation serves.
type ConstraintRole string

const (
	RolePrimary   ConstraintRole = "primary"
	RoleSecondary ConstraintRole = "secondary"
)

// Recommendation is one actionable step with a measurable goal.
type Recommendation struct {
	Action           string         `json:"action"`
	TargetConstraint Lens           `json:"target_constraint"`
	Role             ConstraintRole `json:"role"`
	MeasurableGoal   string         `json:"measurable_goal"`
}

// Digest bundles everything the Markdown renderer needs for one report.
type Digest struct {
	Report          *Report          `json:"-"`
	Diagnosis       Diagnosis        `json:"diagnosis"`
	Recommendations []Recommendation `json:"recommendations"`
	Narrative       []string         `json:"narrative"`
}

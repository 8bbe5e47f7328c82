package domain

import "fmt"

// MalformedReportError is returned when a required field is missing or has the wrong type.
type MalformedReportError struct {
	Field  string
	Reason string
}

func (e *MalformedReportError) Error() string {
	return fmt.Sprintf("malformed report: %s: %s", e.Field, e.Reason)
}

// InsufficientDataError records a diagnosis clause that was skipped because
// an optional input was absent. It never aborts the pipeline.
type InsufficientDataError struct {
	Clause string `json:"clause"`
	Field  string `json:"field"`
}

func (e InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %s not reported", e.Clause, e.Field)
}

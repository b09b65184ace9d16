package lintflow

import "fmt"

// Position represents a location in a source file.
type Position struct {
	Line      int `json:"line"`                 // 1-indexed line number
	Column    int `json:"column"`               // 1-indexed column number
	Offset    int `json:"offset,omitempty"`     // Byte offset in file
	EndLine   int `json:"end_line,omitempty"`   // For multi-line ranges
	EndColumn int `json:"end_column,omitempty"` // For multi-line ranges
}

// IsValid returns true if the position has valid line/column
func (p *Position) IsValid() bool {
	return p != nil && p.Line > 0 && p.Column > 0
}

// Severity represents the importance level of a violation
type Severity string

const (
	SeverityError   Severity = "error"   // Fails the build step
	SeverityWarning Severity = "warning" // Reported but does not fail the build
	SeverityInfo    Severity = "info"    // Informational only
)

// String implements the Stringer interface for Severity
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity converts a string to a Severity level
func ParseSeverity(s string) Severity {
	switch s {
	case "warning", "warn":
		return SeverityWarning
	case "info", "information":
		return SeverityInfo
	case "error":
		return SeverityError
	default:
		return SeverityError // Default to error
	}
}

// Violation represents a single rule violation found by the engine
type Violation struct {
	File     string    `json:"file"`               // The file where the violation was found
	Rule     string    `json:"rule"`               // Name of the violated rule
	Message  string    `json:"message"`            // Human-readable description from the engine
	Cached   bool      `json:"cached"`             // Whether the violation was replayed from the cache
	Position *Position `json:"position,omitempty"` // Where the violation occurs
	Severity Severity  `json:"severity,omitempty"` // Error, Warning, Info
}

// Error implements the error interface
func (v *Violation) Error() string {
	if v.Position.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s (%s)", v.File, v.Position.Line, v.Position.Column, v.Message, v.Rule)
	}
	return fmt.Sprintf("%s: %s (%s)", v.File, v.Message, v.Rule)
}

// Result is the outcome of analyzing one or more files
type Result struct {
	Violations []Violation `json:"violations"`
}

// NewResult creates a new empty result
func NewResult() *Result {
	return &Result{
		Violations: make([]Violation, 0),
	}
}

// Add adds a violation to the result
func (r *Result) Add(violation Violation) {
	r.Violations = append(r.Violations, violation)
}

// Merge appends all violations from other
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// IsEmpty returns true if there are no violations
func (r *Result) IsEmpty() bool {
	return len(r.Violations) == 0
}

// Count returns the number of violations
func (r *Result) Count() int {
	return len(r.Violations)
}

// HasErrors returns true when at least one violation carries error severity
func (r *Result) HasErrors() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityError || v.Severity == "" {
			return true
		}
	}
	return false
}

// String implements the Stringer interface
func (r *Result) String() string {
	return r.PrintByFile()
}

// PrintByFile prints the violations grouped by file
func (r *Result) PrintByFile() string {
	if len(r.Violations) == 0 {
		return "No rule violations found"
	}

	msg := fmt.Sprintf("Found %d rule violations grouped by file:\n", len(r.Violations))

	// Group violations by file
	fileViolations := make(map[string][]Violation)
	for _, violation := range r.Violations {
		fileViolations[violation.File] = append(fileViolations[violation.File], violation)
	}

	// Display violations for each file
	for file, violations := range fileViolations {
		msg += fmt.Sprintf("File: %s (%d violations)\n", file, len(violations))

		for _, violation := range violations {
			if violation.Position.IsValid() {
				msg += fmt.Sprintf("  - Rule: %s, Line %d:%d, %s\n", violation.Rule, violation.Position.Line, violation.Position.Column, violation.Message)
			} else {
				msg += fmt.Sprintf("  - Rule: %s, %s\n", violation.Rule, violation.Message)
			}
		}
		msg += "\n"
	}

	return msg
}

// PrintByRule prints the violations grouped by rule
func (r *Result) PrintByRule() string {
	if len(r.Violations) == 0 {
		return "No rule violations found"
	}

	msg := fmt.Sprintf("Found %d rule violations grouped by rule:\n", len(r.Violations))

	// Group violations by rule
	ruleViolations := make(map[string][]Violation)
	for _, violation := range r.Violations {
		ruleViolations[violation.Rule] = append(ruleViolations[violation.Rule], violation)
	}

	// Display violations for each rule
	for rule, violations := range ruleViolations {
		msg += fmt.Sprintf("Rule: %s (%d violations)\n", rule, len(violations))

		for _, violation := range violations {
			msg += fmt.Sprintf("  - File: %s, %s\n", violation.File, violation.Message)
		}
		msg += "\n"
	}

	return msg
}

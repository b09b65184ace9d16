package lintflow

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatText outputs human-readable text (default)
	FormatText OutputFormat = "text"
	// FormatColor outputs colored human-readable text
	FormatColor OutputFormat = "color"
	// FormatJSON outputs machine-readable JSON
	FormatJSON OutputFormat = "json"
	// FormatCheckstyle outputs Checkstyle XML format
	FormatCheckstyle OutputFormat = "checkstyle"
)

// Formatter renders an aggregated result for one output format.
type Formatter interface {
	Format(res *Result, cfg *Config) ([]byte, error)
	ContentType() string
}

// NewFormatter creates a formatter for the requested output format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Pretty: true}, nil
	case FormatCheckstyle:
		return &CheckstyleFormatter{}, nil
	case FormatColor:
		return NewColorFormatter(), nil
	case FormatText:
		return &TextFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// TextFormatter outputs violations in human-readable text format
type TextFormatter struct {
	GroupByRule bool
}

func (f *TextFormatter) Format(res *Result, cfg *Config) ([]byte, error) {
	if f.GroupByRule {
		return []byte(res.PrintByRule()), nil
	}
	return []byte(res.PrintByFile()), nil
}

func (f *TextFormatter) ContentType() string {
	return "text/plain"
}

// JSONFormatter outputs violations in JSON format
type JSONFormatter struct {
	Pretty bool
}

// JSONOutput represents the JSON output structure
type JSONOutput struct {
	Summary    Summary         `json:"summary"`
	Violations []JSONViolation `json:"violations"`
	Rules      []RuleSummary   `json:"rules"`
	Timestamp  string          `json:"timestamp"`
}

type Summary struct {
	TotalViolations int    `json:"total_violations"`
	FilesWithIssues int    `json:"files_with_issues"`
	Status          string `json:"status"`
}

type JSONViolation struct {
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Cached   bool   `json:"cached,omitempty"`
}

type RuleSummary struct {
	Name       string `json:"name"`
	Violations int    `json:"violations"`
}

func (f *JSONFormatter) Format(res *Result, cfg *Config) ([]byte, error) {
	output := f.buildJSONOutput(res)

	if f.Pretty {
		return json.MarshalIndent(output, "", "  ")
	}
	return json.Marshal(output)
}

func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

func (f *JSONFormatter) buildJSONOutput(res *Result) JSONOutput {
	fileMap := make(map[string]bool)
	ruleCount := make(map[string]int)

	jsonViolations := make([]JSONViolation, 0, len(res.Violations))
	for _, v := range res.Violations {
		fileMap[v.File] = true
		ruleCount[v.Rule]++

		jv := JSONViolation{
			File:     v.File,
			Rule:     v.Rule,
			Severity: string(v.Severity),
			Message:  v.Message,
			Cached:   v.Cached,
		}
		if v.Position.IsValid() {
			jv.Line = v.Position.Line
			jv.Column = v.Position.Column
		}
		jsonViolations = append(jsonViolations, jv)
	}

	ruleSummaries := make([]RuleSummary, 0, len(ruleCount))
	for rule, count := range ruleCount {
		ruleSummaries = append(ruleSummaries, RuleSummary{
			Name:       rule,
			Violations: count,
		})
	}

	status := "passed"
	if len(res.Violations) > 0 {
		status = "failed"
	}

	return JSONOutput{
		Summary: Summary{
			TotalViolations: len(res.Violations),
			FilesWithIssues: len(fileMap),
			Status:          status,
		},
		Violations: jsonViolations,
		Rules:      ruleSummaries,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// CheckstyleFormatter outputs violations in Checkstyle XML format
type CheckstyleFormatter struct{}

type CheckstyleOutput struct {
	XMLName xml.Name         `xml:"checkstyle"`
	Version string           `xml:"version,attr"`
	Files   []CheckstyleFile `xml:"file"`
}

type CheckstyleFile struct {
	Name   string            `xml:"name,attr"`
	Errors []CheckstyleError `xml:"error"`
}

type CheckstyleError struct {
	Line     int    `xml:"line,attr"`
	Column   int    `xml:"column,attr,omitempty"`
	Severity string `xml:"severity,attr"`
	Message  string `xml:"message,attr"`
	Source   string `xml:"source,attr"`
}

func (f *CheckstyleFormatter) Format(res *Result, cfg *Config) ([]byte, error) {
	// Group violations by file
	fileMap := make(map[string][]Violation)
	for _, v := range res.Violations {
		fileMap[v.File] = append(fileMap[v.File], v)
	}

	files := make([]CheckstyleFile, 0, len(fileMap))
	for file, fileViolations := range fileMap {
		errs := make([]CheckstyleError, 0, len(fileViolations))
		for _, v := range fileViolations {
			line, column := 1, 0
			if v.Position.IsValid() {
				line = v.Position.Line
				column = v.Position.Column
			}

			severity := string(v.Severity)
			if severity == "" {
				severity = string(SeverityError)
			}

			errs = append(errs, CheckstyleError{
				Line:     line,
				Column:   column,
				Severity: severity,
				Message:  v.Message,
				Source:   fmt.Sprintf("lintflow.%s", v.Rule),
			})
		}

		files = append(files, CheckstyleFile{
			Name:   file,
			Errors: errs,
		})
	}

	output := CheckstyleOutput{
		Version: "8.0",
		Files:   files,
	}

	return xml.MarshalIndent(output, "", "  ")
}

func (f *CheckstyleFormatter) ContentType() string {
	return "application/xml"
}

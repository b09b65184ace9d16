package lintflow

// This file contains the colored text formatter with optional source
// context. It's kept separate from the plain formatters to avoid
// modification conflicts.

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
)

// ColorMode represents when to use colors in output
type ColorMode string

const (
	// ColorAuto automatically detects TTY and enables colors appropriately
	ColorAuto ColorMode = "auto"
	// ColorAlways forces colors to be enabled
	ColorAlways ColorMode = "always"
	// ColorNever disables colors
	ColorNever ColorMode = "never"
)

// ColorFormatter outputs violations with ANSI colors and, when a file
// system is attached, a short source snippet around each violation.
type ColorFormatter struct {
	// ColorMode controls when to enable colors (auto, always, never)
	ColorMode ColorMode
	// GroupByRule when true groups violations by rule instead of file
	GroupByRule bool
	// Writer is the output destination (defaults to os.Stdout)
	Writer io.Writer
	// Fs, when set, is used to extract source context around violations
	Fs afero.Fs
	// ContextLines is the number of lines shown around a violation
	ContextLines int
}

// NewColorFormatter creates a ColorFormatter with sensible defaults
func NewColorFormatter() *ColorFormatter {
	return &ColorFormatter{
		ColorMode:    ColorAuto,
		Writer:       os.Stdout,
		ContextLines: 2,
	}
}

func (f *ColorFormatter) Format(res *Result, cfg *Config) ([]byte, error) {
	if !f.shouldEnableColor() {
		plain := &TextFormatter{GroupByRule: f.GroupByRule}
		return plain.Format(res, cfg)
	}

	return []byte(f.formatWithColors(res)), nil
}

func (f *ColorFormatter) ContentType() string {
	return "text/plain"
}

// shouldEnableColor determines if colors should be enabled based on the ColorMode
func (f *ColorFormatter) shouldEnableColor() bool {
	switch f.ColorMode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		writer := f.Writer
		if writer == nil {
			writer = os.Stdout
		}

		// Check if writer is a file and if it's a terminal
		if file, ok := writer.(*os.File); ok {
			fileInfo, err := file.Stat()
			if err != nil {
				return false
			}
			// Check if it's a character device (terminal)
			return (fileInfo.Mode() & os.ModeCharDevice) != 0
		}
		return false
	default:
		return false
	}
}

func (f *ColorFormatter) formatWithColors(res *Result) string {
	var sb strings.Builder

	successColor := color.New(color.FgGreen, color.Bold)
	fileColor := color.New(color.FgCyan, color.Bold)

	if res.IsEmpty() {
		sb.WriteString(successColor.Sprint("✅ No violations found"))
		sb.WriteString("\n")
		return sb.String()
	}

	fileMap := make(map[string]bool)
	for _, v := range res.Violations {
		fileMap[v.File] = true
	}

	sb.WriteString(color.New(color.FgRed, color.Bold).Sprintf("Found %d violations in %d files", res.Count(), len(fileMap)))
	sb.WriteString("\n\n")

	groups := f.group(res)
	for _, g := range groups {
		if f.GroupByRule {
			sb.WriteString(color.New(color.FgYellow, color.Bold).Sprintf("📋 Rule: %s", g.key))
		} else {
			sb.WriteString(fileColor.Sprintf("📁 %s", g.key))
		}
		sb.WriteString(color.HiBlackString(" (%d violations)", len(g.violations)))
		sb.WriteString("\n\n")

		for _, v := range g.violations {
			f.formatViolation(&sb, &v)
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

type violationGroup struct {
	key        string
	violations []Violation
}

func (f *ColorFormatter) group(res *Result) []violationGroup {
	byKey := make(map[string][]Violation)
	var order []string

	for _, v := range res.Violations {
		key := v.File
		if f.GroupByRule {
			key = v.Rule
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], v)
	}

	groups := make([]violationGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, violationGroup{key: key, violations: byKey[key]})
	}
	return groups
}

// formatViolation renders a single violation with severity icon, position,
// rule and optional source context.
func (f *ColorFormatter) formatViolation(sb *strings.Builder, v *Violation) {
	severity := v.Severity
	if severity == "" {
		severity = SeverityError
	}

	var icon string
	var severityColor *color.Color

	switch severity {
	case SeverityWarning:
		icon = "⚠️ "
		severityColor = color.New(color.FgYellow, color.Bold)
	case SeverityInfo:
		icon = "ℹ️ "
		severityColor = color.New(color.FgBlue, color.Bold)
	default:
		icon = "❌"
		severityColor = color.New(color.FgRed, color.Bold)
	}

	position := ""
	if v.Position.IsValid() {
		position = fmt.Sprintf(" · line %d:%d", v.Position.Line, v.Position.Column)
	}

	sb.WriteString("  ")
	sb.WriteString(icon)
	sb.WriteString(" ")
	sb.WriteString(v.Message)
	sb.WriteString(color.HiBlackString(position))
	sb.WriteString("\n")

	sb.WriteString("     ")
	sb.WriteString(color.HiBlackString("Rule: "))
	sb.WriteString(color.New(color.FgYellow).Sprint(v.Rule))
	sb.WriteString("  ")
	sb.WriteString(color.HiBlackString("Severity: "))
	sb.WriteString(severityColor.Sprint(string(severity)))
	if v.Cached {
		sb.WriteString("  ")
		sb.WriteString(color.HiBlackString("(cached)"))
	}
	sb.WriteString("\n")

	if f.Fs != nil {
		if ctx, err := ExtractCodeContext(f.Fs, v.File, v.Position, f.ContextLines); err == nil && ctx != nil {
			f.formatCodeContext(sb, ctx)
		}
	}

	sb.WriteString("\n")
}

// formatCodeContext renders source lines around the violation line.
func (f *ColorFormatter) formatCodeContext(sb *strings.Builder, ctx *CodeContext) {
	lineColor := color.New(color.FgHiBlack)
	violationColor := color.New(color.FgRed)

	for _, line := range ctx.Lines {
		marker := "  "
		render := lineColor
		if line.IsViolation {
			marker = "> "
			render = violationColor
		}
		sb.WriteString(render.Sprintf("     %s%4d │ %s", marker, line.Number, line.Content))
		sb.WriteString("\n")
	}
}

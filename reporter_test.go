package lintflow

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureReporter(root string) (*LogReporter, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &LogReporter{Logger: logger, Root: root}, &buf
}

func TestLogReporterEmitsErrors(t *testing.T) {
	reporter, buf := captureReporter("/project")

	res := NewResult()
	res.Add(Violation{
		File:     "/project/internal/a.go",
		Rule:     "funlen",
		Message:  "Function 'Long' is too long",
		Position: &Position{Line: 12, Column: 1},
	})

	reporter.Report(res, &SourceFile{Path: "/project/internal/a.go"}, &ResolvedConfig{})

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "file=internal/a.go")
	assert.Contains(t, out, "line=12")
	assert.Contains(t, out, "column=1")
	assert.Contains(t, out, "rule=funlen")
}

func TestLogReporterWarningsOnly(t *testing.T) {
	reporter, buf := captureReporter("/project")

	res := NewResult()
	res.Add(Violation{File: "/project/a.go", Rule: "funlen", Message: "too long", Position: &Position{Line: 3, Column: 2}})

	reporter.Report(res, &SourceFile{Path: "/project/a.go"}, &ResolvedConfig{WarningsOnly: true})

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.NotContains(t, out, "level=ERROR")
}

func TestLogReporterNormalizesPositions(t *testing.T) {
	reporter, buf := captureReporter("/project")

	res := NewResult()
	res.Add(Violation{File: "/project/a.go", Rule: "plugin-rule", Message: "zero-based finding", Position: &Position{Line: 0, Column: 0}})
	res.Add(Violation{File: "/project/a.go", Rule: "plugin-rule", Message: "no position at all"}) // nil position

	reporter.Report(res, &SourceFile{Path: "/project/a.go"}, &ResolvedConfig{})

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "line=1")
	assert.Contains(t, out, "column=1")
	assert.NotContains(t, out, "line=0")
	assert.NotContains(t, out, "column=0")
}

func TestLogReporterMarksCachedFindings(t *testing.T) {
	reporter, buf := captureReporter("/project")

	res := NewResult()
	res.Add(Violation{File: "/project/a.go", Rule: "funlen", Message: "too long", Cached: true, Position: &Position{Line: 2, Column: 1}})

	reporter.Report(res, &SourceFile{Path: "/project/a.go"}, &ResolvedConfig{})

	assert.Contains(t, buf.String(), "cached=true")
}

func TestReporterFunc(t *testing.T) {
	var called bool
	var r Reporter = ReporterFunc(func(res *Result, file *SourceFile, cfg *ResolvedConfig) {
		called = true
	})

	r.Report(NewResult(), &SourceFile{}, &ResolvedConfig{})
	assert.True(t, called)
}

package lintflow

import (
	"go/ast"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis"
)

// countingAnalyzer reports one diagnostic per function named Bad and records
// every file it analyzed.
func countingAnalyzer(analyzed *[]string) *analysis.Analyzer {
	return &analysis.Analyzer{
		Name: "badfunc",
		Doc:  "flags functions named Bad",
		Run: func(pass *analysis.Pass) (any, error) {
			for _, file := range pass.Files {
				*analyzed = append(*analyzed, pass.Fset.Position(file.Pos()).Filename)
				for _, decl := range file.Decls {
					fn, ok := decl.(*ast.FuncDecl)
					if ok && fn.Name.Name == "Bad" {
						pass.Report(analysis.Diagnostic{Pos: fn.Pos(), Message: "function Bad is not allowed"})
					}
				}
			}
			return nil, nil
		},
	}
}

func TestTaskRunMatchesGlobs(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/project/a.go", "package main\n\nfunc A() {}\n")
	writeFile(t, fs, "/project/nested/c.go", "package nested\n\nfunc C() {}\n")
	writeFile(t, fs, "/project/b.txt", "not source\n")
	writeFile(t, fs, "/project/vendor/d.go", "package vendored\n")
	writeFile(t, fs, "/project/.hidden/e.go", "package hidden\n")

	var analyzed []string
	task := NewTask("lint", Config{Defaults: DefaultsNone}, nil, fs)
	task.engine = NewEngine([]*analysis.Analyzer{countingAnalyzer(&analyzed)}, nil)

	result, err := task.Run("/project")
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())

	assert.ElementsMatch(t, []string{"/project/a.go", "/project/nested/c.go"}, analyzed)
}

func TestTaskRejectsStreamedInput(t *testing.T) {
	task := NewTask("lint", Config{Defaults: DefaultsNone}, nil, afero.NewMemMapFs())

	f := &SourceFile{Path: "/project/streamed.go", Reader: strings.NewReader("package main\n")}
	err := task.ProcessFile(f)
	require.Error(t, err)

	info, found := GetErrorInfo(err)
	require.True(t, found)
	assert.Equal(t, ErrorTypeStream, info.Type)
	assert.Equal(t, "/project/streamed.go", info.File)
	assert.Nil(t, f.Result)
}

func TestTaskRunDropsStreamedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/project/ok.go", "package main\n\nfunc Bad() {}\n")

	var analyzed []string
	task := NewTask("lint", Config{Defaults: DefaultsNone}, nil, fs, WithReporter(&recordingReporter{}))
	task.engine = NewEngine([]*analysis.Analyzer{countingAnalyzer(&analyzed)}, nil)

	// Prime the task, then push a streamed file through by hand. The error
	// must not poison the task for subsequent buffered files.
	_, err := task.Run("/project")
	require.NoError(t, err)

	streamed := &SourceFile{Path: "/project/streamed.go", Reader: strings.NewReader("package main\n")}
	require.Error(t, task.ProcessFile(streamed))

	buffered := &SourceFile{Path: "/project/ok.go", Contents: []byte("package main\n\nfunc Ok() {}\n")}
	require.NoError(t, task.ProcessFile(buffered))
	require.NotNil(t, buffered.Result)
}

func TestTaskEmptyFilePassesThrough(t *testing.T) {
	reporter := &recordingReporter{}
	task := NewTask("lint", Config{Defaults: DefaultsNone}, nil, afero.NewMemMapFs(), WithReporter(reporter))

	f := &SourceFile{Path: "/project/empty.go"}
	require.NoError(t, task.ProcessFile(f))

	require.NotNil(t, f.Result)
	assert.True(t, f.Result.IsEmpty())
	assert.Empty(t, reporter.calls)
}

func TestTaskReportsViolations(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/project/bad.go", "package main\n\nfunc Bad() {}\n")
	writeFile(t, fs, "/project/good.go", "package main\n\nfunc Good() {}\n")

	var analyzed []string
	reporter := &recordingReporter{}
	task := NewTask("lint", Config{Defaults: DefaultsNone}, nil, fs, WithReporter(reporter))
	task.engine = NewEngine([]*analysis.Analyzer{countingAnalyzer(&analyzed)}, nil)

	result, err := task.Run("/project")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Count())
	assert.True(t, result.HasErrors())

	require.Len(t, reporter.calls, 1)
	call := reporter.calls[0]
	assert.Equal(t, "/project/bad.go", call.file.Path)
	assert.Equal(t, 1, call.result.Count())
	assert.Equal(t, SeverityError, call.result.Violations[0].Severity)
}

func TestTaskWarningsOnlySeverity(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/project/bad.go", "package main\n\nfunc Bad() {}\n")

	var analyzed []string
	task := NewTask("lint", Config{Defaults: DefaultsNone, WarningsOnly: true}, nil, fs, WithReporter(&recordingReporter{}))
	task.engine = NewEngine([]*analysis.Analyzer{countingAnalyzer(&analyzed)}, nil)

	result, err := task.Run("/project")
	require.NoError(t, err)

	require.Equal(t, 1, result.Count())
	assert.Equal(t, SeverityWarning, result.Violations[0].Severity)
	assert.False(t, result.HasErrors())
}

func TestTaskIncrementalSkipsCleanFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/project/clean.go", "package main\n\nfunc Fine() {}\n")
	writeFile(t, fs, "/project/dirty.go", "package main\n\nfunc Bad() {}\n")

	cfg := Config{Defaults: DefaultsNone, Incremental: true, CacheDir: "/cache"}

	var analyzed []string
	task := NewTask("lint", cfg, nil, fs, WithReporter(&recordingReporter{}))
	task.engine = NewEngine([]*analysis.Analyzer{countingAnalyzer(&analyzed)}, nil)

	result, err := task.Run("/project")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count())
	assert.Len(t, analyzed, 2)

	// Second run: the clean file skips analysis, the violating file is
	// analyzed and reported again.
	analyzed = analyzed[:0]
	result, err = task.Run("/project")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count())
	assert.ElementsMatch(t, []string{"/project/dirty.go"}, analyzed)
}

func TestTaskIncrementalReanalyzesChangedContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/project/clean.go", "package main\n\nfunc Fine() {}\n")

	cfg := Config{Defaults: DefaultsNone, Incremental: true, CacheDir: "/cache"}

	var analyzed []string
	task := NewTask("lint", cfg, nil, fs, WithReporter(&recordingReporter{}))
	task.engine = NewEngine([]*analysis.Analyzer{countingAnalyzer(&analyzed)}, nil)

	_, err := task.Run("/project")
	require.NoError(t, err)
	require.Len(t, analyzed, 1)

	// Touching the file content invalidates the entry.
	writeFile(t, fs, "/project/clean.go", "package main\n\nfunc Fine() {}\n\nfunc Also() {}\n")

	analyzed = analyzed[:0]
	_, err = task.Run("/project")
	require.NoError(t, err)
	assert.Len(t, analyzed, 1)
}

func TestTaskPackagePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/project/go.mod", "module example.com/demo\n\ngo 1.24\n")

	task := NewTask("lint", Config{Defaults: DefaultsNone}, nil, fs)
	task.root = "/project"

	assert.Equal(t, "example.com/demo", task.packagePath("/project/main.go"))
	assert.Equal(t, "example.com/demo/internal/sub", task.packagePath("/project/internal/sub/sub.go"))
}

func TestTaskPackagePathWithoutModule(t *testing.T) {
	task := NewTask("lint", Config{Defaults: DefaultsNone}, nil, afero.NewMemMapFs())
	task.root = "/project"

	assert.Equal(t, "main", task.packagePath("/project/main.go"))
	assert.Equal(t, "pkg", task.packagePath("/project/pkg/p.go"))
}

func TestTaskRunMissingRoot(t *testing.T) {
	task := NewTask("lint", Config{Defaults: DefaultsNone}, nil, afero.NewMemMapFs())

	_, err := task.Run("/does-not-exist")
	require.Error(t, err)

	info, found := GetErrorInfo(err)
	require.True(t, found)
	assert.Equal(t, ErrorTypeFS, info.Type)
}

type reporterCall struct {
	result *Result
	file   *SourceFile
}

type recordingReporter struct {
	calls []reporterCall
}

func (r *recordingReporter) Report(res *Result, file *SourceFile, _ *ResolvedConfig) {
	r.calls = append(r.calls, reporterCall{result: res, file: file})
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

package lintflow

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"
)

// SourceFile is a file flowing through the pipeline. Contents holds buffered
// file content; Reader marks streamed input, which the analysis step does
// not support. The analysis result is attached after the file passes the
// adapter.
type SourceFile struct {
	Path     string
	Contents []byte
	Reader   io.Reader
	Result   *Result
}

// IsEmpty reports whether the file has no buffered content and no stream.
func (f *SourceFile) IsEmpty() bool {
	return len(f.Contents) == 0 && f.Reader == nil
}

// IsStream reports whether the file carries streamed rather than buffered content.
func (f *SourceFile) IsStream() bool {
	return f.Reader != nil && f.Contents == nil
}

// Task is the build-pipeline lint step. It resolves the rule configuration
// once per invocation, streams matched files through the analysis adapter,
// skips files whose identical content already passed under the same scope,
// and hands violations to the reporter.
type Task struct {
	name     string
	cfg      Config
	resolver *Resolver
	reporter Reporter
	logger   *slog.Logger
	fs       afero.Fs

	engine *Engine
	cache  *ResultCache
	root   string
}

// TaskOption customizes a Task.
type TaskOption func(*Task)

// WithReporter overrides the default log-based reporter.
func WithReporter(r Reporter) TaskOption {
	return func(t *Task) {
		t.reporter = r
	}
}

// NewTask creates the lint task. name scopes the cache, so two tasks with
// identical configuration keep separate result sets.
func NewTask(name string, cfg Config, logger *slog.Logger, fs afero.Fs, opts ...TaskOption) *Task {
	t := &Task{
		name:     name,
		cfg:      cfg,
		resolver: NewResolver(cfg),
		logger:   ensureLogger(logger),
		fs:       fs,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// ensureLogger creates a default logger if none is provided
func ensureLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return logger
}

// Run analyzes all files below root matching the configured globs and
// returns the aggregated result. Violations never fail the run; only
// configuration, plugin and cache setup problems produce an error.
func (t *Task) Run(root string) (*Result, error) {
	files, err := t.prepare(root)
	if err != nil {
		return nil, err
	}

	total := NewResult()
	for _, f := range files {
		if err := t.ProcessFile(f); err != nil {
			// A file-level failure drops the file from the pipeline and
			// leaves the rest of the run intact.
			t.logger.Error("Dropping file from pipeline", "path", f.Path, "error", err)
			continue
		}
		total.Merge(f.Result)
	}

	return total, nil
}

// prepare resolves configuration, builds the engine and cache, and loads
// the matched files with buffered content.
func (t *Task) prepare(root string) ([]*SourceFile, error) {
	rc := t.resolver.Resolve()
	t.root = NormalizePath(root)

	if t.engine == nil {
		analyzers, err := buildAnalyzers(rc, t.fs, t.logger)
		if err != nil {
			return nil, err
		}
		t.engine = NewEngine(analyzers, t.logger)
	}

	if t.reporter == nil {
		t.reporter = &LogReporter{Logger: t.logger, Root: t.root}
	}

	if t.cfg.Incremental && t.cache == nil {
		cache, err := t.initializeCache(rc)
		if err != nil {
			return nil, err
		}
		t.cache = cache
	}

	paths, err := t.matchFiles(root)
	if err != nil {
		return nil, err
	}

	files := make([]*SourceFile, 0, len(paths))
	for _, path := range paths {
		content, err := afero.ReadFile(t.fs, path)
		if err != nil {
			t.logger.Warn("Could not read file, skipping", "path", path, "error", err)
			continue
		}
		files = append(files, &SourceFile{Path: path, Contents: content})
	}

	return files, nil
}

// initializeCache opens the result cache scoped to engine, config, task and root.
func (t *Task) initializeCache(rc *ResolvedConfig) (*ResultCache, error) {
	scope := CacheScope{
		EngineVersion: t.engine.Version(),
		ConfigHash:    rc.Fingerprint(),
		TaskName:      t.name,
		Root:          t.root,
	}

	t.logger.Info("Using incremental analysis", "cache_dir", t.cfg.CacheDir, "scope", scope.Fingerprint())

	return NewResultCache(t.cfg.CacheDir, scope, t.fs)
}

// ProcessFile is the per-file analysis adapter. Empty files pass through
// untouched, streamed input is rejected, everything else runs through the
// engine (unless the cache already recorded a clean result for the exact
// same content) and through the reporter when violations were found.
func (t *Task) ProcessFile(f *SourceFile) error {
	rc := t.resolver.Resolve()

	if f.IsStream() {
		return WithDetails(WithFile(NewStreamError("streamed file content is not supported"), f.Path),
			"Buffer the file content before passing it to the lint task")
	}

	if f.IsEmpty() {
		t.logger.Debug("Skipping empty file", "path", f.Path)
		f.Result = NewResult()
		return nil
	}

	if t.cache != nil {
		if skip := t.cachedClean(f.Path); skip {
			t.logger.Debug("Cache hit, skipping analysis", "path", f.Path)
			f.Result = NewResult()
			return nil
		}
	}

	result, err := t.engine.Check(f.Path, f.Contents, t.packagePath(f.Path))
	if err != nil {
		return err
	}

	severity := rc.Severity()
	for i := range result.Violations {
		result.Violations[i].Severity = severity
	}
	f.Result = result

	if !result.IsEmpty() {
		t.reporter.Report(result, f, rc)
	}

	if t.cache != nil {
		if err := t.cache.Record(f.Path, result); err != nil {
			// Cache trouble must not halt the lint run.
			t.logger.Warn("Failed to update cache for file", "path", f.Path, "error", err)
		}
	}

	return nil
}

// cachedClean reports whether the file's current content was already
// analyzed under this scope and found clean. A recorded run with violations
// does not allow skipping; the file is re-analyzed so its findings are
// reported again.
func (t *Task) cachedClean(path string) bool {
	rec, err := t.cache.Lookup(path)
	if err != nil {
		if !errors.Is(err, ErrEntryNotFound) {
			// Lookup trouble should not halt the main operation.
			t.logger.Warn("Error checking cache entry", "path", path, "error", err)
		}
		return false
	}
	return rec.Clean
}

// matchFiles walks root and collects files matching any configured glob.
// Hidden directories and vendor trees are skipped.
func (t *Task) matchFiles(root string) ([]string, error) {
	globs := t.cfg.Globs
	if len(globs) == 0 {
		globs = []string{"**/*.go"}
	}

	var matched []string
	err := afero.Walk(t.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return WithDetails(WithFile(NewFSError("error accessing path", err), path),
				"Check if the path exists and you have permission to access it")
		}

		if info.IsDir() {
			// Skip hidden directories and vendor
			if path != root && (strings.HasPrefix(info.Name(), ".") || info.Name() == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}

		rel := RelPath(root, path)
		for _, glob := range globs {
			ok, matchErr := doublestar.Match(glob, rel)
			if matchErr != nil {
				return NewConfigError("invalid source glob pattern: "+glob, matchErr)
			}
			if ok {
				matched = append(matched, path)
				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, handleWalkError(err, root)
	}

	return matched, nil
}

// handleWalkError handles errors that occur during file system walking
func handleWalkError(err error, path string) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if os.IsPermission(err) {
		return WithDetails(NewFSError("permission denied while walking the path", err),
			"Path: "+path+". Check if you have the necessary permissions.")
	}
	if os.IsNotExist(err) {
		return WithDetails(NewFSError("path does not exist", err),
			"Path: "+path+". Check if the path exists.")
	}
	return WithDetails(NewFSError("error walking the path", err), "Path: "+path)
}

// packagePath derives the import path of the package containing path, using
// the module declaration at the project root when available.
func (t *Task) packagePath(path string) string {
	dir := RelPath(t.root, DirPath(path))

	module, err := moduleName(t.fs, JoinPaths(t.root, "go.mod"))
	if err != nil {
		if dir == "." {
			return "main"
		}
		return dir
	}

	if dir == "." {
		return module
	}
	return module + "/" + dir
}

// moduleName extracts the module path from a go.mod file.
func moduleName(fs afero.Fs, modfilePath string) (string, error) {
	goModBytes, err := afero.ReadFile(fs, modfilePath)
	if err != nil {
		return "", WithFile(NewFSError("failed to read go.mod file", err), modfilePath)
	}

	modulePath := modfile.ModulePath(goModBytes)
	if modulePath == "" {
		return "", WithDetails(WithFile(NewFSError("failed to extract module path from go.mod", nil), modfilePath),
			"The go.mod file exists but doesn't contain a valid module declaration")
	}

	return modulePath, nil
}

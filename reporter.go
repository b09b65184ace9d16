package lintflow

import "log/slog"

// Reporter receives the analysis result of a file that produced violations.
// Implementations must not assume they own the result; the pipeline keeps
// using it after the call.
type Reporter interface {
	Report(res *Result, file *SourceFile, cfg *ResolvedConfig)
}

// LogReporter is the default reporter. It emits one structured log entry per
// violation through the shared build log: severity per the configuration,
// root-relative path, 1-based position, rule name and message.
type LogReporter struct {
	Logger *slog.Logger
	Root   string
}

// Report implements the Reporter interface.
func (r *LogReporter) Report(res *Result, file *SourceFile, cfg *ResolvedConfig) {
	logger := ensureLogger(r.Logger)

	for _, v := range res.Violations {
		pos := normalizePosition(v.Position)
		line, column := 1, 1
		if pos != nil {
			line, column = pos.Line, pos.Column
		}

		args := []any{
			"file", RelPath(r.Root, v.File),
			"line", line,
			"column", column,
			"rule", v.Rule,
		}
		if v.Cached {
			args = append(args, "cached", true)
		}

		if cfg.WarningsOnly {
			logger.Warn(v.Message, args...)
		} else {
			logger.Error(v.Message, args...)
		}
	}
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(res *Result, file *SourceFile, cfg *ResolvedConfig)

// Report implements the Reporter interface.
func (f ReporterFunc) Report(res *Result, file *SourceFile, cfg *ResolvedConfig) {
	f(res, file, cfg)
}

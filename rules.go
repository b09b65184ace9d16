package lintflow

import (
	"log/slog"
	"plugin"
	"strings"

	printffuncname "github.com/golangci/go-printf-func-name/pkg/analyzer"
	"github.com/spf13/afero"
	"github.com/ultraware/funlen"
	"golang.org/x/tools/go/analysis"
)

// ruleBuilder constructs an analyzer from the settings of one rule.
type ruleBuilder func(setting RuleSetting) *analysis.Analyzer

// builtinRules maps rule names to their analyzer constructors.
// funlen and printf-func-name are syntax-only passes and can run per file.
var builtinRules = map[string]ruleBuilder{
	"funlen": func(setting RuleSetting) *analysis.Analyzer {
		return funlen.NewAnalyzer(
			intParam(setting.Params, "line-limit", 80),
			intParam(setting.Params, "stmt-limit", 50),
			boolParam(setting.Params, "ignore-comments", true),
		)
	},
	"printf-func-name": func(setting RuleSetting) *analysis.Analyzer {
		return printffuncname.Analyzer
	},
}

// buildAnalyzers assembles the analyzers for all enabled rules plus any
// plugin analyzers found in the configured rule directories.
func buildAnalyzers(rc *ResolvedConfig, fs afero.Fs, logger *slog.Logger) ([]*analysis.Analyzer, error) {
	logger = ensureLogger(logger)
	analyzers := make([]*analysis.Analyzer, 0, len(rc.Rules))

	for name, setting := range rc.Rules {
		if !setting.Enabled {
			continue
		}

		builder, ok := builtinRules[name]
		if !ok {
			// Unknown names may refer to plugin analyzers loaded below.
			continue
		}
		analyzers = append(analyzers, builder(setting))
	}

	pluginAnalyzers, err := loadPluginAnalyzers(rc.RuleDirs, fs, logger)
	if err != nil {
		return nil, err
	}

	for _, a := range pluginAnalyzers {
		if setting, ok := rc.Rules[a.Name]; ok && !setting.Enabled {
			logger.Debug("Plugin analyzer disabled by rule config", "rule", a.Name)
			continue
		}
		analyzers = append(analyzers, a)
	}

	return analyzers, nil
}

// loadPluginAnalyzers scans the rule directories for compiled plugin rules.
// Each .so must export either `Analyzers []*analysis.Analyzer` or a single
// `Analyzer *analysis.Analyzer`, the same convention golangci-lint plugins use.
func loadPluginAnalyzers(dirs []string, fs afero.Fs, logger *slog.Logger) ([]*analysis.Analyzer, error) {
	logger = ensureLogger(logger)
	var analyzers []*analysis.Analyzer

	for _, dir := range dirs {
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			return nil, WithDetails(NewFSError("failed to read rule directory", err),
				"Directory: "+dir+". Check that the path exists and is readable.")
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
				continue
			}

			path := JoinPaths(dir, entry.Name())
			loaded, err := openRulePlugin(path)
			if err != nil {
				return nil, WithFile(NewEngineError("failed to load rule plugin", err), path)
			}

			logger.Debug("Loaded rule plugin", "path", path, "analyzers", len(loaded))
			analyzers = append(analyzers, loaded...)
		}
	}

	return analyzers, nil
}

func openRulePlugin(path string) ([]*analysis.Analyzer, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}

	if sym, err := p.Lookup("Analyzers"); err == nil {
		if list, ok := sym.(*[]*analysis.Analyzer); ok {
			return *list, nil
		}
	}

	sym, err := p.Lookup("Analyzer")
	if err != nil {
		return nil, err
	}
	single, ok := sym.(**analysis.Analyzer)
	if !ok {
		return nil, NewEngineError("plugin exports Analyzer with unexpected type", nil)
	}

	return []*analysis.Analyzer{*single}, nil
}

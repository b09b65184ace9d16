package lintflow

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tests := map[string]struct {
		path    string
		cfgFile string
		setup   func(fs afero.Fs) error
	}{
		"should load config from the current directory": {
			path:    ".",
			cfgFile: "lintflow",
			setup: func(fs afero.Fs) error {
				return afero.WriteFile(fs, "lintflow", defaultConfigTestFile(t), 0o644)
			},
		},
		"should load config from a full file path": {
			path:    ".",
			cfgFile: ".lintflow/lintflow.yml",
			setup: func(fs afero.Fs) error {
				if err := fs.Mkdir(".lintflow", 0o755); err != nil {
					return err
				}
				return afero.WriteFile(fs, ".lintflow/lintflow.yml", defaultConfigTestFile(t), 0o644)
			},
		},
		"should load config from the project directory": {
			path:    "/home/test/project",
			cfgFile: "lintflow",
			setup: func(fs afero.Fs) error {
				if err := fs.MkdirAll("/home/test/project", 0o755); err != nil {
					return err
				}
				return afero.WriteFile(fs, "/home/test/project/lintflow", defaultConfigTestFile(t), 0o644)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			memFs := afero.NewMemMapFs()
			require.NoError(t, test.setup(memFs))

			config, err := LoadConfig(memFs, test.path, test.cfgFile)
			require.NoError(t, err)

			assertDefaultConfigTestFile(t, config)
		})
	}
}

func TestEmptyConfig(t *testing.T) {
	memFs := afero.NewMemMapFs()

	var emptyContent []byte
	afero.WriteFile(memFs, "lintflow", emptyContent, 0o644)

	config, err := LoadConfig(memFs, ".", "lintflow")
	require.NoError(t, err)

	assert.Equal(t, DefaultsRecommended, config.Defaults)
	assert.Equal(t, []string{"**/*.go"}, config.Globs)
	assert.False(t, config.Incremental)
	assert.Equal(t, ".lintflow-cache", config.CacheDir)
	assert.Empty(t, config.Rules)
}

func TestConfigNotFound(t *testing.T) {
	memFs := afero.NewMemMapFs()

	_, err := LoadConfig(memFs, ".", "")
	require.Error(t, err)

	info, found := GetErrorInfo(err)
	require.True(t, found)
	assert.Equal(t, ErrorTypeConfig, info.Type)
}

func TestResolverMergesPresetWithOverrides(t *testing.T) {
	cfg := Config{
		Defaults: DefaultsRecommended,
		Rules: map[string]RuleSetting{
			"funlen": {Enabled: true, Params: map[string]any{"line-limit": 120}},
		},
	}

	rc := NewResolver(cfg).Resolve()

	// Override wins for the given param, preset fills the rest.
	funlen := rc.Rules["funlen"]
	assert.True(t, funlen.Enabled)
	assert.Equal(t, 120, intParam(funlen.Params, "line-limit", 0))
	assert.Equal(t, 50, intParam(funlen.Params, "stmt-limit", 0))
	assert.True(t, boolParam(funlen.Params, "ignore-comments", false))

	// Untouched preset rules survive the merge.
	assert.True(t, rc.Rules["printf-func-name"].Enabled)
}

func TestResolverResetDropsPriorRules(t *testing.T) {
	cfg := Config{
		Defaults: DefaultsStrict,
		Reset:    true,
		Rules: map[string]RuleSetting{
			"printf-func-name": {Enabled: true},
		},
	}

	rc := NewResolver(cfg).Resolve()

	assert.Len(t, rc.Rules, 1)
	_, hasFunlen := rc.Rules["funlen"]
	assert.False(t, hasFunlen, "reset must drop every rule from the prior configuration")
}

func TestResolverDisableRule(t *testing.T) {
	cfg := Config{
		Defaults: DefaultsRecommended,
		Rules: map[string]RuleSetting{
			"funlen": {Enabled: false},
		},
	}

	rc := NewResolver(cfg).Resolve()
	assert.False(t, rc.Rules["funlen"].Enabled)
}

func TestResolverNoDefaults(t *testing.T) {
	cfg := Config{Defaults: DefaultsNone}

	rc := NewResolver(cfg).Resolve()
	assert.Empty(t, rc.Rules)
}

func TestResolverMemoizes(t *testing.T) {
	r := NewResolver(Config{Defaults: DefaultsRecommended})

	first := r.Resolve()
	second := r.Resolve()

	assert.Same(t, first, second, "repeated calls within one invocation must return the same object")
}

func TestResolvedConfigFingerprintIsStable(t *testing.T) {
	cfg := Config{
		Defaults: DefaultsRecommended,
		Rules: map[string]RuleSetting{
			"funlen": {Enabled: true, Params: map[string]any{"line-limit": 100}},
		},
	}

	a := NewResolver(cfg).Resolve().Fingerprint()
	b := NewResolver(cfg).Resolve().Fingerprint()

	assert.Equal(t, a, b)
}

func TestResolvedConfigFingerprintChangesWithRules(t *testing.T) {
	base := NewResolver(Config{Defaults: DefaultsRecommended}).Resolve().Fingerprint()
	changed := NewResolver(Config{
		Defaults: DefaultsRecommended,
		Rules: map[string]RuleSetting{
			"funlen": {Enabled: true, Params: map[string]any{"line-limit": 10}},
		},
	}).Resolve().Fingerprint()

	assert.NotEqual(t, base, changed)
}

func defaultConfigTestFile(t *testing.T) []byte {
	t.Helper()

	return []byte(`
rules:
  funlen:
    enabled: true
    params:
      line-limit: 100
      stmt-limit: 60
  printf-func-name:
    enabled: false
rule_dirs:
  - "rules"
globs:
  - "internal/**/*.go"
warnings_only: true
incremental: true
cache_dir: ".cache/lint"
`)
}

func assertDefaultConfigTestFile(t *testing.T, config Config) {
	t.Helper()

	assert.Equal(t, DefaultsRecommended, config.Defaults)
	assert.True(t, config.WarningsOnly)
	assert.True(t, config.Incremental)
	assert.Equal(t, ".cache/lint", config.CacheDir)
	assert.Equal(t, []string{"rules"}, config.RuleDirs)
	assert.Equal(t, []string{"internal/**/*.go"}, config.Globs)

	funlen := config.Rules["funlen"]
	assert.True(t, funlen.Enabled)
	assert.Equal(t, 100, intParam(funlen.Params, "line-limit", 0))
	assert.Equal(t, 60, intParam(funlen.Params, "stmt-limit", 0))

	assert.False(t, config.Rules["printf-func-name"].Enabled)
}

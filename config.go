package lintflow

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config is the user-facing configuration surface of the lint task.
type Config struct {
	Rules        map[string]RuleSetting `yaml:"rules" mapstructure:"rules"`
	RuleDirs     []string               `yaml:"rule_dirs" mapstructure:"rule_dirs"`
	Globs        []string               `yaml:"globs" mapstructure:"globs"`
	Defaults     string                 `yaml:"defaults" mapstructure:"defaults"`
	Reset        bool                   `yaml:"reset" mapstructure:"reset"`
	WarningsOnly bool                   `yaml:"warnings_only" mapstructure:"warnings_only"`
	Incremental  bool                   `yaml:"incremental" mapstructure:"incremental"`
	CacheDir     string                 `yaml:"cache_dir" mapstructure:"cache_dir"`
}

// RuleSetting enables or disables a rule and carries its parameters.
type RuleSetting struct {
	Enabled bool           `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Params  map[string]any `yaml:"params" mapstructure:"params" json:"params,omitempty"`
}

// Built-in preset names selectable via Config.Defaults.
const (
	DefaultsRecommended = "recommended"
	DefaultsStrict      = "strict"
	DefaultsNone        = "none"
)

// presetRecommended is the lenient base rule set.
var presetRecommended = map[string]RuleSetting{
	"funlen": {Enabled: true, Params: map[string]any{
		"line-limit":      80,
		"stmt-limit":      50,
		"ignore-comments": true,
	}},
	"printf-func-name": {Enabled: true},
}

// presetStrict tightens funlen and keeps everything else on.
var presetStrict = map[string]RuleSetting{
	"funlen": {Enabled: true, Params: map[string]any{
		"line-limit":      40,
		"stmt-limit":      25,
		"ignore-comments": false,
	}},
	"printf-func-name": {Enabled: true},
}

func presetRules(name string) map[string]RuleSetting {
	switch name {
	case DefaultsStrict:
		return presetStrict
	case DefaultsNone, "":
		return nil
	default:
		return presetRecommended
	}
}

// LoadConfig reads the task configuration using viper over the given afero fs.
// cfgFile may be a full path, a file name with extension, or a bare config name.
func LoadConfig(fs afero.Fs, path string, cfgFile string) (Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yml")

	// Check if cfgFile is a full path to a file
	fileInfo, statErr := fs.Stat(cfgFile)
	if statErr == nil && !fileInfo.IsDir() {
		v.SetConfigFile(cfgFile)
	} else {
		if cfgFile != "" {
			// Handle case where cfgFile includes extension
			if strings.HasSuffix(cfgFile, ".yml") || strings.HasSuffix(cfgFile, ".yaml") {
				v.SetConfigFile(cfgFile)
			} else {
				v.SetConfigName(cfgFile)
			}
		} else {
			v.SetConfigName("lintflow")
		}

		v.AddConfigPath(path)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lintflow")
		v.AddConfigPath("./.lintflow")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return Config{}, NewConfigError("config file not found", err)
		}
		return Config{}, NewConfigError("failed loading config file", err)
	}

	v.SetDefault("defaults", DefaultsRecommended)
	v.SetDefault("globs", []string{"**/*.go"})
	v.SetDefault("incremental", false)
	v.SetDefault("cache_dir", ".lintflow-cache")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, NewConfigError("failed unmarshaling config file", err)
	}

	return config, nil
}

// ResolvedConfig is the effective rule configuration for one task invocation.
type ResolvedConfig struct {
	Rules        map[string]RuleSetting
	RuleDirs     []string
	WarningsOnly bool
}

// Fingerprint returns a canonical serialization of the effective rule set.
// json.Marshal sorts map keys, so identical configurations serialize identically.
func (rc *ResolvedConfig) Fingerprint() []byte {
	data, err := json.Marshal(struct {
		Rules        map[string]RuleSetting `json:"rules"`
		RuleDirs     []string               `json:"rule_dirs"`
		WarningsOnly bool                   `json:"warnings_only"`
	}{rc.Rules, rc.RuleDirs, rc.WarningsOnly})
	if err != nil {
		// All field types are marshalable; this cannot happen at runtime.
		return []byte{}
	}
	return data
}

// Severity returns the severity violations are reported with.
func (rc *ResolvedConfig) Severity() Severity {
	if rc.WarningsOnly {
		return SeverityWarning
	}
	return SeverityError
}

// Resolver computes the effective rule configuration lazily and memoizes it
// for the remainder of the task invocation.
type Resolver struct {
	cfg Config

	once     sync.Once
	resolved *ResolvedConfig
}

// NewResolver creates a resolver for the given configuration.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Resolve merges the preset base with the caller-supplied rule overrides.
// Repeated calls within one invocation return the same object.
func (r *Resolver) Resolve() *ResolvedConfig {
	r.once.Do(func() {
		r.resolved = &ResolvedConfig{
			Rules:        mergeRules(presetRules(r.cfg.Defaults), r.cfg.Rules, r.cfg.Reset),
			RuleDirs:     r.cfg.RuleDirs,
			WarningsOnly: r.cfg.WarningsOnly,
		}
	})
	return r.resolved
}

// mergeRules merges override settings into the base rule set.
// With reset, the base is discarded and only the overrides survive.
func mergeRules(base, overrides map[string]RuleSetting, reset bool) map[string]RuleSetting {
	merged := make(map[string]RuleSetting)

	if !reset {
		for name, setting := range base {
			merged[name] = cloneSetting(setting)
		}
	}

	for name, setting := range overrides {
		existing, ok := merged[name]
		if !ok {
			merged[name] = cloneSetting(setting)
			continue
		}

		existing.Enabled = setting.Enabled
		for k, v := range setting.Params {
			if existing.Params == nil {
				existing.Params = make(map[string]any)
			}
			existing.Params[k] = v
		}
		merged[name] = existing
	}

	return merged
}

func cloneSetting(s RuleSetting) RuleSetting {
	clone := RuleSetting{Enabled: s.Enabled}
	if s.Params != nil {
		clone.Params = make(map[string]any, len(s.Params))
		for k, v := range s.Params {
			clone.Params[k] = v
		}
	}
	return clone
}

// intParam reads an integer rule parameter with a default.
// Viper unmarshals yaml numbers as int, int64 or float64 depending on source.
func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// boolParam reads a boolean rule parameter with a default.
func boolParam(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// Package config defines the client configuration of the LTV calculator and
// the functions for loading, validating and watching it.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
	"github.com/iwvelando/ltvcalc/pkg/validation"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Configuration holds all configuration for ltvcalc.
type Configuration struct {
	Logging    LoggingConfig               `yaml:"logging,omitempty"`
	Output     OutputConfig                `yaml:"output,omitempty"`
	Parameters ParametersConfig            `yaml:"parameters,omitempty"`
	Fallbacks  map[string]FallbackOverride `yaml:"fallbacks,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// ParametersConfig describes where calculation parameters come from.
type ParametersConfig struct {
	SourceURL    string        `yaml:"sourceUrl,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	CacheTTL     time.Duration `yaml:"cacheTtl,omitempty"`
	BusinessPath string        `yaml:"businessPath,omitempty"`
}

// FallbackOverride replaces parts of the built-in fallback for one business
// path. PropertyOwnershipLTV values are percentages.
type FallbackOverride struct {
	CurrentInterestRate  float64            `yaml:"currentInterestRate,omitempty"`
	PropertyOwnershipLTV map[string]float64 `yaml:"propertyOwnershipLtv,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix("LTVCALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("parameters.timeout", constants.DefaultParametersTimeout)
	v.SetDefault("parameters.cacheTtl", constants.DefaultParametersCacheTTL)
	v.SetDefault("parameters.businessPath", constants.BusinessPathMortgage)
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// Default returns the configuration used when no file is present.
func Default() *Configuration {
	return &Configuration{
		Output: OutputConfig{Format: constants.OutputFormatPretty},
		Parameters: ParametersConfig{
			Timeout:      constants.DefaultParametersTimeout,
			CacheTTL:     constants.DefaultParametersCacheTTL,
			BusinessPath: constants.BusinessPathMortgage,
		},
	}
}

// FallbackTable converts the configured overrides into a fallback table laid
// over the built-in defaults. Unknown business paths and ownership statuses
// are skipped; ValidateConfiguration reports them.
func (c *Configuration) FallbackTable() params.Fallbacks {
	overrides := params.Fallbacks{}
	for rawPath, override := range c.Fallbacks {
		path, err := params.ParseBusinessPath(rawPath)
		if err != nil {
			continue
		}
		p := params.Parameters{
			BusinessPath:        path,
			CurrentInterestRate: override.CurrentInterestRate,
		}
		for rawStatus, pct := range override.PropertyOwnershipLTV {
			o := ltv.ParseOwnership(rawStatus)
			if !o.Known() || !ltv.ValidPercentage(pct) {
				continue
			}
			if p.PropertyOwnershipLTVs == nil {
				p.PropertyOwnershipLTVs = map[string]ltv.OwnershipLTV{}
			}
			p.PropertyOwnershipLTVs[string(o)] = ltv.OwnershipLTV{
				LTV:            pct,
				MinDownPayment: constants.PercentageMultiplier - pct,
			}
		}
		overrides[path] = p
	}
	return params.DefaultFallbacks().Merge(overrides)
}

// BusinessPath returns the configured default business path.
func (c *Configuration) BusinessPath() (params.BusinessPath, error) {
	return params.ParseBusinessPath(c.Parameters.BusinessPath)
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	if c.Parameters.SourceURL != "" {
		if err := validation.ValidateSourceURL(c.Parameters.SourceURL); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	if _, err := c.BusinessPath(); err != nil {
		warnings = append(warnings, fmt.Sprintf("parameters.businessPath: %v", err))
	}

	paths := make([]string, 0, len(c.Fallbacks))
	for rawPath := range c.Fallbacks {
		paths = append(paths, rawPath)
	}
	sort.Strings(paths)
	for _, rawPath := range paths {
		if _, err := params.ParseBusinessPath(rawPath); err != nil {
			warnings = append(warnings, fmt.Sprintf("fallbacks.%s: %v", rawPath, err))
			continue
		}
		override := c.Fallbacks[rawPath]
		if override.CurrentInterestRate < 0 {
			warnings = append(warnings, fmt.Sprintf("fallbacks.%s: negative interest rate %.2f is ignored", rawPath, override.CurrentInterestRate))
		}
		statuses := make([]string, 0, len(override.PropertyOwnershipLTV))
		for status := range override.PropertyOwnershipLTV {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			if !ltv.ParseOwnership(status).Known() {
				warnings = append(warnings, fmt.Sprintf("fallbacks.%s: unknown property ownership %q is ignored", rawPath, status))
				continue
			}
			if pct := override.PropertyOwnershipLTV[status]; !ltv.ValidPercentage(pct) {
				warnings = append(warnings, fmt.Sprintf("fallbacks.%s: LTV %.2f for %s is outside (0, 100] and is ignored", rawPath, pct, status))
			}
		}
		if len(override.PropertyOwnershipLTV) > 0 {
			if _, ok := override.PropertyOwnershipLTV[string(ltv.NoProperty)]; !ok {
				warnings = append(warnings, fmt.Sprintf("fallbacks.%s: no_property is not overridden; unknown statuses use the built-in %s ratio", rawPath, ltv.NoProperty))
			}
		}
	}

	return warnings
}

type watcher struct {
	logger *zap.Logger
	v      *viper.Viper
}

// Watch loads configPath and calls onChange with every successfully decoded
// revision of the file. Decoding failures are logged and onChange is not
// called for them.
func Watch(logger *zap.Logger, configPath string, onChange func(*Configuration)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file, %s", err)
	}
	if _, err := decode(v); err != nil {
		return err
	}

	w := &watcher{logger: logger, v: v}
	v.OnConfigChange(func(e fsnotify.Event) {
		w.reload(e, onChange)
	})
	v.WatchConfig()
	return nil
}

func (w *watcher) reload(e fsnotify.Event, onChange func(*Configuration)) {
	conf, err := decode(w.v)
	if err != nil {
		w.logger.Error("failed to reload configuration",
			zap.String("op", "config.watcher.reload"),
			zap.String("file", e.Name),
			zap.Error(err),
		)
		return
	}

	w.logger.Info("configuration reloaded",
		zap.String("op", "config.watcher.reload"),
		zap.String("file", e.Name),
		zap.String("event", e.Op.String()),
	)
	if onChange != nil {
		onChange(conf)
	}
}

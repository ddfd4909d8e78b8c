package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
)

const sampleConfig = `logging:
  level: debug
  format: console
output:
  format: csv
parameters:
  sourceUrl: http://localhost:3001/api
  timeout: 3s
  cacheTtl: 2m
  businessPath: credit
fallbacks:
  mortgage:
    currentInterestRate: 4.25
    propertyOwnershipLtv:
      has_property: 45
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Sample config",
			configPath: writeConfig(t, sampleConfig),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationValues(t *testing.T) {
	conf, err := LoadConfiguration(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" {
		t.Errorf("unexpected logging config: %+v", conf.Logging)
	}
	if conf.Output.Format != "csv" {
		t.Errorf("expected csv output, got %q", conf.Output.Format)
	}
	if conf.Parameters.SourceURL != "http://localhost:3001/api" {
		t.Errorf("unexpected source url %q", conf.Parameters.SourceURL)
	}
	if conf.Parameters.Timeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", conf.Parameters.Timeout)
	}
	if conf.Parameters.CacheTTL != 2*time.Minute {
		t.Errorf("expected 2m cache ttl, got %v", conf.Parameters.CacheTTL)
	}
	path, err := conf.BusinessPath()
	if err != nil || path != params.Credit {
		t.Errorf("expected credit business path, got %q (%v)", path, err)
	}
	if got := conf.Fallbacks["mortgage"].PropertyOwnershipLTV["has_property"]; got != 45 {
		t.Errorf("expected has_property override 45, got %v", got)
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	conf, err := LoadConfiguration(writeConfig(t, "logging:\n  level: info\n"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	want := Default()
	if conf.Output.Format != want.Output.Format {
		t.Errorf("expected default output %q, got %q", want.Output.Format, conf.Output.Format)
	}
	if conf.Parameters.Timeout != want.Parameters.Timeout {
		t.Errorf("expected default timeout %v, got %v", want.Parameters.Timeout, conf.Parameters.Timeout)
	}
	if conf.Parameters.CacheTTL != 5*time.Minute {
		t.Errorf("expected default cache ttl 5m, got %v", conf.Parameters.CacheTTL)
	}
	if conf.Parameters.BusinessPath != "mortgage" {
		t.Errorf("expected default business path mortgage, got %q", conf.Parameters.BusinessPath)
	}
}

func TestFallbackTable(t *testing.T) {
	conf := &Configuration{
		Fallbacks: map[string]FallbackOverride{
			"mortgage": {
				CurrentInterestRate: 4.25,
				PropertyOwnershipLTV: map[string]float64{
					"has_property": 45,
					"bogus":        10,
					"no_property":  120,
				},
			},
			"leasing": {CurrentInterestRate: 9},
		},
	}

	table := conf.FallbackTable()
	mortgage := table.For(params.Mortgage)

	if mortgage.CurrentInterestRate != 4.25 {
		t.Errorf("expected overridden rate 4.25, got %v", mortgage.CurrentInterestRate)
	}
	ratios := mortgage.Ratios()
	if got := ratios.Ratio(ltv.HasProperty); got != 0.45 {
		t.Errorf("expected has_property ratio 0.45, got %v", got)
	}
	if got := ratios.Ratio(ltv.NoProperty); got != 0.75 {
		t.Errorf("invalid override must keep no_property at 0.75, got %v", got)
	}
	if got := ratios.Ratio(ltv.SellingProperty); got != 0.70 {
		t.Errorf("expected selling_property untouched at 0.70, got %v", got)
	}
	if !mortgage.IsFallback {
		t.Error("fallback table entries must be flagged as fallback")
	}
	if got := table.For(params.Credit).CurrentInterestRate; got != 8.5 {
		t.Errorf("credit fallback must stay at 8.5, got %v", got)
	}
	if _, ok := table[params.BusinessPath("leasing")]; ok {
		t.Error("unknown business paths must be skipped")
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		conf     Configuration
		contains []string
	}{
		{
			name: "Clean configuration",
			conf: *Default(),
		},
		{
			name: "Bad output format",
			conf: Configuration{Output: OutputConfig{Format: "json"}},
			contains: []string{
				"expected output format of pretty or csv, got json",
			},
		},
		{
			name: "Bad source url and business path",
			conf: Configuration{Parameters: ParametersConfig{SourceURL: "localhost:3001", BusinessPath: "leasing"}},
			contains: []string{
				"source url",
				"parameters.businessPath",
			},
		},
		{
			name: "Bad fallbacks",
			conf: Configuration{Fallbacks: map[string]FallbackOverride{
				"leasing": {},
				"mortgage": {
					CurrentInterestRate:  -1,
					PropertyOwnershipLTV: map[string]float64{"renting": 60, "has_property": 0},
				},
			}},
			contains: []string{
				"fallbacks.leasing",
				"negative interest rate",
				`unknown property ownership "renting"`,
				"LTV 0.00 for has_property",
				"no_property is not overridden",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := tt.conf.ValidateConfiguration()
			if len(tt.contains) == 0 && len(warnings) != 0 {
				t.Fatalf("expected no warnings, got %v", warnings)
			}
			joined := strings.Join(warnings, "\n")
			for _, want := range tt.contains {
				if !strings.Contains(joined, want) {
					t.Errorf("expected warning containing %q, got %v", want, warnings)
				}
			}
		})
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	changes := make(chan *Configuration, 4)
	err := Watch(nil, path, func(c *Configuration) {
		changes <- c
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	updated := strings.Replace(sampleConfig, "format: csv", "format: pretty", 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Output.Format == "pretty" {
				if c.Fallbacks == nil {
					t.Errorf("reloaded configuration lost its fallbacks")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for configuration reload")
		}
	}
}

func TestWatchMissingFile(t *testing.T) {
	if err := Watch(nil, filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/iwvelando/ltvcalc/internal/config"
	"github.com/iwvelando/ltvcalc/internal/params"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// CLI override takes precedence
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Fail early if the file cannot be written.
		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

type rootOptions struct {
	configPath   string
	logLevel     string
	outputFormat string
}

// session is the state shared by the calculator subcommands.
type session struct {
	conf    *config.Configuration
	logger  *zap.Logger
	format  string
	service *params.Service
}

// loadConfig reads the client configuration. A missing default file is not
// an error; a missing file named with --config is.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	conf, err := config.LoadConfiguration(o.configPath)
	if err == nil {
		return conf, nil
	}
	if _, statErr := os.Stat(o.configPath); errors.Is(statErr, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("failed to load configuration at %s: %w", o.configPath, err)
}

func (o *rootOptions) newSession(cmd *cobra.Command) (*session, error) {
	conf, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := initializeLogger(conf.Logging, o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if o.outputFormat != "" {
		outputFormat = o.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return nil, err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.newSession"),
		)
	}

	var source params.Source
	if conf.Parameters.SourceURL != "" {
		source = params.NewClient(logger, conf.Parameters.SourceURL, conf.Parameters.Timeout)
	}
	service := params.NewService(logger, source, nil,
		params.WithTTL(conf.Parameters.CacheTTL),
		params.WithFallbacks(conf.FallbackTable()),
	)

	return &session{conf: conf, logger: logger, format: outputFormat, service: service}, nil
}

// businessPath resolves --business-path, falling back to the configured one.
func (s *session) businessPath(raw string) (params.BusinessPath, error) {
	if raw != "" {
		return params.ParseBusinessPath(raw)
	}
	return s.conf.BusinessPath()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ltvcalc",
		Short:         "Loan-to-value calculator for mortgage and credit applications",
		Long:          "ltvcalc computes financing bounds and down payments from the platform's calculation parameters, and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv")

	root.AddCommand(
		newBoundsCmd(opts),
		newSyncCmd(opts),
		newPaymentCmd(opts),
		newParamsCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"error\": %q}\n", err.Error())
		os.Exit(1)
	}
}

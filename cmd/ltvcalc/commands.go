package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/ltvcalc/internal/config"
	"github.com/iwvelando/ltvcalc/internal/server"
	"github.com/iwvelando/ltvcalc/internal/store"
	"github.com/iwvelando/ltvcalc/pkg/constants"
	"github.com/iwvelando/ltvcalc/pkg/loans"
	"github.com/iwvelando/ltvcalc/pkg/ltv"
	"github.com/iwvelando/ltvcalc/pkg/output"
	"github.com/iwvelando/ltvcalc/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const migrateTimeout = 30 * time.Second

func newBoundsCmd(opts *rootOptions) *cobra.Command {
	var (
		price        float64
		ownership    string
		businessPath string
	)

	cmd := &cobra.Command{
		Use:   "bounds",
		Short: "Show the maximum loan and down payment range for a property",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidatePrice(price); err != nil {
				return err
			}
			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = s.logger.Sync()
			}()
			if err := validation.ValidateOwnership(ownership); err != nil {
				s.logger.Warn("unknown ownership status, using the no_property ratio",
					zap.String("op", "main.bounds"),
					zap.String("ownership", ownership),
				)
			}
			path, err := s.businessPath(businessPath)
			if err != nil {
				return err
			}

			ratios := s.service.Ratios(cmd.Context(), path)
			bounds := ltv.ComputeBounds(price, ltv.ParseOwnership(ownership), ratios)
			switch s.format {
			case constants.OutputFormatCSV:
				output.CsvBounds(cmd.OutOrStdout(), bounds)
			default:
				output.PrettyBounds(cmd.OutOrStdout(), bounds)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&price, "price", 0, "price of the estate")
	cmd.Flags().StringVar(&ownership, "ownership", string(ltv.NoProperty), "property ownership: no_property, has_property, selling_property")
	cmd.Flags().StringVar(&businessPath, "business-path", "", "business path override (mortgage, credit, mortgage_refinance, credit_refinance)")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var (
		prior        ltv.Prior
		values       ltv.FormValues
		priorOwner   string
		owner        string
		businessPath string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Re-evaluate the initial fee after the ownership status or price changed",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, err := range []error{
				validation.ValidatePrice(values.PriceOfEstate),
				validation.ValidateInitialFee(values.InitialFee),
			} {
				if err != nil {
					return err
				}
			}
			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = s.logger.Sync()
			}()
			path, err := s.businessPath(businessPath)
			if err != nil {
				return err
			}

			prior.PropertyOwnership = ltv.ParseOwnership(priorOwner)
			values.PropertyOwnership = ltv.ParseOwnership(owner)
			result := ltv.Reduce(prior, values, s.service.Ratios(cmd.Context(), path))
			switch s.format {
			case constants.OutputFormatCSV:
				output.CsvSync(cmd.OutOrStdout(), result)
			default:
				output.PrettySync(cmd.OutOrStdout(), result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&priorOwner, "prior-ownership", "", "ownership status before the change")
	cmd.Flags().Float64Var(&prior.PriceOfEstate, "prior-price", 0, "price of the estate before the change")
	cmd.Flags().StringVar(&owner, "ownership", "", "current ownership status")
	cmd.Flags().Float64Var(&values.PriceOfEstate, "price", 0, "current price of the estate")
	cmd.Flags().Float64Var(&values.InitialFee, "fee", 0, "current initial fee")
	cmd.Flags().StringVar(&businessPath, "business-path", "", "business path override")
	return cmd
}

func newPaymentCmd(opts *rootOptions) *cobra.Command {
	var (
		price        float64
		fee          float64
		term         int
		rate         float64
		businessPath string
	)

	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Compute the monthly mortgage payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := []error{
				validation.ValidatePrice(price),
				validation.ValidateInitialFee(fee),
				validation.ValidateTerm(term),
			}
			if cmd.Flags().Changed("rate") {
				checks = append(checks, validation.ValidateRate(rate))
			}
			for _, err := range checks {
				if err != nil {
					return err
				}
			}
			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = s.logger.Sync()
			}()

			if !cmd.Flags().Changed("rate") {
				path, err := s.businessPath(businessPath)
				if err != nil {
					return err
				}
				rate = s.service.CurrentRate(cmd.Context(), path)
			}

			quote := loans.BuildQuote(price, fee, rate, term)
			switch s.format {
			case constants.OutputFormatCSV:
				output.CsvPayment(cmd.OutOrStdout(), quote)
			default:
				output.PrettyPayment(cmd.OutOrStdout(), quote)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&price, "price", 0, "price of the estate")
	cmd.Flags().Float64Var(&fee, "fee", 0, "initial fee (down payment)")
	cmd.Flags().IntVar(&term, "term", 20, "loan term in years")
	cmd.Flags().Float64Var(&rate, "rate", 0, "annual interest rate in percent (default: current rate from parameters)")
	cmd.Flags().StringVar(&businessPath, "business-path", "", "business path override")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newParamsCmd(opts *rootOptions) *cobra.Command {
	var businessPath string

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show the calculation parameters in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = s.logger.Sync()
			}()
			path, err := s.businessPath(businessPath)
			if err != nil {
				return err
			}

			p := s.service.Parameters(cmd.Context(), path)
			switch s.format {
			case constants.OutputFormatCSV:
				output.CsvParameters(cmd.OutOrStdout(), p)
			default:
				output.PrettyParameters(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&businessPath, "business-path", "", "business path override")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		serverConfigPath string
		address          string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Address = address
			}
			logger, err := initializeLogger(cfg.Logging, opts.logLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			conf, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.NewApp(ctx, logger, cfg, conf.FallbackTable(), version)
			if err != nil {
				return err
			}

			if _, statErr := os.Stat(opts.configPath); statErr == nil {
				if err := config.Watch(logger, opts.configPath, func(c *config.Configuration) {
					app.Service().SetFallbacks(c.FallbackTable())
				}); err != nil {
					logger.Warn("configuration hot reload disabled",
						zap.String("op", "main.serve"),
						zap.Error(err),
					)
				}
			}

			return app.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var (
		serverConfigPath string
		dsn              string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create and seed the banking_standards table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				cfg, err := server.LoadConfig(serverConfigPath)
				if err != nil {
					return err
				}
				dsn = cfg.Database.DSN
			}
			if dsn == "" {
				return errors.New("no database DSN: pass --dsn or set database.dsn in the server configuration")
			}
			conf, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
			defer cancel()

			db, err := store.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer func() {
				_ = db.Close()
			}()

			seeded, err := store.NewRepository(db).EnsureSchema(ctx, conf.FallbackTable())
			if err != nil {
				return err
			}
			if seeded == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "banking_standards already populated")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d banking standards\n", seeded)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres DSN override")
	return cmd
}

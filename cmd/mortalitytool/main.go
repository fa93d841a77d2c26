package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mortalitytool/internal/api"
	"mortalitytool/internal/config"
	"mortalitytool/internal/pipeline"
	"mortalitytool/internal/refdata"
	"mortalitytool/internal/report"
	"mortalitytool/internal/source"
	"mortalitytool/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mortalitytool",
		Short:         "Reconcile mortality extracts into death count and cause-of-death reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "env file with configuration overrides")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(weeklyCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the process logger.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return cfg, logger, nil
}

func newRunner(cfg *config.Config, logger zerolog.Logger) (*pipeline.Runner, error) {
	ref, err := refdata.Load(cfg.RegionFile, cfg.OverrideFile)
	if err != nil {
		return nil, err
	}
	src := source.DirSources{Root: cfg.DataFolder, Logger: logger}
	opts := pipeline.Options{Join: pipeline.JoinOptions{Strict: cfg.StrictJoin}}
	return pipeline.NewRunner(src, ref, opts, logger), nil
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store.Store, func(), error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("connected to database")
	return store.New(pool, logger), pool.Close, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the joined table, aggregates and (optionally) a weekly roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			week, _ := cmd.Flags().GetInt("week")
			saveToStore, _ := cmd.Flags().GetBool("store")
			applyOverrides(cmd, cfg)

			formats, err := report.ParseFormats(cfg.OutputFormats)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			runner, err := newRunner(cfg, logger)
			if err != nil {
				return err
			}
			res, err := runner.Run(ctx, pipeline.Request{Week: week})
			if err != nil {
				return err
			}

			paths, err := report.WriteResult(cfg.OutputDir, res, formats)
			if err != nil {
				return err
			}
			for _, p := range paths {
				logger.Info().Str("path", p).Msg("wrote")
			}

			if saveToStore {
				s, closePool, err := openStore(ctx, cfg, logger)
				if err != nil {
					return err
				}
				defer closePool()
				if err := s.Migrate(ctx); err != nil {
					return err
				}
				if err := s.SaveResult(ctx, res); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("week", 0, "ISO week (1-53) for the weekly death roster; 0 skips it")
	cmd.Flags().Bool("store", false, "also save the run to the report database")
	addOutputFlags(cmd)
	return cmd
}

func weeklyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Write only the weekly death roster for one ISO week",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			week, _ := cmd.Flags().GetInt("week")
			if week < 1 || week > 53 {
				return fmt.Errorf("--week must be in 1..53, got %d", week)
			}
			applyOverrides(cmd, cfg)

			formats, err := report.ParseFormats(cfg.OutputFormats)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			runner, err := newRunner(cfg, logger)
			if err != nil {
				return err
			}
			res, err := runner.Run(ctx, pipeline.Request{Week: week})
			if err != nil {
				return err
			}

			paths, err := report.WriteWeekly(cfg.OutputDir, res, formats)
			if err != nil {
				return err
			}
			for _, p := range paths {
				logger.Info().Str("path", p).Int("rows", len(res.Weekly)).Msg("wrote")
			}
			return nil
		},
	}
	cmd.Flags().Int("week", 0, "ISO week (1-53)")
	cmd.MarkFlagRequired("week")
	addOutputFlags(cmd)
	return cmd
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the report database schema, or apply it with --apply",
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, _ := cmd.Flags().GetBool("apply")
			if !apply {
				fmt.Fprint(cmd.OutOrStdout(), store.Schema)
				return nil
			}

			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			s, closePool, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closePool()
			if err := s.Migrate(ctx); err != nil {
				return err
			}
			logger.Info().Msg("schema applied")
			return nil
		},
	}
	cmd.Flags().Bool("apply", false, "create the report tables in DATABASE_URL")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest stored report over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			s, closePool, err := openStore(context.Background(), cfg, logger)
			if err != nil {
				return err
			}
			defer closePool()

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(echomw.Recover())
			e.Use(echomw.RequestID())
			e.Use(api.RequestLogger(logger))
			api.NewHandler(s, logger).RegisterRoutes(e)

			errCh := make(chan error, 1)
			go func() {
				addr := ":" + cfg.Port
				logger.Info().Str("addr", addr).Msg("starting server")
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			ctx, cancel := signalContext()
			defer cancel()
			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down server")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			if err := e.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("data", "", "data folder (overrides DATA_FOLDER)")
	cmd.Flags().String("out", "", "output directory (overrides OUTPUT_DIR)")
	cmd.Flags().String("format", "", "comma separated output formats: csv, parquet, xlsx (overrides OUTPUT_FORMATS)")
	cmd.Flags().Bool("lenient-join", false, "fan out duplicate right-hand matches instead of failing")
}

// applyOverrides lets explicit flags win over configuration.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("data"); v != "" {
		cfg.DataFolder = v
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		cfg.OutputFormats = v
	}
	if v, _ := cmd.Flags().GetBool("lenient-join"); v {
		cfg.StrictJoin = false
	}
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/inovacc/recstore/internal/application"
	"github.com/inovacc/recstore/internal/config"
	"github.com/inovacc/recstore/internal/metrics"
	"github.com/spf13/cobra"
)

// session holds what every command needs once flags and config are resolved.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

var current *session

var rootCmd = &cobra.Command{
	Use:   application.AppName,
	Short: "A transactional keyed-record store",
	Long: `Recstore keeps JSON records in named collections inside a single
database file. Every command runs one action in its own transaction and only
reports success once that transaction has committed.

Configuration is read from config.ini in the application directory
($RECSTORE_HOME, or ~/.config/recstore) unless --config points elsewhere.
Flags override file values.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		current = s
		slog.SetDefault(s.logger)

		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetRootCmd returns the root command for introspection purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is config.ini in the application directory)")
	flags.String("db", "", "database file (overrides [database] path)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("metrics-file", "", "write Prometheus metrics to this file after the command")
}

func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	if path == "" {
		def, err := application.DefaultConfigPath()
		if err != nil {
			return nil, err
		}

		path = def
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v, _ := flags.GetString("db"); v != "" {
		cfg.Database.Path = v
	}

	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}

	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &session{
		cfg:     cfg,
		logger:  cfg.NewLogger(cmd.ErrOrStderr()),
		metrics: metrics.New(),
	}, nil
}

// flushMetrics writes the metrics file when --metrics-file is set. It runs
// after failed commands too.
func flushMetrics(cmd *cobra.Command) {
	path, _ := cmd.Flags().GetString("metrics-file")
	if path == "" || current == nil {
		return
	}

	if err := current.metrics.WriteTextfile(path); err != nil {
		current.logger.Warn("failed to write metrics", "path", path, "error", err)
	}
}

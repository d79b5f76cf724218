package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/datasmiths/tabinspect/internal/config"
	"github.com/datasmiths/tabinspect/internal/logger"
	"github.com/datasmiths/tabinspect/internal/metrics"
	"github.com/datasmiths/tabinspect/pkg/check"
)

// Set at release time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfgFile string

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

// newRootCmd wires up the CLI. Kept separate from main so tests can execute
// commands in-process instead of spawning a subprocess.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tabinspect",
		Short: "Run data-quality checks against tabular datasets",
		Long: `tabinspect applies configured data-quality checks to CSV datasets, samples
the failing rows, and routes results to console, log-file, fail-sample and
chat-webhook sinks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSuite,
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"suite file (default tabinspect.yaml, or TABINSPECT_CONFIG)")

	root.AddCommand(newRunCmd(), newWatchCmd(), newChecksCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the suite once (same as running without a subcommand)",
		RunE:  runSuite,
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the suite on an interval and on dataset file changes",
		RunE:  runWatch,
	}
}

func newChecksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checks",
		Short: "List the registered check types",
		Run: func(cmd *cobra.Command, args []string) {
			for _, n := range check.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tabinspect %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// loadSuite loads the suite file named by --config (or its fallbacks), points
// logging at the configured level, and registers the Prometheus collectors.
// Every check-running subcommand starts here.
func loadSuite() (*config.Config, error) {
	cfg, err := config.Load(config.ConfigPath(cfgFile))
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	initLogging(cfg.LogLevel, cfg.LogFormat)
	metrics.Register()
	return cfg, nil
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// initLogging points the global zerolog logger at stderr through the redacting
// writer. Unknown level names fall back to info.
func initLogging(level string, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	out := logger.NewRedactWriter(os.Stderr)
	if format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}

	lvl, ok := logLevels[level]
	if !ok {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

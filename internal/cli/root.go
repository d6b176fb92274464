// Package cli implements the marketmind command line.
package cli

import (
	"os"

	"github.com/soyeahso/marketmind/internal/config"
	"github.com/soyeahso/marketmind/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marketmind",
		Short: "marketmind: market data agent",
		Long:  "marketmind answers questions about crypto, stocks and financial news, grounded in live market data.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			log = newLogger(logLevel, "")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.marketmind/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newPluginsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// newLogger builds the root logger. The --log-level flag wins over the
// configured level.
func newLogger(level, style string) *logging.Logger {
	if logLevel != "" {
		level = logLevel
	}
	return logging.NewStderr(style, level)
}

// loadConfig loads and validates the config file and re-creates the logger
// from its logging section.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	log = newLogger(cfg.Logging.Level, cfg.Logging.ConsoleStyle)
	if err := checkConfig(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
	}
	return err
}

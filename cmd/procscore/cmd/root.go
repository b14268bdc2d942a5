package cmd

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	"github.com/spf13/cobra"

	"github.com/srodi/procscore/pkg/config"
	"github.com/srodi/procscore/pkg/logger"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "procscore",
	Short: "Score running processes by behavior",
	Long: `procscore samples the live process table and folds CPU, memory, context
switches, I/O, sockets and scheduling priority into a risk score and a
Low / Medium / High tier.

Commands:
  report   Print one scored report
  watch    Refresh the report periodically and log risky processes
  serve    Expose reports, host facts and metrics over HTTP
  facts    Print a short host summary`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log, err = logger.New(cfg.Log, os.Stderr)
		if err != nil {
			return errors.WrapIf(err, "invalid log level")
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log != nil {
			return log.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	rootCmd.AddCommand(newReportCmd(), newWatchCmd(), newServeCmd(), newFactsCmd())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command zone5 ingests heart rate samples, keeps the daily Zone 5 record
// and renders it as a contribution graph.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/zone5/internal/config"
	"github.com/sweeney/zone5/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string

	cfg      *config.Config
	log      *slog.Logger
	logClose io.Closer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "zone5",
		Short:         "Track minutes spent in heart rate Zone 5",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default is .zone5.yaml in the working directory or $HOME)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(serveCmd(a))
	root.AddCommand(monitorCmd(a))
	root.AddCommand(importCmd(a))
	root.AddCommand(statsCmd(a))
	root.AddCommand(renderCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}

	logger, closer, err := logging.Open(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.cfg, a.log, a.logClose = cfg, logger, closer
	return nil
}

func (a *app) close() error {
	if a.logClose == nil {
		return nil
	}
	return a.logClose.Close()
}

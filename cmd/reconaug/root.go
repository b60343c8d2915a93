package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hakim/reconaug/internal/config"
	"github.com/hakim/reconaug/internal/logging"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	cfg     *config.Config
	logger  *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reconaug",
	Short: "Subdomain discovery, live host probing and on-demand recon",
	Long: `ReconAug aggregates subdomains from command-line tools (subfinder,
sublist3r) and passive web APIs (crt.sh, AlienVault OTX, Chaos,
HackerTarget), probes which of them answer over HTTP, and persists the
results. Port scans (naabu) and historical URL collection (gau, Wayback
Machine) run on demand against single targets.

Run 'reconaug serve' for the HTTP API with live progress streams, or use
the scan, ports and urls commands directly from the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
		}

		if skipConfig[cmd.Name()] {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: search for reconaug.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "plain tables without borders or colors")

	rootCmd.Version = "0.1.0-dev"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// Command noticepanel collects admin notices into a panel.
//
// Usage:
//
//	noticepanel serve                      # persistence service
//	noticepanel scan page.html -f markdown # one-shot digest of a saved page
//	noticepanel watch https://site/wp-admin/ --mcp
//	noticepanel token -u 1 -r administrator
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/noticepanel/config"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "noticepanel",
	Short: "Gather admin notices into a triage panel",
	Long: `noticepanel scans admin pages for notices, moves them into a single
panel with filters and an archive, and persists dismissals per user
through a small HTTP service.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "noticepanel.yml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and installs the JSON logger on stderr, leaving
// stdout to command output.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// Package main provides the IntelliDoc CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/intellidoc/internal/config"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

var (
	cfgFile    string
	outputJSON bool
	verbose    bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "intellidoc-cli",
	Short: "IntelliDoc CLI for document processing and job inspection",
	Long: `IntelliDoc CLI processes documents through the classification,
extraction, and validation pipeline.

Use this tool to:
- Process a local file or URL synchronously
- Poll the status of a running job
- Fetch the full result of a finished job
- Inspect the document-type catalog

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		level := cfg.Observability.LogLevel
		if outputJSON {
			logFormat = "json"
		}
		if !verbose {
			level = "warn"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      logFormat,
			ServiceName: "intellidoc-cli",
		})

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newResultCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

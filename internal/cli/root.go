// Package cli provides the command-line interface for cgcompare.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yumyai/cgcompare/internal/config"
	"github.com/yumyai/cgcompare/internal/util"
	"github.com/yumyai/cgcompare/logger"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	logLevel string
	envFiles []string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cgcompare",
	Short: "Comparative genomics over cgMLST datasets",
	Long: `cgcompare answers comparative questions over per-species cgMLST datasets:
nearest neighbours by allele distance, allele profile lookups and diffs, and
phylogenetic trees built by an external tree builder.

Run "cgcompare serve" for the HTTP service, or use the query commands for
one-shot answers on the command line.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if !config.LoadEnv(envFiles...) {
			logger.Warn("No .env found, using local environment")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = cfg.LogLevel
		}
		return logger.InitLogger(logger.ParseLevel(logLevel))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load (default .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(neighborsCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(bifrostCmd)
}

// speciesConfig finds the configured species, accepting spaces for underscores.
func speciesConfig(name string) (config.Species, error) {
	want := util.NormalizeSpecies(name)
	for _, sp := range cfg.Species {
		if sp.Name == want {
			return sp, nil
		}
	}
	return config.Species{}, fmt.Errorf("species '%s' is not configured in %s", want, cfg.ConfigFile)
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stackvity/astro-tally/internal/cli"
	"github.com/stackvity/astro-tally/internal/cli/config"
	"github.com/stackvity/astro-tally/pkg/scanner"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile     string
	profileName string
)

var rootCmd = &cobra.Command{
	Use:   "astro-tally -l <wbpp-session.log>",
	Short: "Tallies light frames from a PixInsight WBPP session log.",
	Long: `astro-tally reads the session log produced by PixInsight's Weighted Batch
Preprocessing script, finds the image files the pipeline registered, and
counts the light frames per date, filter, exposure, binning and gain.

The result is written as a CSV ready for AstroBin's acquisition importer.
Both XISF and FITS frames are supported; only a bounded header prefix of
each file is read, so large sessions scan quickly.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, profileName, version, cmd.Flags())
		if err != nil {
			return err
		}

		// The TUI needs a real terminal; fall back to the progress bar or
		// plain logs otherwise.
		if opts.TuiEnabled && (!term.IsTerminal(int(os.Stderr.Fd())) || opts.Verbose) {
			opts.TuiEnabled = false
		}

		return cli.Run(ctx, opts, logger)
	},
}

// Execute runs the root command. Cobra prints any returned error and the
// process exits non-zero.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default searches ., $HOME/.config/astro-tally/)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	rootCmd.Flags().StringP("log", "l", "", "Required. Path to the WBPP session log.")
	_ = rootCmd.MarkFlagRequired("log")

	rootCmd.Flags().StringP("output", "o", "", "Output CSV path (default: astrobin_import.csv next to the log)")
	rootCmd.Flags().IntP("bortle", "b", scanner.DefaultBortle, "Bortle sky quality value stamped on every row (1-9)")
	rootCmd.Flags().Bool("no-tui", false, "Disable the interactive terminal UI even in a TTY")
	rootCmd.Flags().Int("concurrency", scanner.DefaultConcurrency, "Number of parallel classification workers")
	rootCmd.Flags().Int("header-window", scanner.DefaultHeaderWindowBytes, "Bytes of each file read for header extraction")
	rootCmd.Flags().String("header-encoding", "", `Charset for decoding headers (default "latin-1")`)
	rootCmd.Flags().Bool("cache", false, "Enable the classification cache for faster re-runs")
	rootCmd.Flags().Bool("clear-cache", false, "Discard any existing classification cache before the run")
	rootCmd.Flags().String("output-format", string(scanner.OutputFormatText), `Final summary format ("text", "json")`)
}

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	namespace   string
	selector    string
	concurrency int
	logLevel    string
	logFormat   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "Keeper namespace: route prefix and controller filter")
	rootCmd.PersistentFlags().StringVar(&selector, "select", "", "JSONPath selecting controllers in .json files (default \"$.controllers[*]\")")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Files parsed at once (0 = number of CPUs)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}

var rootCmd = &cobra.Command{
	Use:   "keeper",
	Short: "Keeper: sitemap assembly for an administrative panel",
	Long: `Keeper reads controller declarations (HCL, YAML, JSON, SQLite or Go
source comments) and assembles the navigation sitemap of the panel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd.ErrOrStderr(), logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// newLogger builds the process logger. Logs always go to w (stderr), never
// to the command output.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid --log-format %q (want text or json)", format)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

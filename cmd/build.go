package cmd

import (
	"github.com/agentic-research/keeper/internal/render"
	"github.com/spf13/cobra"
)

var buildFormat string

var buildCmd = &cobra.Command{
	Use:   "build [paths...]",
	Short: "Assemble the sitemap and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(buildFormat)
		if err != nil {
			return err
		}
		paths, err := declarationPaths(args)
		if err != nil {
			return err
		}
		sm, _, err := buildSitemap(cmd.Context(), paths)
		if err != nil {
			return err
		}
		return render.Sitemap(cmd.OutOrStdout(), sm.Store(), format)
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildFormat, "format", "f", "tree", "Output format: tree, table or json")
	rootCmd.AddCommand(buildCmd)
}

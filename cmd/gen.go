package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/agentic-research/keeper/internal/codegen"
	"github.com/spf13/cobra"
)

var (
	genPackage string
	genVar     string
	genOutput  string
)

var genCmd = &cobra.Command{
	Use:   "gen [paths...]",
	Short: "Generate a Go registry holding the declarations",
	Long: `Gen loads the declarations, checks that they assemble into a sitemap and
writes them out as a gofumpt-formatted Go file defining an *api.Declarations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := declarationPaths(args)
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cmd.Context(), paths)
		if err != nil {
			return err
		}
		// Only declarations that assemble are worth shipping.
		if _, _, err := assemble(catalog); err != nil {
			return err
		}

		src, err := codegen.Generate(catalog.Declarations(), codegen.Options{Package: genPackage, Var: genVar})
		if err != nil {
			return err
		}
		if genOutput == "" || genOutput == "-" {
			_, err = cmd.OutOrStdout().Write(src)
			return err
		}
		if err := os.WriteFile(genOutput, src, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", genOutput, err)
		}
		slog.Info("registry written", "path", genOutput, "controllers", catalog.Len())
		return nil
	},
}

func init() {
	genCmd.Flags().StringVar(&genPackage, "package", "registry", "Package name of the generated file")
	genCmd.Flags().StringVar(&genVar, "var", "Declarations", "Name of the generated variable")
	genCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(genCmd)
}

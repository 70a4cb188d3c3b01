package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/agentic-research/keeper/internal/linter"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"
)

var lintStrict bool

var lintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Report declarations that assemble but probably do not do what was meant",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := declarationPaths(args)
		if err != nil {
			return err
		}
		loader := newLoader()
		files, err := loader.Files(paths...)
		if err != nil {
			return err
		}

		var diags []linter.Diagnostic
		for _, f := range files {
			if filepath.Ext(f) != ".go" {
				continue
			}
			content, err := util.ReadFile(loader.FS, f)
			if err != nil {
				return err
			}
			d, err := linter.LintGo(f, content)
			if err != nil {
				return fmt.Errorf("lint %s: %w", f, err)
			}
			diags = append(diags, d...)
		}

		catalog, err := loader.Load(cmd.Context(), paths...)
		if err != nil {
			return fmt.Errorf("load declarations: %w", err)
		}
		_, res, err := assemble(catalog)
		if err != nil {
			return err
		}
		diags = append(diags, linter.Lint(catalog.Declarations(), res)...)

		warnings := 0
		for _, d := range diags {
			if d.Severity == linter.Warning {
				warnings++
			}
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		if lintStrict && warnings > 0 {
			return fmt.Errorf("%d warning(s)", warnings)
		}
		return nil
	},
}

func init() {
	lintCmd.Flags().BoolVar(&lintStrict, "strict", false, "Exit non-zero when any warning is reported")
	rootCmd.AddCommand(lintCmd)
}

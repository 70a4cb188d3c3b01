package cmd

import (
	"github.com/agentic-research/keeper/internal/render"
	"github.com/spf13/cobra"
)

var (
	routesFormat      string
	routesPermissions bool
)

var routesCmd = &cobra.Command{
	Use:   "routes [paths...]",
	Short: "List every action method with its route and permission",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(routesFormat)
		if err != nil {
			return err
		}
		paths, err := declarationPaths(args)
		if err != nil {
			return err
		}
		sm, res, err := buildSitemap(cmd.Context(), paths)
		if err != nil {
			return err
		}
		if routesPermissions {
			return render.Permissions(cmd.OutOrStdout(), sm.Store())
		}
		return render.Routes(cmd.OutOrStdout(), res.Methods, format)
	},
}

func init() {
	routesCmd.Flags().StringVarP(&routesFormat, "format", "f", "table", "Output format: table or json")
	routesCmd.Flags().BoolVar(&routesPermissions, "permissions", false, "List permissions with the nodes they guard instead")
	rootCmd.AddCommand(routesCmd)
}

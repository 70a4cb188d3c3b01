package cmd

import (
	"context"
	"log/slog"

	"github.com/agentic-research/keeper/internal/graph"
	"github.com/agentic-research/keeper/internal/ingest"
	"github.com/agentic-research/keeper/internal/mcpserver"
	"github.com/agentic-research/keeper/internal/watch"
	"github.com/spf13/cobra"
)

// Version is reported to MCP clients.
var Version = "dev"

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve [paths...]",
	Short: "Serve the sitemap to MCP clients over stdio",
	Long: `Serve assembles the sitemap from the declarations under paths and exposes
it as MCP tools over stdio. With --watch the sitemap is rebuilt when a
declaration file changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := declarationPaths(args)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sm, res, err := buildSitemap(ctx, paths)
		if err != nil {
			return err
		}
		hot := graph.NewHotSwapGraph(sm.Store())
		slog.Info("sitemap ready", "build", res.BuildID, "nodes", sm.Store().Len())

		if serveWatch {
			w := &watch.Watcher{
				Roots:    paths,
				Filter:   ingest.Supported,
				OnChange: func(ctx context.Context) { rebuild(ctx, paths, hot) },
				Logger:   slog.Default(),
			}
			go func() {
				if err := w.Run(ctx); err != nil {
					slog.Error("watcher stopped", "error", err)
				}
			}()
		}

		return mcpserver.New(hot, Version, slog.Default()).ServeStdio()
	},
}

// rebuild swaps in a freshly assembled sitemap. A failed build keeps the
// previous one.
func rebuild(ctx context.Context, paths []string, hot *graph.HotSwapGraph) {
	sm, res, err := buildSitemap(ctx, paths)
	if err != nil {
		slog.Error("rebuild failed, keeping previous sitemap", "error", err)
		return
	}
	hot.Swap(sm.Store())
	slog.Info("sitemap rebuilt", "build", res.BuildID, "generation", hot.Generation(), "nodes", sm.Store().Len())
}

func init() {
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Rebuild when declaration files change")
	rootCmd.AddCommand(serveCmd)
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/agentic-research/keeper/internal/assembler"
	"github.com/agentic-research/keeper/internal/ingest"
	"github.com/agentic-research/keeper/internal/sitemap"
	"github.com/go-git/go-billy/v5/osfs"
)

// declarationPaths resolves the positional arguments, defaulting to the
// working directory.
func declarationPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	paths := make([]string, len(args))
	for i, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		paths[i] = abs
	}
	return paths, nil
}

func newLoader() *ingest.Loader {
	loader := ingest.NewLoader(osfs.New("/"))
	loader.Selector = selector
	loader.Concurrency = concurrency
	loader.Logger = slog.Default()
	return loader
}

func loadCatalog(ctx context.Context, paths []string) (*ingest.Catalog, error) {
	catalog, err := newLoader().Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("load declarations: %w", err)
	}
	return catalog, nil
}

// buildSitemap loads the declarations under paths and assembles a fresh
// sitemap from them.
func buildSitemap(ctx context.Context, paths []string) (*sitemap.Sitemap, *assembler.Result, error) {
	catalog, err := loadCatalog(ctx, paths)
	if err != nil {
		return nil, nil, err
	}
	return assemble(catalog)
}

func assemble(catalog *ingest.Catalog) (*sitemap.Sitemap, *assembler.Result, error) {
	sm := sitemap.New(namespace)
	a := &assembler.Assembler{
		Namespace: namespace,
		Locator:   catalog,
		Reader:    catalog,
		Logger:    slog.Default(),
	}
	res, err := a.Build(sm)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble sitemap: %w", err)
	}
	return sm, res, nil
}

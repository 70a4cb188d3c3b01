package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/agentic-research/keeper/api"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"
)

// Loader reads declaration files from a billy filesystem into a Catalog.
//
// Supported extensions: .hcl, .json, .yaml/.yml, .db (SQLite) and .go.
// Other files are skipped. Data files contribute their controllers in sorted
// path order; the Go files form a single source whose controllers come last.
type Loader struct {
	FS billy.Filesystem
	// Selector is the JSONPath used on .json files. Empty means DefaultSelector.
	Selector string
	// Concurrency bounds the number of files parsed at once. Zero means
	// runtime.NumCPU.
	Concurrency int
	Logger      *slog.Logger
}

func NewLoader(fsys billy.Filesystem) *Loader {
	return &Loader{FS: fsys}
}

type loaded struct {
	path  string
	decls *api.Declarations
	src   []byte // Go source, parsed after all files are read
}

// Load reads every supported file under paths. A path may name a file or a
// directory.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Catalog, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	files, err := l.discover(paths)
	if err != nil {
		return nil, err
	}

	results := make([]loaded, len(files))
	g, gctx := errgroup.WithContext(ctx)
	n := l.Concurrency
	if n <= 0 {
		n = runtime.NumCPU()
	}
	g.SetLimit(n)
	for i, path := range files {
		g.Go(func() error {
			r, err := l.loadFile(gctx, path)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog := NewCatalog()
	gosrc := NewGoSource()
	goFiles := 0
	for _, r := range results {
		if r.src != nil {
			if err := gosrc.Parse(ctx, r.path, r.src); err != nil {
				return nil, err
			}
			goFiles++
			continue
		}
		logger.Debug("declarations loaded", "path", r.path, "controllers", len(r.decls.Controllers))
		catalog.Add(r.decls)
	}
	if goFiles > 0 {
		decls, err := gosrc.Declarations()
		if err != nil {
			return nil, err
		}
		logger.Debug("go declarations loaded", "files", goFiles, "controllers", len(decls.Controllers))
		catalog.Add(decls)
	}
	logger.Info("catalog loaded", "files", len(files), "controllers", catalog.Len())
	return catalog, nil
}

// Supported reports whether path has an extension the loader reads.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl", ".json", ".yaml", ".yml", ".db", ".go":
		return !strings.HasSuffix(path, "_test.go")
	}
	return false
}

// Files lists the supported files under paths in load order, without
// reading them.
func (l *Loader) Files(paths ...string) ([]string, error) {
	return l.discover(paths)
}

func (l *Loader) discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, root := range paths {
		info, err := l.FS.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = util.Walk(l.FS, root, func(p string, fi fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				if p != root && strings.HasPrefix(fi.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if Supported(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	slices.Sort(files)
	return files, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (loaded, error) {
	r := loaded{path: path}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".db" {
		decls, err := l.loadSQLite(ctx, path)
		if err != nil {
			return r, err
		}
		r.decls = decls
		return r, nil
	}

	content, err := util.ReadFile(l.FS, path)
	if err != nil {
		return r, fmt.Errorf("read %s: %w", path, err)
	}
	switch ext {
	case ".go":
		r.src = content
		if r.src == nil {
			r.src = []byte{}
		}
		return r, nil
	case ".hcl":
		r.decls, err = ParseHCL(path, content)
	case ".json":
		r.decls, err = ParseJSON(content, l.Selector)
	case ".yaml", ".yml":
		r.decls, err = ParseYAML(content)
	default:
		return r, fmt.Errorf("unsupported declaration file %s", path)
	}
	if err != nil {
		return r, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// loadSQLite opens the database in place when the filesystem is backed by the
// OS, and through a temporary copy otherwise.
func (l *Loader) loadSQLite(ctx context.Context, path string) (*api.Declarations, error) {
	onDisk := filepath.Join(l.FS.Root(), path)
	if fi, err := os.Stat(onDisk); err == nil && !fi.IsDir() {
		return ParseSQLite(ctx, onDisk)
	}

	content, err := util.ReadFile(l.FS, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	tmp, err := os.CreateTemp("", "keeper-*.db")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	decls, err := ParseSQLite(ctx, tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return decls, nil
}

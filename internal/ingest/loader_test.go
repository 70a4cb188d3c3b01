package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func controllerNames(c *Catalog) []string {
	var names []string
	for _, ctrl := range c.Declarations().Controllers {
		names = append(names, ctrl.Name)
	}
	return names
}

func TestLoader_MixedFormats(t *testing.T) {
	fs := memfs.New()
	write := func(path, content string) {
		require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
	}
	write("decls/a.hcl", `controller "HclController" {}`)
	write("decls/b.json", `{"controllers":[{"class":"JsonController"}]}`)
	write("decls/c.yaml", "controllers:\n  - class: YamlController\n")
	write("decls/ctrl/users.go", "package ctrl\n\n// keeper:controller\ntype GoController struct{}\n")
	write("decls/ctrl/users_test.go", "package ctrl\n\n// keeper:controller\ntype TestOnly struct{}\n")
	write("decls/README.md", "# not a declaration file")
	write("decls/.cache/x.json", `{"controllers":[{"class":"Hidden"}]}`)

	db, err := os.ReadFile(createTestDB(t, []string{`{"class":"SqliteController"}`}))
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(fs, "decls/d.db", db, 0o644))

	catalog, err := NewLoader(fs).Load(context.Background(), "decls")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"HclController",
		"JsonController",
		"YamlController",
		"SqliteController",
		"GoController",
	}, controllerNames(catalog))
}

func TestLoader_SingleFileAndDuplicatePaths(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "one.yaml", []byte("controllers:\n  - class: One\n"), 0o644))

	catalog, err := NewLoader(fs).Load(context.Background(), "one.yaml", "one.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"One"}, controllerNames(catalog))
}

func TestLoader_Selector(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "app.json", []byte(`{"app":{"controllers":[{"class":"Nested"}]}}`), 0o644))

	l := NewLoader(fs)
	l.Selector = "$.app.controllers[*]"
	catalog, err := l.Load(context.Background(), "app.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"Nested"}, controllerNames(catalog))
}

func TestLoader_OSFilesystem(t *testing.T) {
	dir := t.TempDir()
	dbPath := createTestDB(t, []string{`{"class":"OnDisk"}`})
	content, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decls.db"), content, 0o644))

	catalog, err := NewLoader(osfs.New(dir)).Load(context.Background(), ".")
	require.NoError(t, err)
	assert.Equal(t, []string{"OnDisk"}, controllerNames(catalog))
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader(memfs.New()).Load(context.Background(), "nowhere")
		assert.Error(t, err)
	})

	t.Run("bad file fails the load", func(t *testing.T) {
		fs := memfs.New()
		require.NoError(t, util.WriteFile(fs, "d/good.yaml", []byte("controllers:\n  - class: A\n"), 0o644))
		require.NoError(t, util.WriteFile(fs, "d/bad.json", []byte(`{"controllers": [`), 0o644))

		_, err := NewLoader(fs).Load(context.Background(), "d")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "d/bad.json")
	})

	t.Run("go method without controller", func(t *testing.T) {
		fs := memfs.New()
		require.NoError(t, util.WriteFile(fs, "x.go", []byte("package x\n\n// keeper:link\nfunc (o *O) M() {}\n"), 0o644))

		_, err := NewLoader(fs).Load(context.Background(), "x.go")
		assert.Error(t, err)
	})
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.hcl":      true,
		"a.JSON":     true,
		"a.yml":      true,
		"a.db":       true,
		"a.go":       true,
		"a_test.go":  false,
		"a.md":       false,
		"Makefile":   false,
		"dir/b.yaml": true,
	} {
		assert.Equal(t, want, Supported(path), path)
	}
}

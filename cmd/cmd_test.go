package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/keeper/internal/graph"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersHCL = `version = "1"

controller "UsersController" {
  name = "users"

  segment "users" {
    title = "Users"
  }

  action "List" {
    permission = "users.list"
    link {
      parent = "users"
      title  = "All users"
    }
  }

  action "Edit" {
    view {
      parent   = "List"
      relative = true
      title    = "Edit user"
    }
  }
}
`

const reportsGo = `package admin

// keeper:controller name=reports
// keeper:segment name=reports title=Reports
type Reports struct{}

// keeper:link parent=reports title=Daily
func (r *Reports) Daily() {}

// keeper:link parent=reports

// keeper:action name=weekly
func (r *Reports) Weekly() {}

// keeper:link parent=nowhere title=Monthly
func (r *Reports) Monthly() {}
`

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	namespace, selector, concurrency, logLevel, logFormat = "", "", 0, "info", "text"
	buildFormat = "tree"
	routesFormat, routesPermissions = "table", false
	genPackage, genVar, genOutput = "registry", "Declarations", ""
	lintStrict = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func declDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestBuild_Tree(t *testing.T) {
	dir := declDir(t, map[string]string{"users.hcl": usersHCL})

	out, _, err := run(t, "build", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `users [segment] "Users"`)
	assert.Contains(t, out, `users.list [link] "All users" (users.list)`)
	assert.Contains(t, out, `UsersController.Edit [view] "Edit user"`)
}

func TestBuild_JSON(t *testing.T) {
	dir := declDir(t, map[string]string{"users.hcl": usersHCL})

	out, _, err := run(t, "build", "--format", "json", dir)
	require.NoError(t, err)

	doc, err := oj.ParseString(out)
	require.NoError(t, err)
	for path, want := range map[string]any{
		"$.name":                                       "root",
		"$.children[0].name":                           "users",
		"$.children[0].children[0].name":               "users.list",
		"$.children[0].children[0].options.permission": "users.list",
		"$.children[0].children[0].children[0].kind":   "view",
	} {
		assert.Equal(t, []any{want}, jp.MustParseString(path).Get(doc), path)
	}
}

func TestBuild_Errors(t *testing.T) {
	_, _, err := run(t, "build", "--format", "yaml", t.TempDir())
	assert.ErrorContains(t, err, "yaml")

	_, _, err = run(t, "build", filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "load declarations")

	cyclic := declDir(t, map[string]string{"c.hcl": `
controller "C" {
  segment "a" {
    parent = "b"
  }
  segment "b" {
    parent = "a"
  }
}
`})
	_, _, err = run(t, "build", cyclic)
	assert.ErrorContains(t, err, "assemble sitemap")

	_, _, err = run(t, "--log-level", "loud", "build", t.TempDir())
	assert.ErrorContains(t, err, "--log-level")
}

func TestBuild_Namespace(t *testing.T) {
	dir := declDir(t, map[string]string{"users.hcl": usersHCL})

	out, _, err := run(t, "build", "--namespace", "admin.", "--format", "table", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "admin.users.list")
	assert.Contains(t, out, "admin.UsersController.Edit")
}

func TestRoutes(t *testing.T) {
	dir := declDir(t, map[string]string{"users.hcl": usersHCL})

	out, _, err := run(t, "routes", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "UsersController.List")
	assert.Contains(t, out, "UsersController.Edit")
	assert.Contains(t, out, "Total")

	out, _, err = run(t, "routes", "--format", "json", dir)
	require.NoError(t, err)
	doc, err := oj.ParseString(out)
	require.NoError(t, err)
	assert.Equal(t, []any{"users.list", "UsersController.Edit"}, jp.MustParseString("$[*].route").Get(doc))

	out, _, err = run(t, "routes", "--permissions", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "users.list")
}

func TestGen(t *testing.T) {
	dir := declDir(t, map[string]string{"users.hcl": usersHCL})
	target := filepath.Join(t.TempDir(), "registry.go")

	_, _, err := run(t, "gen", "--package", "admin", "--var", "Sitemap", "-o", target, dir)
	require.NoError(t, err)

	src, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package admin")
	assert.Contains(t, string(src), "var Sitemap = &api.Declarations{")
	assert.Contains(t, string(src), `"UsersController"`)

	out, _, err := run(t, "gen", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "package registry")

	_, _, err = run(t, "gen", "--package", "not a name", dir)
	assert.Error(t, err)
}

func TestLint(t *testing.T) {
	dir := declDir(t, map[string]string{"reports.go": reportsGo})

	out, _, err := run(t, "lint", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "reports.go:10: keeper:link is not directly above a type or method declaration")
	assert.Contains(t, out, `warning: Reports.Monthly: parent "nowhere" not found, placed under "reports"`)
	assert.Contains(t, out, "info: reports.Weekly: action has no link or view")

	_, _, err = run(t, "lint", "--strict", dir)
	assert.ErrorContains(t, err, "2 warning(s)")
}

func TestRebuild(t *testing.T) {
	namespace = ""
	ctx := context.Background()
	dir := declDir(t, map[string]string{"users.hcl": usersHCL})
	paths := []string{dir}

	sm, _, err := buildSitemap(ctx, paths)
	require.NoError(t, err)
	hot := graph.NewHotSwapGraph(sm.Store())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "reports.go"), []byte(reportsGo), 0o644))
	rebuild(ctx, paths, hot)
	assert.Equal(t, uint64(1), hot.Generation())
	_, err = hot.GetNode("Reports.Daily")
	assert.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.hcl"), []byte(`controller {`), 0o644))
	rebuild(ctx, paths, hot)
	assert.Equal(t, uint64(1), hot.Generation(), "a failed rebuild keeps the served sitemap")
	_, err = hot.GetNode("Reports.Daily")
	assert.NoError(t, err)
}

func TestLogging(t *testing.T) {
	dir := declDir(t, map[string]string{"users.hcl": usersHCL})

	_, logs, err := run(t, "--log-format", "json", "build", dir)
	require.NoError(t, err)
	assert.Contains(t, logs, `"msg":"sitemap assembled"`)

	_, _, err = run(t, "--log-format", "xml", "build", dir)
	assert.ErrorContains(t, err, "--log-format")
}

// Package codegen writes a declaration set out as a Go source file, so a
// panel can ship a static registry instead of reading declarations at start.
package codegen

import (
	"bytes"
	"fmt"
	"go/token"
	"maps"
	"slices"
	"strings"

	"github.com/agentic-research/keeper/api"
	"mvdan.cc/gofumpt/format"
)

const apiImport = "github.com/agentic-research/keeper/api"

// Options controls the generated file.
type Options struct {
	// Package is the package clause of the generated file.
	Package string
	// Var is the name of the exported variable holding the declarations.
	Var string
}

var kindConst = map[api.Kind]string{
	api.KindSegment: "api.KindSegment",
	api.KindGroup:   "api.KindGroup",
	api.KindLink:    "api.KindLink",
	api.KindView:    "api.KindView",
}

// Generate renders decls as gofumpt-formatted Go source.
func Generate(decls *api.Declarations, opts Options) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = "registry"
	}
	if opts.Var == "" {
		opts.Var = "Declarations"
	}
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("invalid package name %q", opts.Package)
	}
	if !token.IsIdentifier(opts.Var) || !token.IsExported(opts.Var) {
		return nil, fmt.Errorf("invalid variable name %q", opts.Var)
	}

	g := &generator{}
	g.printf("// Code generated by keeper gen. DO NOT EDIT.\n\n")
	g.printf("package %s\n\n", opts.Package)
	g.printf("import %q\n\n", apiImport)
	g.printf("// %s is the static sitemap registry.\n", opts.Var)
	g.printf("var %s = &api.Declarations{\n", opts.Var)
	if decls.Version != "" {
		g.printf("Version: %q,\n", decls.Version)
	}
	g.printf("Controllers: []api.Controller{\n")
	for _, c := range decls.Controllers {
		if err := g.controller(c); err != nil {
			return nil, err
		}
	}
	g.printf("},\n}\n")

	return FormatGoBuffer(g.buf.Bytes())
}

type generator struct {
	buf bytes.Buffer
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

func (g *generator) field(name, value string) {
	if value != "" {
		g.printf("%s: %q,\n", name, value)
	}
}

func (g *generator) controller(c api.Controller) error {
	g.printf("{\n")
	g.field("Name", c.Name)
	g.field("Class", c.Class)
	g.field("Namespace", c.Namespace)
	if err := g.annotations(c.Annotations); err != nil {
		return fmt.Errorf("controller %s: %w", c.Name, err)
	}
	if len(c.Actions) > 0 {
		g.printf("Actions: []api.Action{\n")
		for _, a := range c.Actions {
			g.printf("{\n")
			g.field("Method", a.Method)
			g.field("Name", a.Name)
			g.field("Permission", a.Permission)
			if err := g.annotations(a.Annotations); err != nil {
				return fmt.Errorf("controller %s: method %s: %w", c.Name, a.Method, err)
			}
			g.printf("},\n")
		}
		g.printf("},\n")
	}
	g.printf("},\n")
	return nil
}

func (g *generator) annotations(anns []api.Annotation) error {
	if len(anns) == 0 {
		return nil
	}
	g.printf("Annotations: []api.Annotation{\n")
	for _, ann := range anns {
		kind, ok := kindConst[ann.Kind]
		if !ok {
			return fmt.Errorf("unknown sitemap kind %q", ann.Kind)
		}
		g.printf("{\nKind: %s,\n", kind)
		g.field("Name", ann.Name)
		g.field("Parent", ann.Parent)
		if ann.Relative {
			g.printf("Relative: true,\n")
		}
		g.field("Title", ann.Title)
		if len(ann.Options) > 0 {
			lit, err := literal(ann.Options)
			if err != nil {
				return err
			}
			g.printf("Options: %s,\n", lit)
		}
		g.printf("},\n")
	}
	g.printf("},\n")
	return nil
}

// literal renders an option value as a Go expression. Map keys are sorted.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "nil", nil
	case string:
		return fmt.Sprintf("%q", x), nil
	case bool, int, int64, float64:
		return fmt.Sprintf("%#v", x), nil
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			s, err := literal(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[]any{" + strings.Join(parts, ", ") + "}", nil
	case map[string]any:
		keys := slices.Sorted(maps.Keys(x))
		parts := make([]string, len(keys))
		for i, k := range keys {
			s, err := literal(x[k])
			if err != nil {
				return "", err
			}
			parts[i] = fmt.Sprintf("%q: %s", k, s)
		}
		return "map[string]any{" + strings.Join(parts, ", ") + "}", nil
	}
	return "", fmt.Errorf("option value of type %T cannot be generated", v)
}

// FormatGoBuffer formats Go source code in-memory using gofumpt.
func FormatGoBuffer(content []byte) ([]byte, error) {
	formatted, err := format.Source(content, format.Options{})
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}
	return formatted, nil
}

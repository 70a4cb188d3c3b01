package linter

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentic-research/keeper/api"
	"github.com/agentic-research/keeper/internal/assembler"
	"github.com/agentic-research/keeper/internal/graph"
	"github.com/agentic-research/keeper/internal/ingest"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

type Severity string

const (
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Diagnostic is a finding that does not stop the sitemap from assembling.
type Diagnostic struct {
	Severity Severity
	// Where names the declaration: a route, Controller.method or path:line.
	Where   string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Where, d.Message)
}

// Lint checks assembled declarations for parents that fell back, actions
// that produce no navigation entry and permission options that disagree
// with the guard.
func Lint(decls *api.Declarations, res *assembler.Result) []Diagnostic {
	var diags []Diagnostic
	for _, s := range res.Substitutions {
		diags = append(diags, Diagnostic{
			Severity: Warning,
			Where:    s.Route,
			Message:  fmt.Sprintf("parent %q not found, placed under %q", s.Parent, s.Fallback),
		})
	}

	for _, m := range res.Methods {
		leaves := 0
		for _, ann := range m.Source.Annotations {
			if !ann.Kind.IsLeaf() {
				continue
			}
			leaves++
			perm, ok := ann.Options[graph.PermissionOption].(string)
			if ok && m.Permission != "" && perm != m.Permission {
				diags = append(diags, Diagnostic{
					Severity: Warning,
					Where:    m.Route,
					Message:  fmt.Sprintf("%s option permission %q overrides guard %q", ann.Kind, perm, m.Permission),
				})
			}
		}
		if leaves == 0 {
			diags = append(diags, Diagnostic{
				Severity: Info,
				Where:    m.Key(),
				Message:  "action has no link or view",
			})
		}
	}

	for _, ctrl := range decls.Controllers {
		if len(ctrl.Actions) == 0 && len(ctrl.Annotations) == 0 {
			diags = append(diags, Diagnostic{
				Severity: Info,
				Where:    ctrl.Name,
				Message:  "controller declares nothing",
			})
		}
	}
	return diags
}

// LintGo reports keeper directives in Go source that are not attached to a
// type or method declaration. The loader ignores those silently.
func LintGo(path string, content []byte) ([]Diagnostic, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}

	q, err := sitter.NewQuery([]byte(`(comment) @comment`), golang.GetLanguage())
	if err != nil {
		return nil, err
	}
	qc := sitter.NewQueryCursor()
	qc.Exec(q, tree.RootNode())

	var diags []Diagnostic
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			text := strings.TrimSpace(strings.TrimPrefix(c.Node.Content(content), "//"))
			if !strings.HasPrefix(text, ingest.DirectivePrefix) || attached(c.Node) {
				continue
			}
			diags = append(diags, Diagnostic{
				Severity: Warning,
				Where:    fmt.Sprintf("%s:%d", path, c.Node.StartPoint().Row+1),
				Message:  fmt.Sprintf("%s is not directly above a type or method declaration", strings.Fields(text)[0]),
			})
		}
	}
	return diags, nil
}

// attached follows the comment block down to the declaration it documents.
func attached(comment *sitter.Node) bool {
	prev := comment
	for n := comment.NextNamedSibling(); n != nil; n = n.NextNamedSibling() {
		if n.StartPoint().Row > prev.EndPoint().Row+1 {
			return false
		}
		switch n.Type() {
		case "comment":
			prev = n
			continue
		case "type_declaration", "method_declaration":
			return true
		}
		return false
	}
	return false
}

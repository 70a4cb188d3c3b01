// Package render prints built sitemaps and method routes.
package render

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/agentic-research/keeper/internal/assembler"
	"github.com/agentic-research/keeper/internal/graph"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// Format selects an output representation.
type Format string

const (
	FormatTree  Format = "tree"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTree, FormatTable, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want tree, table or json)", s)
}

var jsonOptions = &ojg.Options{Indent: 2, Sort: true}

// Sitemap writes the nodes of g, starting from its roots. FormatTable lists
// one node per row with its parent.
func Sitemap(w io.Writer, g graph.Graph, format Format) error {
	switch format {
	case FormatTree:
		return Tree(w, g)
	case FormatTable:
		return Table(w, g)
	case FormatJSON:
		return JSON(w, g)
	}
	return fmt.Errorf("unknown format %q", format)
}

// Tree draws g as an indented list.
func Tree(w io.Writer, g graph.Graph) error {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)
	roots, err := g.ListChildren("")
	if err != nil {
		return err
	}
	if err := appendNodes(l, g, roots); err != nil {
		return err
	}
	if l.Length() == 0 {
		_, err := fmt.Fprintln(w, "(empty sitemap)")
		return err
	}
	_, err = fmt.Fprintln(w, l.Render())
	return err
}

func appendNodes(l list.Writer, g graph.Graph, ids []string) error {
	for _, id := range ids {
		n, err := g.GetNode(id)
		if err != nil {
			return err
		}
		l.AppendItem(label(n))
		if len(n.Children) > 0 {
			l.Indent()
			if err := appendNodes(l, g, n.Children); err != nil {
				return err
			}
			l.UnIndent()
		}
	}
	return nil
}

func label(n *graph.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", n.ID, n.Kind)
	if n.Title != "" {
		fmt.Fprintf(&b, " %q", n.Title)
	}
	if p := n.Permission(); p != "" {
		fmt.Fprintf(&b, " (%s)", p)
	}
	return b.String()
}

// Table writes one row per node, in pre-order.
func Table(w io.Writer, g graph.Graph) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Kind", "Parent", "Title", "Permission"})

	var walk func(parent string, ids []string) error
	walk = func(parent string, ids []string) error {
		for _, id := range ids {
			n, err := g.GetNode(id)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{n.ID, n.Kind, parent, n.Title, n.Permission()})
			if err := walk(n.ID, n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	roots, err := g.ListChildren("")
	if err != nil {
		return err
	}
	if err := walk(assembler.RootName, roots); err != nil {
		return err
	}
	t.Render()
	return nil
}

// JSON writes g as nested objects with sorted keys.
func JSON(w io.Writer, g graph.Graph) error {
	roots, err := g.ListChildren("")
	if err != nil {
		return err
	}
	nodes, err := jsonNodes(g, roots)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, oj.JSON(map[string]any{"name": assembler.RootName, "children": nodes}, jsonOptions))
	return err
}

func jsonNodes(g graph.Graph, ids []string) ([]any, error) {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		n, err := g.GetNode(id)
		if err != nil {
			return nil, err
		}
		m := map[string]any{
			"name": n.ID,
			"kind": string(n.Kind),
		}
		if n.Title != "" {
			m["title"] = n.Title
		}
		if len(n.Options) > 0 {
			m["options"] = maps.Clone(n.Options)
		}
		if len(n.Children) > 0 {
			children, err := jsonNodes(g, n.Children)
			if err != nil {
				return nil, err
			}
			m["children"] = children
		}
		out = append(out, m)
	}
	return out, nil
}

// Routes writes the method descriptors of a build.
func Routes(w io.Writer, methods []*assembler.Method, format Format) error {
	if format == FormatJSON {
		out := make([]any, 0, len(methods))
		for _, m := range methods {
			out = append(out, map[string]any{
				"controller": m.Controller,
				"method":     m.Name,
				"action":     m.Action,
				"route":      m.Route,
				"permission": m.Permission,
			})
		}
		_, err := fmt.Fprintln(w, oj.JSON(out, jsonOptions))
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Controller", "Method", "Action", "Route", "Permission"})
	for _, m := range methods {
		t.AppendRow(table.Row{m.Controller, m.Name, m.Action, m.Route, m.Permission})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(methods)})
	t.Render()
	return nil
}

// Permissions writes every permission with the nodes that carry it.
func Permissions(w io.Writer, g graph.Graph) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Permission", "Nodes"})
	perms := g.Permissions()
	slices.Sort(perms)
	for _, p := range perms {
		t.AppendRow(table.Row{p, strings.Join(g.NodesWithPermission(p), ", ")})
	}
	t.Render()
	return nil
}

package ingest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/agentic-research/keeper/api"
	"github.com/kballard/go-shellquote"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// DirectivePrefix starts every sitemap directive comment in Go source:
//
//	// keeper:controller name=users namespace=admin.
//	// keeper:segment name=users title="Users"
//	type UsersController struct{}
//
//	// keeper:link parent=users title="All users" option.icon=list
//	// keeper:guarded permission=users.list
//	func (c *UsersController) List() {}
const DirectivePrefix = "keeper:"

const (
	goTypeQuery = `(type_declaration (type_spec name: (type_identifier) @name) @spec) @scope`

	goMethodQuery = `(method_declaration
  receiver: (parameter_list
    (parameter_declaration
      type: [(type_identifier) @recv (pointer_type (type_identifier) @recv)]))
  name: (field_identifier) @name) @scope`
)

// SyntaxError reports a Go file tree-sitter could not parse cleanly.
type SyntaxError struct {
	Path   string
	Line   uint32
	Column uint32
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line+1, e.Column+1)
}

// DirectiveError reports a malformed keeper directive.
type DirectiveError struct {
	Path    string
	Line    uint32
	Message string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line+1, e.Message)
}

// GoSource collects controller declarations from directive comments spread
// over any number of Go files. Methods are attached to controllers by
// receiver type, so a controller and its methods may live in different
// files of the same package.
type GoSource struct {
	walker *SitterWalker
	lang   *sitter.Language

	order   []string // receiver types, in declaration order
	types   map[string]*api.Controller
	methods map[string][]api.Action
	// where remembers the first method seen for each receiver, for errors.
	where map[string]string
}

func NewGoSource() *GoSource {
	return &GoSource{
		walker:  NewSitterWalker(),
		lang:    golang.GetLanguage(),
		types:   make(map[string]*api.Controller),
		methods: make(map[string][]api.Action),
		where:   make(map[string]string),
	}
}

// Parse scans one Go file.
func (g *GoSource) Parse(ctx context.Context, path string, src []byte) error {
	parser := sitter.NewParser()
	parser.SetLanguage(g.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return fmt.Errorf("tree-sitter parse failed for %s: %w", path, err)
	}
	root := tree.RootNode()
	if root == nil {
		return fmt.Errorf("tree-sitter returned nil root for %s", path)
	}
	if root.HasError() {
		se := &SyntaxError{Path: path}
		if n := findFirstError(root); n != nil {
			se.Line, se.Column = n.StartPoint().Row, n.StartPoint().Column
		}
		return se
	}
	sr := SitterRoot{Node: root, Source: src, Lang: g.lang}

	types, err := g.walker.Query(sr, goTypeQuery)
	if err != nil {
		return err
	}
	for _, m := range types {
		sm := m.(*sitterMatch)
		dirs := directives(sm.captures["spec"], src)
		if len(dirs) == 0 {
			dirs = directives(sm.captures["scope"], src)
		}
		if err := g.addType(path, sm.Values()["name"].(string), dirs); err != nil {
			return err
		}
	}

	methods, err := g.walker.Query(sr, goMethodQuery)
	if err != nil {
		return err
	}
	for _, m := range methods {
		sm := m.(*sitterMatch)
		v := sm.Values()
		if err := g.addMethod(path, v["recv"].(string), v["name"].(string), directives(sm.captures["scope"], src)); err != nil {
			return err
		}
	}
	return nil
}

func (g *GoSource) addType(path, typeName string, dirs []directive) error {
	var ctrl *api.Controller
	for _, d := range dirs {
		switch d.kind {
		case "controller":
			if ctrl != nil {
				return d.errorf(path, "controller %s declared twice", typeName)
			}
			if _, dup := g.types[typeName]; dup {
				return d.errorf(path, "controller %s already declared", typeName)
			}
			ctrl = &api.Controller{Name: typeName, Class: typeName}
			for k, v := range d.args {
				switch k {
				case "name":
					ctrl.Name = v
				case "class":
					ctrl.Class = v
				case "namespace":
					ctrl.Namespace = v
				default:
					return d.errorf(path, "unknown controller argument %q", k)
				}
			}
		case "segment", "group":
			if ctrl == nil {
				return d.errorf(path, "%s on %s before keeper:controller", d.kind, typeName)
			}
			ann, err := d.annotation(path)
			if err != nil {
				return err
			}
			ctrl.Annotations = append(ctrl.Annotations, ann)
		default:
			return d.errorf(path, "keeper:%s is not allowed on a type", d.kind)
		}
	}
	if ctrl != nil {
		g.types[typeName] = ctrl
		g.order = append(g.order, typeName)
	}
	return nil
}

func (g *GoSource) addMethod(path, recv, name string, dirs []directive) error {
	if len(dirs) == 0 {
		return nil
	}
	a := api.Action{Method: name}
	for _, d := range dirs {
		switch d.kind {
		case "action":
			for k, v := range d.args {
				if k != "name" {
					return d.errorf(path, "unknown action argument %q", k)
				}
				a.Name = v
			}
		case "guarded":
			for k, v := range d.args {
				if k != "permission" {
					return d.errorf(path, "unknown guarded argument %q", k)
				}
				a.Permission = v
			}
			if a.Permission == "" {
				return d.errorf(path, "keeper:guarded on %s.%s needs a permission", recv, name)
			}
		case "link", "view":
			ann, err := d.annotation(path)
			if err != nil {
				return err
			}
			a.Annotations = append(a.Annotations, ann)
		default:
			return d.errorf(path, "keeper:%s is not allowed on a method", d.kind)
		}
	}
	if _, ok := g.where[recv]; !ok {
		g.where[recv] = fmt.Sprintf("%s: method %s", path, name)
	}
	g.methods[recv] = append(g.methods[recv], a)
	return nil
}

// Declarations returns the controllers found so far, in declaration order.
// A method carrying directives on a type that never became a controller is
// an error.
func (g *GoSource) Declarations() (*api.Declarations, error) {
	for _, recv := range slices.Sorted(maps.Keys(g.where)) {
		if _, ok := g.types[recv]; !ok {
			return nil, fmt.Errorf("%s: receiver %s has no keeper:controller directive", g.where[recv], recv)
		}
	}
	d := &api.Declarations{Controllers: make([]api.Controller, 0, len(g.order))}
	for _, typeName := range g.order {
		ctrl := *g.types[typeName]
		ctrl.Actions = append([]api.Action(nil), g.methods[typeName]...)
		d.Controllers = append(d.Controllers, ctrl)
	}
	return d, nil
}

// ParseGo is a convenience wrapper for a single file.
func ParseGo(ctx context.Context, path string, src []byte) (*api.Declarations, error) {
	g := NewGoSource()
	if err := g.Parse(ctx, path, src); err != nil {
		return nil, err
	}
	return g.Declarations()
}

type directive struct {
	line  uint32
	kind  string
	args  map[string]string
	order []string
}

func (d directive) errorf(path, format string, args ...any) error {
	return &DirectiveError{Path: path, Line: d.line, Message: fmt.Sprintf(format, args...)}
}

func (d directive) annotation(path string) (api.Annotation, error) {
	kind, err := api.ParseKind(d.kind)
	if err != nil {
		return api.Annotation{}, d.errorf(path, "%v", err)
	}
	ann := api.Annotation{Kind: kind}
	for _, k := range d.order {
		v := d.args[k]
		switch {
		case k == "name":
			ann.Name = v
		case k == "parent":
			ann.Parent = v
		case k == "title":
			ann.Title = v
		case k == "relative":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return ann, d.errorf(path, "relative: %v", err)
			}
			ann.Relative = b
		case strings.HasPrefix(k, "option."):
			if ann.Options == nil {
				ann.Options = make(map[string]any)
			}
			ann.Options[strings.TrimPrefix(k, "option.")] = v
		default:
			return ann, d.errorf(path, "unknown %s argument %q", d.kind, k)
		}
	}
	if kind.IsContainer() && ann.Name == "" {
		return ann, d.errorf(path, "keeper:%s needs a name", d.kind)
	}
	return ann, nil
}

// directives returns the keeper directives in the comment block directly
// above n, top to bottom.
func directives(n *sitter.Node, src []byte) []directive {
	if n == nil {
		return nil
	}
	var comments []*sitter.Node
	next := n
	for c := n.PrevNamedSibling(); c != nil && c.Type() == "comment"; c = c.PrevNamedSibling() {
		if c.EndPoint().Row+1 < next.StartPoint().Row {
			break
		}
		comments = append(comments, c)
		next = c
	}

	var out []directive
	for i := len(comments) - 1; i >= 0; i-- {
		c := comments[i]
		if d, ok := parseDirective(c.Content(src)); ok {
			d.line = c.StartPoint().Row
			out = append(out, d)
		}
	}
	return out
}

// parseDirective parses "// keeper:<kind> key=value ...". Values follow
// shell quoting rules; a bare key is shorthand for key=true.
func parseDirective(comment string) (directive, bool) {
	text := strings.TrimSpace(strings.TrimPrefix(comment, "//"))
	if !strings.HasPrefix(text, DirectivePrefix) {
		return directive{}, false
	}
	words, err := shellquote.Split(strings.TrimPrefix(text, DirectivePrefix))
	if err != nil || len(words) == 0 {
		// Kept as a directive so the caller reports it as unknown.
		return directive{kind: strings.TrimPrefix(text, DirectivePrefix), args: map[string]string{}}, true
	}
	d := directive{kind: words[0], args: make(map[string]string, len(words)-1)}
	for _, w := range words[1:] {
		k, v, found := strings.Cut(w, "=")
		if !found {
			v = "true"
		}
		if _, dup := d.args[k]; !dup {
			d.order = append(d.order, k)
		}
		d.args[k] = v
	}
	return d, true
}

// findFirstError does a depth-first search for the first ERROR node.
func findFirstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := findFirstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}

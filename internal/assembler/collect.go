package assembler

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/agentic-research/keeper/api"
	"github.com/agentic-research/keeper/internal/graph"
	"github.com/agentic-research/keeper/internal/sitemap"
	"github.com/agentic-research/keeper/internal/sorter"
)

type pass uint8

const (
	passClasses pass = iota + 1
	passMethods
)

// collector accumulates the items of one build.
type collector struct {
	namespace string
	reader    Reader
	elements  map[string]sitemap.Builder
	logger    *slog.Logger

	graph *sorter.Graph[Item]
	pass  pass

	// fallbacks maps controller name → fallback segment, filled by pass 1.
	fallbacks     map[string]string
	substitutions []Substitution
	methods       []*Method
	byKey         map[string]*Method // Controller.method → method
	byRoute       map[string]*Method
}

func newCollector(namespace string, reader Reader, elements map[string]sitemap.Builder, logger *slog.Logger) *collector {
	c := &collector{
		namespace: namespace,
		reader:    reader,
		elements:  elements,
		logger:    logger,
		graph:     sorter.New[Item](),
		pass:      passClasses,
		fallbacks: make(map[string]string),
		byKey:     make(map[string]*Method),
		byRoute:   make(map[string]*Method),
	}
	// root exists even when no controller is found.
	_ = c.graph.AddItem(RootName, rootItem())
	return c
}

// collectClass is pass 1 for a single controller: its segments and groups,
// its fallback segment and the descriptors of its actions.
func (c *collector) collectClass(ctrl *api.Controller, actions []*api.Action) error {
	if c.pass != passClasses {
		return fmt.Errorf("%w: class %s collected after method pass started", ErrBrokenTree, ctrl.Name)
	}
	if err := c.graph.AddItem(RootName, rootItem()); err != nil {
		return err
	}

	last := RootName
	for _, ann := range c.reader.ClassAnnotations(ctrl) {
		if !ann.Kind.IsContainer() {
			return fmt.Errorf("%w: %s declared on controller %s", ErrInvalidDeclaration, ann.Kind, ctrl.Name)
		}
		if ann.Name == "" {
			return fmt.Errorf("%w: %s on controller %s has no name", ErrInvalidDeclaration, ann.Kind, ctrl.Name)
		}
		parent := ann.Parent
		if parent == "" {
			if ann.Kind == api.KindGroup {
				return fmt.Errorf("%w: group %q on controller %s has no parent", ErrInvalidDeclaration, ann.Name, ctrl.Name)
			}
			parent = RootName
		}
		item := Item{
			Name:       ann.Name,
			Kind:       ann.Kind,
			Parent:     parent,
			Title:      ann.Title,
			Options:    ann.Options,
			Controller: ctrl.Name,
		}
		deps := []string{parent}
		if _, external := c.elements[parent]; external {
			deps = nil
		}
		if err := c.graph.AddItem(ann.Name, item, deps...); err != nil {
			return fmt.Errorf("controller %s: %w", ctrl.Name, err)
		}
		last = ann.Name
	}
	c.fallbacks[ctrl.Name] = last

	for _, action := range actions {
		m := NewMethod(c.namespace, ctrl, action, c.reader.Guard(action))
		if prev, ok := c.byKey[m.Key()]; ok {
			// A later declaration of the same method replaces the earlier one in place.
			for i := range c.methods {
				if c.methods[i] == prev {
					c.methods[i] = m
				}
			}
			if c.byRoute[prev.Route] == prev {
				delete(c.byRoute, prev.Route)
			}
		} else {
			c.methods = append(c.methods, m)
		}
		c.byKey[m.Key()] = m
		c.byRoute[m.Route] = m
	}
	return nil
}

// collectMethods is pass 2: the links and views of every collected method.
func (c *collector) collectMethods() error {
	c.pass = passMethods
	for _, m := range c.methods {
		fallback, ok := c.fallbacks[m.Controller]
		if !ok {
			fallback = RootName
		}
		for _, ann := range c.reader.MethodAnnotations(m.Source) {
			if !ann.Kind.IsLeaf() {
				return fmt.Errorf("%w: %s declared on method %s", ErrInvalidDeclaration, ann.Kind, m.Key())
			}
			if err := c.addLeaf(m, ann, fallback); err != nil {
				return err
			}
		}
	}
	return nil
}

// addLeaf registers one link or view of m. Only guarded methods put a
// permission option on their node; unguarded nodes carry none, and the
// action name is never used as a permission.
func (c *collector) addLeaf(m *Method, ann api.Annotation, fallback string) error {
	var candidate string
	switch {
	case ann.HasAbsoluteParent():
		candidate = ann.Parent
	case ann.HasRelativeParent():
		candidate = m.Controller + "." + ann.Parent
	}

	parent, internal, known := c.resolve(candidate)
	var deps []string
	if known {
		if internal {
			deps = []string{parent}
		}
	} else {
		// The fallback is not a dependency of the item. It must have been
		// registered in pass 1 so that registration order sorts it first.
		if c.pass != passMethods || !c.graph.Has(fallback) {
			return fmt.Errorf("%w: fallback %q of %s is not registered", ErrBrokenTree, fallback, m.Controller)
		}
		if candidate != "" {
			c.logger.Debug("unresolved parent, using fallback segment",
				"route", m.Route, "parent", candidate, "fallback", fallback)
			c.substitutions = append(c.substitutions, Substitution{Route: m.Route, Parent: candidate, Fallback: fallback})
		}
		parent = fallback
	}

	options := maps.Clone(ann.Options)
	if m.Permission != "" {
		if options == nil {
			options = make(map[string]any, 1)
		}
		if _, ok := options[graph.PermissionOption]; !ok {
			options[graph.PermissionOption] = m.Permission
		}
	}

	item := Item{
		Name:       m.Route,
		Kind:       ann.Kind,
		Parent:     parent,
		Title:      ann.Title,
		Options:    options,
		Controller: m.Controller,
	}
	if err := c.graph.AddItem(m.Route, item, deps...); err != nil {
		return fmt.Errorf("method %s: %w", m.Key(), err)
	}
	return nil
}

// resolve checks a candidate parent. It returns the parent name to use,
// whether it is an item of this build (as opposed to an element already in
// the sitemap) and whether the candidate is known at all.
func (c *collector) resolve(candidate string) (parent string, internal, known bool) {
	if candidate == "" {
		return "", false, false
	}
	if m, ok := c.byKey[candidate]; ok && c.navigable(m) {
		return m.Route, true, true
	}
	if m, ok := c.byRoute[candidate]; ok && c.navigable(m) {
		return candidate, true, true
	}
	if c.graph.Has(candidate) {
		return candidate, true, true
	}
	if _, ok := c.elements[candidate]; ok {
		return candidate, false, true
	}
	return "", false, false
}

// navigable reports whether m contributes a node, i.e. carries a link or view.
func (c *collector) navigable(m *Method) bool {
	for _, ann := range c.reader.MethodAnnotations(m.Source) {
		if ann.Kind.IsLeaf() {
			return true
		}
	}
	return false
}

// Package sitemap is the navigation tree consumed by the panel: a set of
// node constructors, one per node kind, each returning a handle for nesting.
package sitemap

import (
	"maps"

	"github.com/agentic-research/keeper/api"
	"github.com/agentic-research/keeper/internal/graph"
)

// Builder constructs nodes under a parent. The returned handle is the parent
// of anything constructed through it.
type Builder interface {
	Segment(name, title string, options map[string]any) Builder
	Group(name, title string, options map[string]any) Builder
	Link(name, title string, options map[string]any) Builder
	View(name, title string, options map[string]any) Builder
}

// Tree is the top-level builder. Elements exposes the nodes already declared,
// keyed by name.
type Tree interface {
	Builder
	Elements() map[string]Builder
}

// Sitemap is the in-memory Tree backed by a graph.MemoryStore.
type Sitemap struct {
	namespace string
	store     *graph.MemoryStore
	elements  map[string]*Node
}

// New returns an empty sitemap for the given keeper namespace.
func New(namespace string) *Sitemap {
	return &Sitemap{
		namespace: namespace,
		store:     graph.NewMemoryStore(),
		elements:  make(map[string]*Node),
	}
}

// Namespace returns the keeper namespace the sitemap was created for.
func (s *Sitemap) Namespace() string { return s.namespace }

// Store returns the node store holding the built tree.
func (s *Sitemap) Store() *graph.MemoryStore { return s.store }

// Elements implements Tree.
func (s *Sitemap) Elements() map[string]Builder {
	out := make(map[string]Builder, len(s.elements))
	for name, n := range s.elements {
		out[name] = n
	}
	return out
}

// Element returns the node declared under name.
func (s *Sitemap) Element(name string) (*Node, bool) {
	n, ok := s.elements[name]
	return n, ok
}

func (s *Sitemap) Segment(name, title string, options map[string]any) Builder {
	return s.add("", api.KindSegment, name, title, options)
}

func (s *Sitemap) Group(name, title string, options map[string]any) Builder {
	return s.add("", api.KindGroup, name, title, options)
}

func (s *Sitemap) Link(name, title string, options map[string]any) Builder {
	return s.add("", api.KindLink, name, title, options)
}

func (s *Sitemap) View(name, title string, options map[string]any) Builder {
	return s.add("", api.KindView, name, title, options)
}

func (s *Sitemap) add(parent string, kind api.Kind, name, title string, options map[string]any) *Node {
	n := &graph.Node{
		ID:      name,
		Kind:    kind,
		Title:   title,
		Options: maps.Clone(options),
	}
	if parent == "" {
		s.store.AddRoot(n)
	} else if err := s.store.AddChild(parent, n); err != nil {
		// Handles only come from this sitemap, so the parent always exists.
		panic("sitemap: unknown parent " + parent)
	}
	handle := &Node{sitemap: s, id: name}
	s.elements[name] = handle
	return handle
}

// Node is the handle of a constructed node.
type Node struct {
	sitemap *Sitemap
	id      string
}

// Name returns the node name.
func (n *Node) Name() string { return n.id }

func (n *Node) Segment(name, title string, options map[string]any) Builder {
	return n.sitemap.add(n.id, api.KindSegment, name, title, options)
}

func (n *Node) Group(name, title string, options map[string]any) Builder {
	return n.sitemap.add(n.id, api.KindGroup, name, title, options)
}

func (n *Node) Link(name, title string, options map[string]any) Builder {
	return n.sitemap.add(n.id, api.KindLink, name, title, options)
}

func (n *Node) View(name, title string, options map[string]any) Builder {
	return n.sitemap.add(n.id, api.KindView, name, title, options)
}

package assembler

import (
	"fmt"

	"github.com/agentic-research/keeper/api"
	"github.com/agentic-research/keeper/internal/sitemap"
	"github.com/agentic-research/keeper/internal/sorter"
)

// Tree is the folded sitemap. Nodes live in an arena and refer to each other
// by index; index 0 is the root.
type Tree struct {
	nodes []treeNode
	index map[string]int
	// anchors hold the items whose parent is an element that was already
	// present in the destination sitemap, grouped by that element.
	anchors []anchor
}

type treeNode struct {
	item     Item
	parent   int // -1 for the root and for anchored items
	children []int
}

type anchor struct {
	element  string
	children []int
}

// Fold builds the tree from items in sorted order. The first item must be the
// root, and every other item must follow its parent. isElement reports
// whether a parent that is not an item names an element of the destination
// sitemap.
func Fold(sorted []Item, isElement func(name string) bool) (*Tree, error) {
	if len(sorted) == 0 || sorted[0].Kind != api.KindRoot {
		return nil, fmt.Errorf("%w: first sorted item is not the root", ErrBrokenTree)
	}

	t := &Tree{
		nodes: make([]treeNode, 0, len(sorted)),
		index: make(map[string]int, len(sorted)),
	}
	t.index[sorted[0].Name] = 0
	t.nodes = append(t.nodes, treeNode{item: sorted[0], parent: -1})

	anchorAt := make(map[string]int)
	for pos, it := range sorted[1:] {
		if _, dup := t.index[it.Name]; dup {
			return nil, fmt.Errorf("%w: %q folded twice", ErrBrokenTree, it.Name)
		}
		idx := len(t.nodes)
		if p, ok := t.index[it.Parent]; ok {
			t.nodes = append(t.nodes, treeNode{item: it, parent: p})
			t.nodes[p].children = append(t.nodes[p].children, idx)
		} else if isElement != nil && isElement(it.Parent) {
			t.nodes = append(t.nodes, treeNode{item: it, parent: -1})
			a, ok := anchorAt[it.Parent]
			if !ok {
				a = len(t.anchors)
				anchorAt[it.Parent] = a
				t.anchors = append(t.anchors, anchor{element: it.Parent})
			}
			t.anchors[a].children = append(t.anchors[a].children, idx)
		} else {
			if path := parentLoop(it, sorted[pos+2:]); path != nil {
				return nil, &sorter.CycleError{Path: path}
			}
			return nil, fmt.Errorf("%w: %q reached before its parent %q", ErrBrokenTree, it.Name, it.Parent)
		}
		t.index[it.Name] = idx
	}
	return t, nil
}

// parentLoop follows the parents of it through the items not yet folded.
// A chain that leads back to it is a loop the sorter could not see, because
// a fallback parent declares no dependency. It returns the loop, starting
// and ending with it, or nil.
func parentLoop(it Item, rest []Item) []string {
	parentOf := make(map[string]string, len(rest))
	for _, r := range rest {
		parentOf[r.Name] = r.Parent
	}
	path := []string{it.Name}
	for name := it.Parent; ; {
		path = append(path, name)
		if name == it.Name {
			return path
		}
		next, ok := parentOf[name]
		if !ok || len(path) > len(rest)+1 {
			return nil
		}
		name = next
	}
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root item.
func (t *Tree) Root() Item { return t.nodes[0].item }

// Lookup returns the item registered under name.
func (t *Tree) Lookup(name string) (Item, bool) {
	i, ok := t.index[name]
	if !ok {
		return Item{}, false
	}
	return t.nodes[i].item, true
}

// Children returns the names of the children of name, in order. The children
// of an anchor element are returned when name is not an item.
func (t *Tree) Children(name string) []string {
	var idxs []int
	if i, ok := t.index[name]; ok {
		idxs = t.nodes[i].children
	} else {
		for _, a := range t.anchors {
			if a.element == name {
				idxs = a.children
			}
		}
	}
	names := make([]string, len(idxs))
	for j, c := range idxs {
		names[j] = t.nodes[c].item.Name
	}
	return names
}

// Anchors returns the pre-existing sitemap elements that received children.
func (t *Tree) Anchors() []string {
	out := make([]string, len(t.anchors))
	for i, a := range t.anchors {
		out[i] = a.element
	}
	return out
}

// Walk visits every node below the root in depth-first pre-order, then the
// nodes hanging from anchors. depth is 0 for direct children of the root or
// of an anchor.
func (t *Tree) Walk(fn func(depth int, it Item)) {
	var walk func(idxs []int, depth int)
	walk = func(idxs []int, depth int) {
		for _, i := range idxs {
			fn(depth, t.nodes[i].item)
			walk(t.nodes[i].children, depth+1)
		}
	}
	walk(t.nodes[0].children, 0)
	for _, a := range t.anchors {
		walk(a.children, 0)
	}
}

// Replay constructs the tree in dst, depth-first. The root is not replayed:
// its children are constructed directly on dst.
func (t *Tree) Replay(dst sitemap.Tree) error {
	var parents []sitemap.Builder
	if len(t.anchors) > 0 {
		elements := dst.Elements()
		for _, a := range t.anchors {
			parent, ok := elements[a.element]
			if !ok {
				return fmt.Errorf("%w: sitemap element %q disappeared", ErrBrokenTree, a.element)
			}
			parents = append(parents, parent)
		}
	}

	for _, c := range t.nodes[0].children {
		if err := t.replay(dst, c); err != nil {
			return err
		}
	}
	for i, a := range t.anchors {
		for _, c := range a.children {
			if err := t.replay(parents[i], c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tree) replay(parent sitemap.Builder, i int) error {
	it := t.nodes[i].item
	var node sitemap.Builder
	switch it.Kind {
	case api.KindSegment:
		node = parent.Segment(it.Name, it.Title, it.Options)
	case api.KindGroup:
		node = parent.Group(it.Name, it.Title, it.Options)
	case api.KindLink:
		node = parent.Link(it.Name, it.Title, it.Options)
	case api.KindView:
		node = parent.View(it.Name, it.Title, it.Options)
	default:
		return fmt.Errorf("%w: cannot construct %q of kind %q", ErrBrokenTree, it.Name, it.Kind)
	}
	for _, c := range t.nodes[i].children {
		if err := t.replay(node, c); err != nil {
			return err
		}
	}
	return nil
}

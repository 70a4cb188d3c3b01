// Package sorter orders named items so that every item follows the items it
// depends on.
package sorter

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

var (
	ErrDuplicate  = errors.New("duplicate item")
	ErrCycle      = errors.New("dependency cycle")
	ErrUnresolved = errors.New("unresolved dependency")
)

// DuplicateItemError is returned when a name is registered twice with a
// different payload or dependency list.
type DuplicateItemError struct {
	Name string
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("duplicate item %q: already registered with a different declaration", e.Name)
}

func (e *DuplicateItemError) Is(target error) bool { return target == ErrDuplicate }

// CycleError carries the dependency path that loops back on itself. The first
// and last elements of Path are the same item.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// UnresolvedDependencyError is returned when an item depends on a name that
// was never registered.
type UnresolvedDependencyError struct {
	Item       string
	Dependency string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("item %q depends on unknown item %q", e.Item, e.Dependency)
}

func (e *UnresolvedDependencyError) Is(target error) bool { return target == ErrUnresolved }

type mark uint8

const (
	unvisited mark = iota
	inProgress
	done
)

type item[T any] struct {
	name    string
	payload T
	deps    []string
}

// Graph collects items and their dependencies. It is not safe for concurrent
// use; a graph lives for the duration of a single build.
type Graph[T any] struct {
	items []*item[T]
	index map[string]int
}

// New returns an empty graph.
func New[T any]() *Graph[T] {
	return &Graph[T]{index: make(map[string]int)}
}

// AddItem registers name with its payload and the names it must follow.
// Registering the same name again is a no-op when payload and dependencies are
// identical, and a *DuplicateItemError otherwise.
func (g *Graph[T]) AddItem(name string, payload T, deps ...string) error {
	if i, ok := g.index[name]; ok {
		prev := g.items[i]
		if reflect.DeepEqual(prev.payload, payload) && slices.Equal(prev.deps, deps) {
			return nil
		}
		return &DuplicateItemError{Name: name}
	}
	g.index[name] = len(g.items)
	g.items = append(g.items, &item[T]{
		name:    name,
		payload: payload,
		deps:    append([]string(nil), deps...),
	})
	return nil
}

// Has reports whether name was registered.
func (g *Graph[T]) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Len returns the number of registered items.
func (g *Graph[T]) Len() int {
	return len(g.items)
}

// Names returns the registered names in registration order.
func (g *Graph[T]) Names() []string {
	names := make([]string, len(g.items))
	for i, it := range g.items {
		names[i] = it.name
	}
	return names
}

// Sort returns the payloads ordered so that each item appears after all of
// its dependencies. Items with no ordering constraint between them keep their
// registration order. Sort does not modify the graph.
func (g *Graph[T]) Sort() ([]T, error) {
	marks := make([]mark, len(g.items))
	out := make([]T, 0, len(g.items))
	var stack []string

	var visit func(i int) error
	visit = func(i int) error {
		it := g.items[i]
		marks[i] = inProgress
		stack = append(stack, it.name)
		for _, dep := range it.deps {
			j, ok := g.index[dep]
			if !ok {
				return &UnresolvedDependencyError{Item: it.name, Dependency: dep}
			}
			switch marks[j] {
			case inProgress:
				return &CycleError{Path: cyclePath(stack, dep)}
			case unvisited:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[i] = done
		out = append(out, it.payload)
		return nil
	}

	for i := range g.items {
		if marks[i] != unvisited {
			continue
		}
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// cyclePath cuts the visit stack down to the loop that closes on name.
func cyclePath(stack []string, name string) []string {
	for i, n := range stack {
		if n == name {
			path := append([]string(nil), stack[i:]...)
			return append(path, name)
		}
	}
	return []string{name, name}
}

package graph

import (
	"sync"
)

// HotSwapGraph is a thread-safe wrapper that allows swapping the underlying graph instance.
// A rebuilt sitemap replaces the served one in a single step.
type HotSwapGraph struct {
	mu         sync.RWMutex
	current    Graph
	generation uint64
}

func NewHotSwapGraph(initial Graph) *HotSwapGraph {
	return &HotSwapGraph{current: initial}
}

// Swap atomically replaces the current graph with a new one.
func (h *HotSwapGraph) Swap(newGraph Graph) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = newGraph
	h.generation++
}

// Generation counts the swaps performed so far.
func (h *HotSwapGraph) Generation() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generation
}

// GetNode delegates to current graph.
func (h *HotSwapGraph) GetNode(id string) (*Node, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.GetNode(id)
}

// ListChildren delegates to current graph.
func (h *HotSwapGraph) ListChildren(id string) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.ListChildren(id)
}

// NodesWithPermission delegates to current graph.
func (h *HotSwapGraph) NodesWithPermission(permission string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.NodesWithPermission(permission)
}

// Permissions delegates to current graph.
func (h *HotSwapGraph) Permissions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Permissions()
}

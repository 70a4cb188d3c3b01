package graph

import (
	"errors"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/keeper/api"
)

var ErrNotFound = errors.New("node not found")

// PermissionOption is the option key carrying a node's guard permission.
const PermissionOption = "permission"

// Node is a navigation entry of a built sitemap.
type Node struct {
	ID       string
	Kind     api.Kind
	Title    string
	Options  map[string]any
	Children []string // Child node IDs, in navigation order
}

// Permission returns the guard permission recorded in the node options.
func (n *Node) Permission() string {
	if n.Options == nil {
		return ""
	}
	p, _ := n.Options[PermissionOption].(string)
	return p
}

// Graph is the read side of a built sitemap.
// This allows serving a tree that is rebuilt in the background (see HotSwapGraph).
type Graph interface {
	GetNode(id string) (*Node, error)
	ListChildren(id string) ([]string, error)
	// NodesWithPermission returns the IDs of the nodes guarded by permission.
	NodesWithPermission(permission string) []string
	Permissions() []string
}

// MemoryStore keeps sitemap nodes in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	roots []string // Top-level nodes, children of the implicit root

	// Roaring bitmap index: permission → set of node internal IDs.
	permToNodes map[string]*roaring.Bitmap
	nodeIntID   map[string]uint32 // Node.ID → internal bitmap uint32 ID
	intToNodeID []string          // reverse: uint32 → Node.ID
	nextIntID   uint32            // monotonic counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:       make(map[string]*Node),
		roots:       []string{},
		permToNodes: make(map[string]*roaring.Bitmap),
		nodeIntID:   make(map[string]uint32),
	}
}

// AddRoot registers a node as a top-level node and adds it to the store.
func (s *MemoryStore) AddRoot(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	s.indexNode(n)
	for _, r := range s.roots {
		if r == n.ID {
			return
		}
	}
	s.roots = append(s.roots, n.ID)
}

// AddNode adds a non-root node to the store.
func (s *MemoryStore) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	s.indexNode(n)
}

// AddChild adds n and appends it to the children of parentID.
func (s *MemoryStore) AddChild(parentID string, n *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, ok := s.nodes[parentID]
	if !ok {
		return ErrNotFound
	}
	s.nodes[n.ID] = n
	s.indexNode(n)
	parent.Children = append(parent.Children, n.ID)
	return nil
}

// indexNode assigns an internal bitmap ID and registers the node in permToNodes.
// Must be called with s.mu held.
func (s *MemoryStore) indexNode(n *Node) {
	perm := n.Permission()
	if perm == "" {
		return
	}
	intID, ok := s.nodeIntID[n.ID]
	if !ok {
		intID = s.nextIntID
		s.nextIntID++
		s.nodeIntID[n.ID] = intID
		for uint32(len(s.intToNodeID)) <= intID {
			s.intToNodeID = append(s.intToNodeID, "")
		}
		s.intToNodeID[intID] = n.ID
	}
	bm, exists := s.permToNodes[perm]
	if !exists {
		bm = roaring.New()
		s.permToNodes[perm] = bm
	}
	bm.Add(intID)
}

// NodesWithPermission implements Graph. IDs are returned in insertion order.
func (s *MemoryStore) NodesWithPermission(permission string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bm, ok := s.permToNodes[permission]
	if !ok {
		return nil
	}
	ids := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		intID := it.Next()
		if int(intID) < len(s.intToNodeID) && s.intToNodeID[intID] != "" {
			ids = append(ids, s.intToNodeID[intID])
		}
	}
	return ids
}

// Permissions implements Graph. The result is sorted.
func (s *MemoryStore) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms := make([]string, 0, len(s.permToNodes))
	for p := range s.permToNodes {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// GetNode implements Graph.
func (s *MemoryStore) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListChildren implements Graph. The empty ID and "root" list the top-level nodes.
func (s *MemoryStore) ListChildren(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" || id == string(api.KindRoot) {
		return s.roots, nil
	}

	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Children, nil
}

// Len returns the number of nodes, the implicit root excluded.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// IDs returns every node ID in depth-first pre-order.
func (s *MemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.nodes))
	var walk func(children []string)
	walk = func(children []string) {
		for _, id := range children {
			ids = append(ids, id)
			if n, ok := s.nodes[id]; ok {
				walk(n.Children)
			}
		}
	}
	walk(s.roots)
	return ids
}

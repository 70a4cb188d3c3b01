package graph

import (
	"testing"

	"github.com/agentic-research/keeper/api"
)

func TestMemoryStore_AddRootAndGetNode(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{
		ID:       "users",
		Kind:     api.KindSegment,
		Title:    "Users",
		Children: []string{"users.list"},
	})

	node, err := store.GetNode("users")
	if err != nil {
		t.Fatalf("GetNode(users) returned error: %v", err)
	}
	if node.Kind != api.KindSegment {
		t.Errorf("Kind = %q, want %q", node.Kind, api.KindSegment)
	}
	if len(node.Children) != 1 {
		t.Errorf("users children = %d, want 1", len(node.Children))
	}
}

func TestMemoryStore_GetNodeNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetNode("nonexistent")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ListChildrenRoot(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{ID: "users", Kind: api.KindSegment})
	store.AddRoot(&Node{ID: "settings", Kind: api.KindSegment})

	for _, id := range []string{"", "root"} {
		roots, err := store.ListChildren(id)
		if err != nil {
			t.Fatalf("ListChildren(%q) returned error: %v", id, err)
		}
		if len(roots) != 2 {
			t.Fatalf("ListChildren(%q) = %d, want 2", id, len(roots))
		}
		if roots[0] != "users" || roots[1] != "settings" {
			t.Errorf("roots = %v, want insertion order", roots)
		}
	}
}

func TestMemoryStore_AddRootDeduplicates(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{ID: "users", Kind: api.KindSegment})
	store.AddRoot(&Node{ID: "users", Kind: api.KindSegment})

	roots, _ := store.ListChildren("")
	if len(roots) != 1 {
		t.Errorf("roots = %d, want 1 (deduped)", len(roots))
	}
}

func TestMemoryStore_AddChild(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{ID: "users", Kind: api.KindSegment})

	if err := store.AddChild("users", &Node{ID: "app.users.list", Kind: api.KindLink}); err != nil {
		t.Fatalf("AddChild returned error: %v", err)
	}
	if err := store.AddChild("missing", &Node{ID: "x", Kind: api.KindLink}); err != ErrNotFound {
		t.Errorf("AddChild(missing) err = %v, want ErrNotFound", err)
	}

	children, err := store.ListChildren("users")
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 || children[0] != "app.users.list" {
		t.Errorf("children = %v, want [app.users.list]", children)
	}
	if got := store.IDs(); len(got) != 2 || got[1] != "app.users.list" {
		t.Errorf("IDs = %v, want pre-order [users app.users.list]", got)
	}
}

func TestMemoryStore_PermissionIndex(t *testing.T) {
	store := NewMemoryStore()
	store.AddRoot(&Node{ID: "users", Kind: api.KindSegment})
	_ = store.AddChild("users", &Node{
		ID:      "app.users.list",
		Kind:    api.KindLink,
		Options: map[string]any{PermissionOption: "users.view"},
	})
	_ = store.AddChild("users", &Node{
		ID:      "app.users.show",
		Kind:    api.KindView,
		Options: map[string]any{PermissionOption: "users.view"},
	})
	_ = store.AddChild("users", &Node{
		ID:      "app.users.edit",
		Kind:    api.KindLink,
		Options: map[string]any{PermissionOption: "users.edit"},
	})

	got := store.NodesWithPermission("users.view")
	if len(got) != 2 || got[0] != "app.users.list" || got[1] != "app.users.show" {
		t.Errorf("NodesWithPermission(users.view) = %v", got)
	}
	if got := store.NodesWithPermission("nobody"); got != nil {
		t.Errorf("NodesWithPermission(nobody) = %v, want nil", got)
	}

	perms := store.Permissions()
	if len(perms) != 2 || perms[0] != "users.edit" || perms[1] != "users.view" {
		t.Errorf("Permissions = %v, want sorted [users.edit users.view]", perms)
	}
}

func TestHotSwapGraph_Swap(t *testing.T) {
	first := NewMemoryStore()
	first.AddRoot(&Node{ID: "old", Kind: api.KindSegment})
	second := NewMemoryStore()
	second.AddRoot(&Node{ID: "new", Kind: api.KindSegment})

	h := NewHotSwapGraph(first)
	if _, err := h.GetNode("old"); err != nil {
		t.Fatalf("GetNode(old) before swap: %v", err)
	}

	h.Swap(second)
	if h.Generation() != 1 {
		t.Errorf("Generation = %d, want 1", h.Generation())
	}
	if _, err := h.GetNode("old"); err != ErrNotFound {
		t.Errorf("GetNode(old) after swap err = %v, want ErrNotFound", err)
	}
	roots, _ := h.ListChildren("")
	if len(roots) != 1 || roots[0] != "new" {
		t.Errorf("roots after swap = %v", roots)
	}
}

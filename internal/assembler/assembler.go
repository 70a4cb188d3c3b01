// Package assembler builds the sitemap from controller declarations.
//
// Assembly runs in two passes over the controllers handed out by a Locator.
// Pass 1 registers class-level segments and groups and records, per
// controller, the last one declared: the controller's fallback segment.
// Pass 2 registers the links and views of every action under the parent they
// name, or under the fallback segment when that parent cannot be resolved.
// The registered items are topologically sorted, folded into a tree rooted at
// "root" and replayed into a sitemap.Tree.
package assembler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentic-research/keeper/api"
	"github.com/agentic-research/keeper/internal/sitemap"
	"github.com/google/uuid"
)

// RootName is the name of the synthetic item every tree hangs from.
const RootName = "root"

var (
	ErrInvalidDeclaration = errors.New("invalid sitemap declaration")
	ErrBrokenTree         = errors.New("broken sitemap tree")
)

// Locator discovers controllers and their action methods.
type Locator interface {
	Controllers(namespace string) ([]*api.Controller, error)
	Actions(c *api.Controller) ([]*api.Action, error)
}

// Reader returns the declarations attached to controllers and actions.
type Reader interface {
	ClassAnnotations(c *api.Controller) []api.Annotation
	MethodAnnotations(a *api.Action) []api.Annotation
	// Guard returns the permission guarding a, or nil.
	Guard(a *api.Action) *api.Guard
}

// Item is a node of the sitemap before it is placed in the tree.
type Item struct {
	Name       string
	Kind       api.Kind
	Parent     string
	Title      string
	Options    map[string]any
	Controller string // declaring controller, empty for root
}

// Assembler builds sitemaps. The zero value is not usable: Locator and Reader
// are required.
type Assembler struct {
	// Namespace prefixes every route and selects the controllers to scan.
	Namespace string
	Locator   Locator
	Reader    Reader
	Logger    *slog.Logger
}

// Result is the outcome of a successful build.
type Result struct {
	BuildID string
	Tree    *Tree
	Methods []*Method
	// Fallbacks maps every controller name to its fallback segment.
	Fallbacks map[string]string
	// Substitutions lists the method-level parents that did not resolve and
	// were replaced by a fallback segment, in collection order.
	Substitutions []Substitution
}

// Substitution records one fallback: the item Route declared Parent, which
// named nothing, and was placed under Fallback instead.
type Substitution struct {
	Route    string
	Parent   string
	Fallback string
}

// Build scans the declarations, assembles the tree and replays it into dst.
// Nothing is replayed unless the whole tree assembled without error.
func (a *Assembler) Build(dst sitemap.Tree) (*Result, error) {
	res, err := a.Assemble(dst.Elements())
	if err != nil {
		return nil, err
	}
	if err := res.Tree.Replay(dst); err != nil {
		return nil, err
	}
	return res, nil
}

// Assemble runs both passes, sorts the items and folds them into a tree
// without touching any sitemap. elements are the nodes already present in
// the destination sitemap; links may name them as parents.
func (a *Assembler) Assemble(elements map[string]sitemap.Builder) (*Result, error) {
	if a.Locator == nil || a.Reader == nil {
		return nil, errors.New("assembler: locator and reader are required")
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buildID := uuid.NewString()
	logger = logger.With("build", buildID)

	c := newCollector(a.Namespace, a.Reader, elements, logger)

	controllers, err := a.Locator.Controllers(a.Namespace)
	if err != nil {
		return nil, fmt.Errorf("locate controllers: %w", err)
	}
	for _, ctrl := range controllers {
		actions, err := a.Locator.Actions(ctrl)
		if err != nil {
			return nil, fmt.Errorf("locate actions of %s: %w", ctrl.Name, err)
		}
		if err := c.collectClass(ctrl, actions); err != nil {
			return nil, err
		}
	}
	logger.Debug("class declarations collected", "controllers", len(controllers), "items", c.graph.Len())

	if err := c.collectMethods(); err != nil {
		return nil, err
	}
	logger.Debug("method declarations collected", "methods", len(c.methods), "items", c.graph.Len())

	sorted, err := c.graph.Sort()
	if err != nil {
		return nil, fmt.Errorf("sort sitemap: %w", err)
	}
	tree, err := Fold(sorted, func(name string) bool {
		_, ok := elements[name]
		return ok
	})
	if err != nil {
		return nil, err
	}
	logger.Info("sitemap assembled", "nodes", tree.Len()-1)

	return &Result{
		BuildID:       buildID,
		Tree:          tree,
		Methods:       c.methods,
		Fallbacks:     c.fallbacks,
		Substitutions: c.substitutions,
	}, nil
}

// rootItem is registered once per controller; re-registration is a no-op.
func rootItem() Item {
	return Item{Name: RootName, Kind: api.KindRoot}
}

package ingest

import (
	"github.com/agentic-research/keeper/api"
)

// Catalog is an in-memory declaration table. It locates controllers and
// actions and reads their declarations, so it serves as both the locator
// and the reader of an assembly.
type Catalog struct {
	controllers []*api.Controller
}

// NewCatalog returns a catalog holding the controllers of every decls, in order.
func NewCatalog(decls ...*api.Declarations) *Catalog {
	c := &Catalog{}
	for _, d := range decls {
		c.Add(d)
	}
	return c
}

// Add appends the controllers of d.
func (c *Catalog) Add(d *api.Declarations) {
	if d == nil {
		return
	}
	for i := range d.Controllers {
		ctrl := d.Controllers[i]
		c.controllers = append(c.controllers, &ctrl)
	}
}

// Declarations returns the catalog content as a single declaration set.
func (c *Catalog) Declarations() *api.Declarations {
	d := &api.Declarations{Controllers: make([]api.Controller, 0, len(c.controllers))}
	for _, ctrl := range c.controllers {
		d.Controllers = append(d.Controllers, *ctrl)
	}
	return d
}

// Len returns the number of controllers.
func (c *Catalog) Len() int { return len(c.controllers) }

// Controllers returns the controllers of namespace. Controllers without a
// namespace belong to every namespace.
func (c *Catalog) Controllers(namespace string) ([]*api.Controller, error) {
	out := make([]*api.Controller, 0, len(c.controllers))
	for _, ctrl := range c.controllers {
		if ctrl.Namespace == "" || ctrl.Namespace == namespace {
			out = append(out, ctrl)
		}
	}
	return out, nil
}

// Actions returns the action methods of ctrl.
func (c *Catalog) Actions(ctrl *api.Controller) ([]*api.Action, error) {
	out := make([]*api.Action, len(ctrl.Actions))
	for i := range ctrl.Actions {
		out[i] = &ctrl.Actions[i]
	}
	return out, nil
}

func (c *Catalog) ClassAnnotations(ctrl *api.Controller) []api.Annotation {
	return ctrl.Annotations
}

func (c *Catalog) MethodAnnotations(a *api.Action) []api.Annotation {
	return a.Annotations
}

// Guard returns the permission of a, or nil for unguarded actions.
func (c *Catalog) Guard(a *api.Action) *api.Guard {
	if a.Permission == "" {
		return nil
	}
	return &api.Guard{Permission: a.Permission}
}

package assembler

import "github.com/agentic-research/keeper/api"

// Method describes one action method as seen by the sitemap.
type Method struct {
	Source     *api.Action
	Name       string // method name
	Action     string // action name, defaults to Class.Name
	Controller string // controller name
	Class      string
	// Route is the navigation key: namespace + permission for guarded
	// methods, namespace + class + "." + method otherwise.
	Route      string
	// Permission is the guard permission, empty when the method is not
	// guarded. It is not derived from the action name.
	Permission string
}

// NewMethod synthesizes the descriptor of action a on controller c.
func NewMethod(namespace string, c *api.Controller, a *api.Action, guard *api.Guard) *Method {
	m := &Method{
		Source:     a,
		Name:       a.Method,
		Action:     a.Name,
		Controller: c.Name,
		Class:      c.Class,
	}
	if m.Action == "" {
		m.Action = c.Class + "." + a.Method
	}
	if guard != nil && guard.Permission != "" {
		m.Permission = guard.Permission
		m.Route = namespace + guard.Permission
	} else {
		m.Route = namespace + c.Class + "." + a.Method
	}
	return m
}

// Key is the controller-qualified method name relative parents resolve against.
func (m *Method) Key() string {
	return m.Controller + "." + m.Name
}

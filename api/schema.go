package api

import "fmt"

// Kind is the type of a sitemap node, or of the declaration producing it.
type Kind string

const (
	KindRoot    Kind = "root"
	KindSegment Kind = "segment"
	KindGroup   Kind = "group"
	KindLink    Kind = "link"
	KindView    Kind = "view"
)

// ParseKind maps a declaration keyword onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSegment, KindGroup, KindLink, KindView:
		return k, nil
	}
	return "", fmt.Errorf("unknown sitemap kind %q", s)
}

// IsContainer reports whether declarations of this kind belong on a controller.
func (k Kind) IsContainer() bool {
	return k == KindSegment || k == KindGroup
}

// IsLeaf reports whether declarations of this kind belong on an action.
func (k Kind) IsLeaf() bool {
	return k == KindLink || k == KindView
}

// Declarations is the root of a declaration file: every controller the
// sitemap is assembled from.
type Declarations struct {
	// Version of the declaration format.
	Version     string       `json:"version,omitempty" yaml:"version,omitempty"`
	Controllers []Controller `json:"controllers" yaml:"controllers"`
}

// Controller is the typed record of one controller class.
type Controller struct {
	// Name is the controller name used for relative parents and method keys.
	Name string `json:"name" yaml:"name"`
	// Class is the implementing type; it forms unguarded routes.
	Class string `json:"class" yaml:"class"`
	// Namespace restricts the controller to one keeper namespace. Empty
	// matches every namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	// Annotations are the class-level Segment/Group declarations, in order.
	Annotations []Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Actions     []Action     `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Action is the typed record of one action method on a controller.
type Action struct {
	// Method is the Go (or source) method name.
	Method string `json:"method" yaml:"method"`
	// Name is the action name from the action metadata. Optional.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Permission is the guard permission. Empty means unguarded.
	Permission  string       `json:"permission,omitempty" yaml:"permission,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Guard associates a permission with an action.
type Guard struct {
	Permission string
}

// Annotation is a single sitemap declaration. Segment and Group use Name;
// Link and View are named after the route of the action carrying them.
type Annotation struct {
	Kind     Kind           `json:"kind" yaml:"kind"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Parent   string         `json:"parent,omitempty" yaml:"parent,omitempty"`
	Relative bool           `json:"relative,omitempty" yaml:"relative,omitempty"`
	Title    string         `json:"title,omitempty" yaml:"title,omitempty"`
	Options  map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// HasAbsoluteParent reports whether Parent is used verbatim.
func (a Annotation) HasAbsoluteParent() bool {
	return a.Parent != "" && !a.Relative
}

// HasRelativeParent reports whether Parent is qualified by the controller name.
func (a Annotation) HasRelativeParent() bool {
	return a.Parent != "" && a.Relative
}

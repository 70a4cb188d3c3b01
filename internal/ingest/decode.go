package ingest

import (
	"fmt"

	"github.com/agentic-research/keeper/api"
)

// decodeController builds a controller from a generic JSON object, the shape
// shared by JSON documents and SQLite records.
func decodeController(m map[string]any) (api.Controller, error) {
	var c api.Controller
	var err error
	if c.Name, err = stringField(m, "name"); err != nil {
		return c, err
	}
	if c.Class, err = stringField(m, "class"); err != nil {
		return c, err
	}
	if c.Namespace, err = stringField(m, "namespace"); err != nil {
		return c, err
	}
	if c.Name == "" {
		c.Name = c.Class
	}
	if c.Name == "" {
		return c, fmt.Errorf("controller has neither name nor class")
	}
	if c.Annotations, err = annotationsField(m); err != nil {
		return c, fmt.Errorf("controller %s: %w", c.Name, err)
	}

	actions, err := listField(m, "actions")
	if err != nil {
		return c, fmt.Errorf("controller %s: %w", c.Name, err)
	}
	for i, raw := range actions {
		am, ok := raw.(map[string]any)
		if !ok {
			return c, fmt.Errorf("controller %s: action %d is %T, not an object", c.Name, i, raw)
		}
		a, err := decodeAction(am)
		if err != nil {
			return c, fmt.Errorf("controller %s: action %d: %w", c.Name, i, err)
		}
		c.Actions = append(c.Actions, a)
	}
	return c, nil
}

func decodeAction(m map[string]any) (api.Action, error) {
	var a api.Action
	var err error
	if a.Method, err = stringField(m, "method"); err != nil {
		return a, err
	}
	if a.Method == "" {
		return a, fmt.Errorf("action has no method")
	}
	if a.Name, err = stringField(m, "name"); err != nil {
		return a, err
	}
	if a.Permission, err = stringField(m, "permission"); err != nil {
		return a, err
	}
	if a.Annotations, err = annotationsField(m); err != nil {
		return a, fmt.Errorf("method %s: %w", a.Method, err)
	}
	return a, nil
}

func annotationsField(m map[string]any) ([]api.Annotation, error) {
	raw, err := listField(m, "annotations")
	if err != nil {
		return nil, err
	}
	var out []api.Annotation
	for i, r := range raw {
		am, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("annotation %d is %T, not an object", i, r)
		}
		ann, err := decodeAnnotation(am)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		out = append(out, ann)
	}
	return out, nil
}

func decodeAnnotation(m map[string]any) (api.Annotation, error) {
	var a api.Annotation
	kind, err := stringField(m, "kind")
	if err != nil {
		return a, err
	}
	if a.Kind, err = api.ParseKind(kind); err != nil {
		return a, err
	}
	if a.Name, err = stringField(m, "name"); err != nil {
		return a, err
	}
	if a.Parent, err = stringField(m, "parent"); err != nil {
		return a, err
	}
	if a.Title, err = stringField(m, "title"); err != nil {
		return a, err
	}
	switch r := m["relative"].(type) {
	case nil:
	case bool:
		a.Relative = r
	default:
		return a, fmt.Errorf("relative is %T, not a boolean", r)
	}
	switch o := m["options"].(type) {
	case nil:
	case map[string]any:
		a.Options = o
	default:
		return a, fmt.Errorf("options is %T, not an object", o)
	}
	return a, nil
}

func stringField(m map[string]any, key string) (string, error) {
	switch v := m[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s is %T, not a string", key, v)
	}
}

func listField(m map[string]any, key string) ([]any, error) {
	switch v := m[key].(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	default:
		return nil, fmt.Errorf("%s is %T, not a list", key, v)
	}
}

// normalize fills defaults and checks the declarations decoded straight into
// the api types.
func normalize(d *api.Declarations) error {
	for i := range d.Controllers {
		c := &d.Controllers[i]
		if c.Name == "" {
			c.Name = c.Class
		}
		if c.Name == "" {
			return fmt.Errorf("controller %d has neither name nor class", i)
		}
		if err := checkKinds(c.Annotations); err != nil {
			return fmt.Errorf("controller %s: %w", c.Name, err)
		}
		for j := range c.Actions {
			a := &c.Actions[j]
			if a.Method == "" {
				return fmt.Errorf("controller %s: action %d has no method", c.Name, j)
			}
			if err := checkKinds(a.Annotations); err != nil {
				return fmt.Errorf("controller %s: method %s: %w", c.Name, a.Method, err)
			}
		}
	}
	return nil
}

func checkKinds(anns []api.Annotation) error {
	for i, ann := range anns {
		if _, err := api.ParseKind(string(ann.Kind)); err != nil {
			return fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return nil
}

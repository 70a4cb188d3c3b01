package ingest

import (
	"fmt"

	"github.com/agentic-research/keeper/api"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// DefaultSelector selects the controller records of a declaration document.
const DefaultSelector = "$.controllers[*]"

// JsonWalker implements Walker for JSON-like data.
type JsonWalker struct{}

func NewJsonWalker() *JsonWalker {
	return &JsonWalker{}
}

// Query implements Walker.
func (w *JsonWalker) Query(root any, selector string) ([]Match, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	results := x.Get(root)
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = &jsonMatch{value: r}
	}
	return matches, nil
}

type jsonMatch struct {
	value any
}

// Values implements Match.
func (m *jsonMatch) Values() map[string]any {
	if v, ok := m.value.(map[string]any); ok {
		return v
	}
	return map[string]any{"value": m.value}
}

// Context implements Match.
func (m *jsonMatch) Context() any {
	return m.value
}

// ParseJSON decodes the controllers selected by selector from a JSON
// document. An empty selector means DefaultSelector.
func ParseJSON(content []byte, selector string) (*api.Declarations, error) {
	doc, err := oj.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return selectControllers(doc, selector)
}

func selectControllers(doc any, selector string) (*api.Declarations, error) {
	if selector == "" {
		selector = DefaultSelector
	}
	matches, err := NewJsonWalker().Query(doc, selector)
	if err != nil {
		return nil, err
	}
	decls := &api.Declarations{}
	if root, ok := doc.(map[string]any); ok {
		decls.Version, _ = root["version"].(string)
	}
	for i, m := range matches {
		if _, ok := m.Context().(map[string]any); !ok {
			return nil, fmt.Errorf("match %d of %s is %T, not an object", i, selector, m.Context())
		}
		ctrl, err := decodeController(m.Values())
		if err != nil {
			return nil, fmt.Errorf("controller %d: %w", i, err)
		}
		decls.Controllers = append(decls.Controllers, ctrl)
	}
	return decls, nil
}

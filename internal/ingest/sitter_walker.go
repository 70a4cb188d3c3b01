package ingest

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// SitterWalker implements Walker for Tree-sitter parsed code.
type SitterWalker struct{}

func NewSitterWalker() *SitterWalker {
	return &SitterWalker{}
}

// SitterRoot is what a SitterWalker queries: a node, the source it was
// parsed from and the language the query is compiled for.
type SitterRoot struct {
	Node   *sitter.Node
	Source []byte
	Lang   *sitter.Language
}

// Query implements Walker. Every capture of a match is returned as its source
// text; the capture named "scope" becomes the match context.
func (w *SitterWalker) Query(root any, selector string) ([]Match, error) {
	var sr SitterRoot
	switch r := root.(type) {
	case SitterRoot:
		sr = r
	case *SitterRoot:
		sr = *r
	default:
		return nil, fmt.Errorf("root must be SitterRoot, got %T", root)
	}

	q, err := sitter.NewQuery([]byte(selector), sr.Lang)
	if err != nil {
		return nil, fmt.Errorf("invalid query '%s': %w", selector, err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, sr.Node)

	var matches []Match
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		sm := &sitterMatch{
			captures: make(map[string]*sitter.Node, len(m.Captures)),
			root:     sr,
		}
		for _, c := range m.Captures {
			sm.captures[q.CaptureNameForId(c.Index)] = c.Node
		}
		matches = append(matches, sm)
	}
	return matches, nil
}

type sitterMatch struct {
	captures map[string]*sitter.Node
	root     SitterRoot
}

// Values implements Match.
func (m *sitterMatch) Values() map[string]any {
	result := make(map[string]any, len(m.captures))
	for name, n := range m.captures {
		result[name] = m.text(n)
	}
	return result
}

// Context implements Match.
func (m *sitterMatch) Context() any {
	scope, ok := m.captures["scope"]
	if !ok {
		return nil
	}
	return SitterRoot{Node: scope, Source: m.root.Source, Lang: m.root.Lang}
}

func (m *sitterMatch) text(n *sitter.Node) string {
	start, end := n.StartByte(), n.EndByte()
	if start > end || end > uint32(len(m.root.Source)) {
		return ""
	}
	return string(m.root.Source[start:end])
}

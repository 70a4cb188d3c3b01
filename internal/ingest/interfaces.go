package ingest

// Walker abstracts over JSONPath (declaration data) and Tree-sitter (Go source).
// It provides a unified way to query a tree-like structure and extract the
// values declarations are built from.
type Walker interface {
	// Query executes a selector (query) against the given root node and returns a list of matches.
	// The root node can be a SitterRoot (for code) or a generic Go object (for data).
	Query(root any, selector string) ([]Match, error)
}

// Match represents a single result from a query.
type Match interface {
	// Values returns the captured values.
	// For Tree-sitter, these are the named captures from the query (e.g., "name" -> "UsersController").
	// For JSONPath, if the match is an object, its fields are returned as values.
	// If the match is a primitive, it is returned under the "value" key.
	Values() map[string]any

	// Context returns the underlying object/node matched.
	// For JSONPath, this is the matched object.
	// For Tree-sitter, this is the node captured as @scope.
	Context() any
}

package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/agentic-research/keeper/api"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML declaration file. Unknown fields are rejected.
func ParseYAML(content []byte) (*api.Declarations, error) {
	var decls api.Declarations
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&decls); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := normalize(&decls); err != nil {
		return nil, err
	}
	return &decls, nil
}

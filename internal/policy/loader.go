package policy

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Parse decodes and validates a YAML policy document.
// Unknown fields are rejected so that typos do not silently drop overrides.
func Parse(data []byte, opts ...Option) (*Table, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding policy: %w", err)
	}
	return New(doc, opts...)
}

// Load reads a policy file. An empty path yields the embedded default policy.
func Load(path string, opts ...Option) (*Table, error) {
	if path == "" {
		return Default(opts...)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	table, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return table, nil
}

// Default returns the embedded default policy.
func Default(opts ...Option) (*Table, error) {
	return Parse(defaultsYAML, opts...)
}

// DefaultYAML exposes the embedded policy, e.g. as a starting point for operators.
func DefaultYAML() []byte {
	return bytes.Clone(defaultsYAML)
}

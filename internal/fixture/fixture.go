// Package fixture describes Worlds in YAML and builds them through the
// public store operations. The CLI import command and the cascade tests
// both use it.
package fixture

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// World is the YAML description of World contents.
type World struct {
	// Name is informational; the store does not record it.
	Name string `yaml:"name,omitempty"`

	// Description explains what the fixture sets up.
	Description string `yaml:"description,omitempty"`

	Categories  []Category   `yaml:"categories"`
	Connections []Connection `yaml:"connections,omitempty"`
}

// Category is created, or reused when the store already has one with the
// same name (for example a default Category).
type Category struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Fields      []string  `yaml:"fields,omitempty"`
	Articles    []Article `yaml:"articles,omitempty"`
}

// Article values are keyed by field name.
type Article struct {
	Name     string            `yaml:"name"`
	Values   map[string]string `yaml:"values,omitempty"`
	Snippets []Snippet         `yaml:"snippets,omitempty"`
}

type Snippet struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content,omitempty"`
}

// Connection refers to Articles by name. MainRole is the role of Main as
// seen from Other; OtherRole is the role of Other as seen from Main.
type Connection struct {
	Main        string `yaml:"main"`
	Other       string `yaml:"other"`
	MainRole    string `yaml:"main_role,omitempty"`
	OtherRole   string `yaml:"other_role,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Load reads and validates a fixture file.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates fixture YAML. Unknown keys are rejected.
func Parse(data []byte) (*World, error) {
	var w World
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(&w); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &w, nil
}

// Validate checks references inside the fixture. Article names must be
// unique across the fixture because connections refer to them by name.
func Validate(w *World) error {
	categories := make(map[string]bool, len(w.Categories))
	articles := make(map[string]bool)

	for i, cat := range w.Categories {
		if cat.Name == "" {
			return fmt.Errorf("categories[%d]: name is required", i)
		}
		if categories[cat.Name] {
			return fmt.Errorf("categories[%d]: duplicate category %q", i, cat.Name)
		}
		categories[cat.Name] = true

		fields := make(map[string]bool, len(cat.Fields))
		for _, f := range cat.Fields {
			if f == "" {
				return fmt.Errorf("category %q: empty field name", cat.Name)
			}
			if fields[f] {
				return fmt.Errorf("category %q: duplicate field %q", cat.Name, f)
			}
			fields[f] = true
		}

		for j, art := range cat.Articles {
			if art.Name == "" {
				return fmt.Errorf("category %q: articles[%d]: name is required", cat.Name, j)
			}
			if articles[art.Name] {
				return fmt.Errorf("category %q: duplicate article %q", cat.Name, art.Name)
			}
			articles[art.Name] = true

			for field := range art.Values {
				if !fields[field] {
					return fmt.Errorf("article %q: value for undeclared field %q", art.Name, field)
				}
			}

			snippets := make(map[string]bool, len(art.Snippets))
			for _, sn := range art.Snippets {
				if sn.Name == "" {
					return fmt.Errorf("article %q: snippet name is required", art.Name)
				}
				if snippets[sn.Name] {
					return fmt.Errorf("article %q: duplicate snippet %q", art.Name, sn.Name)
				}
				snippets[sn.Name] = true
			}
		}
	}

	pairs := make(map[[2]string]bool, len(w.Connections))
	for i, c := range w.Connections {
		if !articles[c.Main] {
			return fmt.Errorf("connections[%d]: unknown article %q", i, c.Main)
		}
		if !articles[c.Other] {
			return fmt.Errorf("connections[%d]: unknown article %q", i, c.Other)
		}
		if c.Main == c.Other {
			return fmt.Errorf("connections[%d]: article %q connected to itself", i, c.Main)
		}
		key := [2]string{c.Main, c.Other}
		if c.Other < c.Main {
			key = [2]string{c.Other, c.Main}
		}
		if pairs[key] {
			return fmt.Errorf("connections[%d]: %q and %q are already connected", i, c.Main, c.Other)
		}
		pairs[key] = true
	}
	return nil
}

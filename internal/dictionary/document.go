package dictionary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a generic schema description, as exported by the dictionary
// service. Only the parts relevant to keys are modelled.
type Document struct {
	Version string       `json:"version" yaml:"version"`
	Files   []FileSchema `json:"files" yaml:"files"`
}

// FileSchema describes one file type.
type FileSchema struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
	// UniqueFields is the primary key; empty means none.
	UniqueFields []string         `json:"unique_fields" yaml:"unique_fields"`
	Relations    []RelationSchema `json:"relations" yaml:"relations"`
	// RowChecks overrides the per-row sanity check (default on).
	RowChecks *bool `json:"row_checks,omitempty" yaml:"row_checks,omitempty"`
}

// RelationSchema is an outgoing reference.
type RelationSchema struct {
	Fields      []string `json:"fields" yaml:"fields"`
	Other       string   `json:"other" yaml:"other"`
	OtherFields []string `json:"other_fields" yaml:"other_fields"`
	// Bidirectional makes the relation surjective.
	Bidirectional bool `json:"bidirectional" yaml:"bidirectional"`
	// Optional marks a reference checked only when provided.
	Optional bool `json:"optional" yaml:"optional"`
	// Condition gates the relation per row, see package condition.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// LoadDocument reads a JSON or YAML document, picked by file extension.
func LoadDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary %s: %w", path, err)
	}
	defer f.Close()
	ext := strings.ToLower(filepath.Ext(path))
	return DecodeDocument(f, ext == ".yaml" || ext == ".yml")
}

// DecodeDocument decodes a document from r.
func DecodeDocument(r io.Reader, isYAML bool) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	var doc Document
	if isYAML {
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode dictionary yaml: %w", err)
		}
		return &doc, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode dictionary json: %w", err)
	}
	return &doc, nil
}

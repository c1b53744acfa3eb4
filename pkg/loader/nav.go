// Package loader reads navigation documents from YAML, JSON or SQLite and
// manages the project's .gitignore entry for local state.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/sitenav/pkg/model"
)

// Format is a navigation document encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// DetectFormat picks the encoding from the file extension, falling back to
// sniffing the first non-space byte.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile reads and validates a navigation document.
func LoadFile(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read nav file: %w", err)
	}
	doc, err := Parse(data, DetectFormat(path, data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a document. A bare list of items is accepted as a
// document with no title and no active record.
func Parse(data []byte, format Format) (*model.Document, error) {
	var doc model.Document
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &doc, nil
	}

	switch format {
	case FormatJSON:
		if trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &doc.Items); err != nil {
				return nil, fmt.Errorf("invalid nav JSON: %w", err)
			}
		} else if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("invalid nav JSON: %w", err)
		}
	default:
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("invalid nav YAML: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Decode(&doc.Items); err != nil {
				return nil, fmt.Errorf("invalid nav YAML: %w", err)
			}
		} else if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid nav YAML: %w", err)
		}
	}

	if err := model.ValidateItems(doc.Items); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WriteFile encodes doc in the format implied by path.
func WriteFile(path string, doc *model.Document) error {
	var (
		data []byte
		err  error
	)
	if DetectFormat(path, nil) == FormatJSON {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encoding nav document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

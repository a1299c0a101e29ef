// Package schema synthesizes the machine-readable capability document
// describing every registered tool. Generation is deterministic: tools are
// emitted in name order and parameters in declaration order, so two calls
// against an unchanged registry produce byte-identical output.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/triage-ai/toolgate/internal/registry"
	"gopkg.in/yaml.v3"
)

// DocumentVersion identifies the capability document format.
const DocumentVersion = "1"

// ParameterEntry describes one tool parameter in the document.
type ParameterEntry struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
}

// OperationEntry describes one tool in the document.
type OperationEntry struct {
	Name           string           `json:"name" yaml:"name"`
	Description    string           `json:"description,omitempty" yaml:"description,omitempty"`
	Category       string           `json:"category" yaml:"category"`
	Classification string           `json:"classification" yaml:"classification"`
	SideEffect     bool             `json:"side_effect" yaml:"side_effect"`
	Parameters     []ParameterEntry `json:"parameters" yaml:"parameters"`
	Endpoint       string           `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Document is the single internal representation every encoding renders.
// Fields are slices, never maps, to keep output ordering stable.
type Document struct {
	Version    string           `json:"version" yaml:"version"`
	ToolCount  int              `json:"tool_count" yaml:"tool_count"`
	ExecuteURL string           `json:"execute_url,omitempty" yaml:"execute_url,omitempty"`
	Tools      []OperationEntry `json:"tools" yaml:"tools"`
}

// Synthesizer builds capability documents from the registry.
type Synthesizer struct {
	registry *registry.Registry
}

// NewSynthesizer creates a Synthesizer over reg.
func NewSynthesizer(reg *registry.Registry) *Synthesizer {
	return &Synthesizer{registry: reg}
}

// Generate builds the document. baseURL affects only the embedded absolute
// references (execute URL, per-tool endpoints), never the tool content;
// pass "" to omit them.
func (s *Synthesizer) Generate(baseURL string) *Document {
	baseURL = strings.TrimSuffix(baseURL, "/")

	doc := &Document{Version: DocumentVersion}
	if baseURL != "" {
		doc.ExecuteURL = baseURL + "/v1/execute"
	}

	for d := range s.registry.List(nil) {
		entry := OperationEntry{
			Name:           d.Name,
			Description:    d.Description,
			Category:       d.Category,
			Classification: string(d.Classification),
			SideEffect:     d.SideEffect,
			Parameters:     make([]ParameterEntry, 0, len(d.Parameters)),
		}
		for _, p := range d.Parameters {
			entry.Parameters = append(entry.Parameters, ParameterEntry{
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
				Required:    p.Required,
				Default:     p.Default,
			})
		}
		if baseURL != "" {
			entry.Endpoint = baseURL + "/v1/tools/" + d.Name
		}
		doc.Tools = append(doc.Tools, entry)
	}

	doc.ToolCount = len(doc.Tools)
	if doc.Tools == nil {
		doc.Tools = []OperationEntry{}
	}
	return doc
}

// EncodeJSON renders the document as indented JSON.
func (d *Document) EncodeJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("EncodeJSON: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeYAML renders the document as YAML.
func (d *Document) EncodeYAML() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("EncodeYAML: %w", err)
	}
	return out, nil
}

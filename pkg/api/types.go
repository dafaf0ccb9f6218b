// Package api implements the HTTP REST API and Prometheus metrics endpoint.
package api

import (
	"github.com/confloom/confloom/pkg/conftree"
	"github.com/confloom/confloom/pkg/diff"
	"github.com/confloom/confloom/pkg/extract"
)

// Response is the standard JSON response envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ConfigSummary describes a stored configuration in list responses.
type ConfigSummary struct {
	Name        string `json:"name"`
	Bytes       int    `json:"bytes"`
	Diagnostics int    `json:"diagnostics"`
	LoadedAt    string `json:"loaded_at"`
}

// ConfigDetail holds a stored configuration with its parse diagnostics.
type ConfigDetail struct {
	Name        string                `json:"name"`
	Bytes       int                   `json:"bytes"`
	Diagnostics []conftree.Diagnostic `json:"diagnostics"`
	LoadedAt    string                `json:"loaded_at"`
}

// PutConfigRequest holds a configuration upload.
type PutConfigRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ParseRequest holds inline configuration text to parse.
type ParseRequest struct {
	Text string `json:"text"`
}

// ParseResult holds the parsed tree plus any diagnostics.
type ParseResult struct {
	Tree        *conftree.Node        `json:"tree"`
	Diagnostics []conftree.Diagnostic `json:"diagnostics"`
}

// RenderRequest holds a tree to render back to configuration text.
type RenderRequest struct {
	Tree *conftree.Node `json:"tree"`
}

// TextResponse wraps rendered text output.
type TextResponse struct {
	Output string `json:"output"`
}

// DiffRequest names two stored configurations to compare. The optional
// fields map onto diff options; absent means the package default.
type DiffRequest struct {
	A                string   `json:"a"`
	B                string   `json:"b"`
	OrderSignificant *bool    `json:"order_significant,omitempty"`
	MaxDepth         int      `json:"max_depth,omitempty"`
	IgnoredAttrs     []string `json:"ignored_attrs,omitempty"`
}

// DiffResult holds the changes between two configurations.
type DiffResult struct {
	Changes []diff.Change `json:"changes"`
}

// InterfacesResult holds the per-interface attribute table extracted
// from a diff.
type InterfacesResult struct {
	Interfaces extract.Table `json:"interfaces"`
}

// TemplateRequest asks for a template synthesized from the diff of two
// stored configurations, parameterized on one interface.
type TemplateRequest struct {
	A         string         `json:"a"`
	B         string         `json:"b"`
	Interface string         `json:"interface"`
	Vars      map[string]any `json:"vars,omitempty"`
}

// TemplateResult holds a synthesized template.
type TemplateResult struct {
	Interface  string         `json:"interface"`
	Text       string         `json:"text"`
	Tree       *conftree.Node `json:"tree,omitempty"`
	Interfaces extract.Table  `json:"interfaces"`
}

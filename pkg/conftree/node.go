// Package conftree models vendor network-device configuration text as a
// typed tree. It contains the line-oriented parser, the inverse serializer,
// and the generic JSON-shaped view of a tree consumed by the differ.
package conftree

import (
	"encoding/json"
	"fmt"
)

// Kind classifies a configuration tree node.
type Kind int

const (
	// KindRoot is the single unnamed node at the top of every tree.
	KindRoot Kind = iota
	// KindBlock is a braced stanza with a single-token header, e.g. "interfaces {".
	KindBlock
	// KindNamedBlock is a braced stanza with a qualified header, e.g. "unit 0 {".
	KindNamedBlock
	// KindPatternBlock is a braced stanza whose qualifier is an
	// angle-bracketed pattern, e.g. "interface <ge-*> {".
	KindPatternBlock
	// KindDirective is a leaf statement with an argument, e.g. "family inet;".
	KindDirective
	// KindFlag is a bare leaf statement, e.g. "disable;".
	KindFlag
	// KindMarker is a synthetic loop-boundary node inserted during template
	// synthesis. It renders exactly like a flag.
	KindMarker
)

var kindNames = map[Kind]string{
	KindRoot:         "root",
	KindBlock:        "block",
	KindNamedBlock:   "named-block",
	KindPatternBlock: "pattern-block",
	KindDirective:    "directive",
	KindFlag:         "flag",
	KindMarker:       "marker",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindFromString returns the Kind named by s.
func KindFromString(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// MarshalJSON renders the kind as its string name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses the string name form.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := KindFromString(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML renders the kind as its string name, mirroring MarshalJSON.
func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// Node is a single statement or stanza in a configuration tree. Nodes are
// value objects: a node is fully described by its kind, name, value and
// children, and carries no reference to its parent. Child order is
// semantically significant — it is statement order in the rendered text.
type Node struct {
	Kind     Kind    `json:"kind"`
	Name     string  `json:"name,omitempty"`
	Value    string  `json:"value,omitempty"`
	Children []*Node `json:"children,omitempty"`

	// Line is the 1-based source line the node was parsed from, 0 for
	// synthetic nodes. Location metadata only: it is excluded from Equal
	// and ignored by the differ's default ignore-list.
	Line int `json:"line,omitempty"`
}

// Clone returns a deep copy of the node and everything below it.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:  n.Kind,
		Name:  n.Name,
		Value: n.Value,
		Line:  n.Line,
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Equal reports structural equality: kind, name, value and children, in
// order. Source line numbers are ignored, so two parses of differently
// formatted but equivalent text compare equal.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Name != other.Name || n.Value != other.Value {
		return false
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i, child := range n.Children {
		if !child.Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// FindChild returns the first direct child with the given name, or nil.
func (n *Node) FindChild(name string) *Node {
	for _, child := range n.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Generic converts the subtree into the JSON shape the differ walks:
// map[string]any with "kind", "name", "value" and "children" keys on every
// node (empty name/value become nil, children is always a []any), plus
// "line" when the node has one. Two trees diffed in this form produce
// change records whose structural paths alternate "children" keys and
// array indices.
func (n *Node) Generic() any {
	m := map[string]any{
		"kind":     n.Kind.String(),
		"name":     nullableString(n.Name),
		"value":    nullableString(n.Value),
		"children": genericChildren(n.Children),
	}
	if n.Line > 0 {
		m["line"] = n.Line
	}
	return m
}

func genericChildren(children []*Node) []any {
	out := make([]any, len(children))
	for i, child := range children {
		out[i] = child.Generic()
	}
	return out
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

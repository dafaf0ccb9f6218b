package diff

import (
	"encoding/json"
	"testing"

	"github.com/confloom/confloom/pkg/conftree"
)

func parseGeneric(t *testing.T, text string) any {
	t.Helper()
	root, diags := conftree.NewParser(text).Parse()
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return root.Generic()
}

func TestDiffIdentity(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"canonical", "interfaces {\n    ge-0/0/0 {\n        unit 0 {\n            family inet;\n        }\n    }\n}"},
		{"flags and directives", "system {\n    services {\n        ssh;\n    }\n    host-name edge1;\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := parseGeneric(t, tt.text)
			if changes := Diff(v, v); len(changes) != 0 {
				t.Errorf("Diff(x, x) should be empty, got %d changes: %+v", len(changes), changes)
			}
		})
	}
}

// Two parses of the same statements with different formatting differ only
// in line metadata, which the default ignore-list hides.
func TestDiffIdentityAcrossFormatting(t *testing.T) {
	a := parseGeneric(t, "system {\n    host-name edge1;\n}")
	b := parseGeneric(t, "\n\n\nsystem {\n\n\n    host-name edge1;\n}")
	if changes := Diff(a, b); len(changes) != 0 {
		t.Errorf("formatting-only difference should produce no changes, got %+v", changes)
	}
}

func TestDiffCanonicalReplace(t *testing.T) {
	a := parseGeneric(t, "unit 0 {\n    family inet;\n}")
	b := parseGeneric(t, "unit 0 {\n    family inet6;\n}")

	changes := Diff(a, b)
	if len(changes) != 1 {
		t.Fatalf("expected exactly 1 change, got %d: %+v", len(changes), changes)
	}
	c := changes[0]
	if c.Type != ChangeReplace {
		t.Errorf("expected replace, got %s", c.Type)
	}
	if c.OldValue != "inet" || c.NewValue != "inet6" {
		t.Errorf("expected inet -> inet6, got %v -> %v", c.OldValue, c.NewValue)
	}
	if got := c.SemanticPath.String(); got != "unit.0.family" {
		t.Errorf("semantic path = %q, want unit.0.family", got)
	}
	last := c.SemanticPath[len(c.SemanticPath)-1]
	if !last.IsKey || last.Key != "family" {
		t.Errorf("semantic path should end in family, got %v", last)
	}
	if got := c.StructuralPath.String(); got != "children.0.children.0.value" {
		t.Errorf("structural path = %q", got)
	}
}

// The full semantic path through an interfaces stanza: unit's value
// becomes its own named segment, and repeated container labels collapse.
func TestDiffSemanticPathThroughInterfaces(t *testing.T) {
	a := parseGeneric(t, "interfaces {\n    ge-0/0/0 {\n        unit 0 {\n            family inet;\n        }\n    }\n}")
	b := parseGeneric(t, "interfaces {\n    ge-0/0/0 {\n        unit 0 {\n            family inet6;\n        }\n    }\n}")

	changes := Diff(a, b)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d: %+v", len(changes), changes)
	}
	if got := changes[0].SemanticPath.String(); got != "interfaces.ge-0/0/0.unit.0.family" {
		t.Errorf("semantic path = %q, want interfaces.ge-0/0/0.unit.0.family", got)
	}
}

func TestDiffInterfaceRename(t *testing.T) {
	a := parseGeneric(t, "interfaces {\n    ge-0/0/0 {\n        unit 0 {\n            family inet;\n        }\n    }\n}")
	b := parseGeneric(t, "interfaces {\n    ge-0/0/1 {\n        unit 0 {\n            family inet;\n        }\n    }\n}")

	changes := Diff(a, b)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d: %+v", len(changes), changes)
	}
	c := changes[0]
	if c.Type != ChangeReplace || c.OldValue != "ge-0/0/0" || c.NewValue != "ge-0/0/1" {
		t.Fatalf("unexpected change: %+v", c)
	}
	if got := c.SemanticPath.String(); got != "interfaces.ge-0/0/0.name" {
		t.Errorf("semantic path = %q, want interfaces.ge-0/0/0.name", got)
	}
}

func TestDiffAntisymmetry(t *testing.T) {
	a := parseGeneric(t, "unit 0 {\n    family inet;\n    mtu 1500;\n}")
	b := parseGeneric(t, "unit 0 {\n    family inet6;\n    mtu 9192;\n}")

	forward := Diff(a, b)
	backward := Diff(b, a)
	if len(forward) == 0 || len(forward) != len(backward) {
		t.Fatalf("expected matching non-empty change lists, got %d and %d", len(forward), len(backward))
	}
	for i, fc := range forward {
		bc := backward[i]
		if fc.Type != ChangeReplace || bc.Type != ChangeReplace {
			t.Fatalf("expected replaces, got %s and %s", fc.Type, bc.Type)
		}
		if !fc.StructuralPath.Equal(bc.StructuralPath) {
			t.Errorf("change %d: paths diverge: %s vs %s", i, fc.StructuralPath, bc.StructuralPath)
		}
		if fc.OldValue != bc.NewValue || fc.NewValue != bc.OldValue {
			t.Errorf("change %d: old/new not swapped: %+v vs %+v", i, fc, bc)
		}
	}
}

func TestDiffTypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"object vs primitive", map[string]any{"a": 1}, "scalar"},
		{"array vs object", []any{1, 2}, map[string]any{"a": 1}},
		{"primitive vs array", 7, []any{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := Diff(tt.a, tt.b)
			if len(changes) != 1 || changes[0].Type != ChangeReplace {
				t.Fatalf("expected a single replace without recursion, got %+v", changes)
			}
			if len(changes[0].StructuralPath) != 0 {
				t.Errorf("replace should sit at the root path, got %s", changes[0].StructuralPath)
			}
		})
	}
}

func TestDiffPrimitives(t *testing.T) {
	tests := []struct {
		name    string
		a, b    any
		changes int
	}{
		{"equal strings", "x", "x", 0},
		{"unequal strings", "x", "y", 1},
		{"nil both sides", nil, nil, 0},
		{"nil vs value", nil, "x", 1},
		{"int vs float64 same value", 5, float64(5), 0},
		{"int vs float64 different value", 5, float64(6), 1},
		{"bools", true, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Diff(tt.a, tt.b)); got != tt.changes {
				t.Errorf("expected %d changes, got %d", tt.changes, got)
			}
		})
	}
}

func TestDiffArrayOrdered(t *testing.T) {
	a := []any{"a", "b"}
	b := []any{"a", "b", "c", "d"}

	changes := Diff(a, b)
	if len(changes) != 2 {
		t.Fatalf("expected 2 adds, got %+v", changes)
	}
	for i, c := range changes {
		if c.Type != ChangeAdd {
			t.Errorf("change %d: expected add, got %s", i, c.Type)
		}
	}
	if changes[0].NewValue != "c" || changes[1].NewValue != "d" {
		t.Errorf("unexpected added values: %+v", changes)
	}
	if got := changes[1].StructuralPath.String(); got != "3" {
		t.Errorf("second add path = %q, want 3", got)
	}

	reverse := Diff(b, a)
	for i, c := range reverse {
		if c.Type != ChangeRemove {
			t.Errorf("reverse change %d: expected remove, got %s", i, c.Type)
		}
	}
}

func TestDiffObjectAttributes(t *testing.T) {
	a := map[string]any{"shared": 1, "leftOnly": true, "line": 3}
	b := map[string]any{"shared": 1, "rightOnly": "x", "line": 99}

	changes := Diff(a, b)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %+v", changes)
	}

	byPath := map[string]Change{}
	for _, c := range changes {
		byPath[c.StructuralPath.String()] = c
	}
	if c, ok := byPath["leftOnly"]; !ok || c.Type != ChangeRemoveAttribute || c.OldValue != true {
		t.Errorf("leftOnly: %+v", c)
	}
	if c, ok := byPath["rightOnly"]; !ok || c.Type != ChangeAddAttribute || c.NewValue != "x" {
		t.Errorf("rightOnly: %+v", c)
	}
	if _, ok := byPath["line"]; ok {
		t.Error("ignored attribute 'line' should not produce a change")
	}
}

func TestDiffCustomIgnoredAttrs(t *testing.T) {
	a := map[string]any{"keep": 1, "noise": "a"}
	b := map[string]any{"keep": 2, "noise": "b"}

	changes := Diff(a, b, WithIgnoredAttrs("noise"))
	if len(changes) != 1 || changes[0].StructuralPath.String() != "keep" {
		t.Fatalf("expected only the keep change, got %+v", changes)
	}
}

func TestDiffMaxDepth(t *testing.T) {
	a := map[string]any{"outer": map[string]any{"inner": map[string]any{"leaf": 1}}}
	b := map[string]any{"outer": map[string]any{"inner": map[string]any{"leaf": 2}}}

	unlimited := Diff(a, b)
	if len(unlimited) != 1 || unlimited[0].StructuralPath.String() != "outer.inner.leaf" {
		t.Fatalf("unlimited diff wrong: %+v", unlimited)
	}

	truncated := Diff(a, b, WithMaxDepth(2))
	if len(truncated) != 1 {
		t.Fatalf("expected a single opaque replace, got %+v", truncated)
	}
	if got := truncated[0].StructuralPath.String(); got != "outer.inner" {
		t.Errorf("opaque replace path = %q, want outer.inner", got)
	}

	// Equal subtrees below the limit stay silent.
	if changes := Diff(a, a, WithMaxDepth(1)); len(changes) != 0 {
		t.Errorf("identical values should stay empty under truncation, got %+v", changes)
	}
}

func TestDiffOrderInsensitiveStability(t *testing.T) {
	a := parseGeneric(t, `interfaces {
    ge-0/0/0 {
        unit 0 {
            family inet;
        }
    }
    ge-0/0/1 {
        unit 0 {
            family inet;
        }
    }
}`)
	b := parseGeneric(t, `interfaces {
    ge-0/0/1 {
        unit 0 {
            family inet;
        }
    }
    ge-0/0/0 {
        unit 0 {
            family inet;
        }
    }
}`)

	changes := Diff(a, b, WithOrderSignificant(false))
	for _, c := range changes {
		if c.Type == ChangeAdd || c.Type == ChangeRemove {
			t.Errorf("reordered identical elements should not add/remove: %+v", c)
		}
	}
	// The two elements swap names pairwise under index matching in
	// order-significant mode; similarity matching must instead pair each
	// element with its twin and emit nothing at all.
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %+v", changes)
	}
}

func TestDiffOrderInsensitiveAlteredLeaf(t *testing.T) {
	a := parseGeneric(t, `interfaces {
    ge-0/0/0 {
        unit 0 {
            family inet;
        }
    }
    ge-0/0/1 {
        unit 0 {
            family inet;
        }
    }
}`)
	b := parseGeneric(t, `interfaces {
    ge-0/0/1 {
        unit 0 {
            family inet6;
        }
    }
    ge-0/0/0 {
        unit 0 {
            family inet;
        }
    }
}`)

	changes := Diff(a, b, WithOrderSignificant(false))
	if len(changes) != 1 {
		t.Fatalf("expected just the altered leaf, got %+v", changes)
	}
	c := changes[0]
	if c.Type != ChangeReplace || c.OldValue != "inet" || c.NewValue != "inet6" {
		t.Errorf("unexpected change: %+v", c)
	}
	if got := c.SemanticPath.String(); got != "interfaces.ge-0/0/1.unit.0.family" {
		t.Errorf("semantic path = %q", got)
	}
}

func TestDiffOrderInsensitiveUnmatched(t *testing.T) {
	a := []any{
		map[string]any{"kind": "block", "name": "ge-0/0/0", "value": nil, "children": []any{}},
	}
	b := []any{
		map[string]any{"kind": "directive", "name": "mtu", "value": "9192", "children": []any{}},
	}

	changes := Diff(a, b, WithOrderSignificant(false))
	if len(changes) != 2 {
		t.Fatalf("expected remove+add, got %+v", changes)
	}
	if changes[0].Type != ChangeRemove || changes[1].Type != ChangeAdd {
		t.Errorf("expected remove then add, got %s then %s", changes[0].Type, changes[1].Type)
	}
}

// A node's own property changes come before changes inside its subtree;
// downstream grouping by path prefix relies on seeing the shallow change
// first.
func TestDiffEmitsOwnPropertiesBeforeChildren(t *testing.T) {
	a := parseGeneric(t, "interfaces {\n    ge-0/0/0 {\n        unit 0 {\n            family inet;\n        }\n    }\n}")
	b := parseGeneric(t, "interfaces {\n    ge-0/0/1 {\n        unit 0 {\n            family inet6;\n        }\n    }\n}")

	changes := Diff(a, b)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %+v", changes)
	}
	if got := changes[0].SemanticPath.String(); got != "interfaces.ge-0/0/0.name" {
		t.Errorf("first change = %q, want the rename", got)
	}
	if got := changes[1].SemanticPath.String(); got != "interfaces.ge-0/0/0.unit.0.family" {
		t.Errorf("second change = %q, want the leaf", got)
	}
}

func TestPathJSONRoundTrip(t *testing.T) {
	p := Path{Key("children"), Index(0), Key("value")}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(data); got != `["children",0,"value"]` {
		t.Errorf("path JSON = %s", got)
	}

	var back Path
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(p) {
		t.Errorf("round trip changed the path: %s vs %s", back, p)
	}

	var bad Path
	if err := json.Unmarshal([]byte(`[true]`), &bad); err == nil {
		t.Error("expected an error for a non-string non-integer step")
	}
}

func TestPathHasPrefix(t *testing.T) {
	p := Path{Key("a"), Index(1), Key("b")}
	if !p.HasPrefix(Path{Key("a"), Index(1)}) {
		t.Error("expected prefix match")
	}
	if p.HasPrefix(Path{Key("a"), Index(2)}) {
		t.Error("mismatched index should not be a prefix")
	}
	if p.HasPrefix(Path{Key("a"), Key("1")}) {
		t.Error("a key step must not match an index step with the same text")
	}
	if !p.HasPrefix(nil) {
		t.Error("empty path is a prefix of everything")
	}
}

func TestDiffEmptyOnBothDirectionsTogether(t *testing.T) {
	a := parseGeneric(t, "system {\n    host-name edge1;\n}")
	b := parseGeneric(t, "system {\n    host-name edge1;\n}")
	if len(Diff(a, b)) != 0 || len(Diff(b, a)) != 0 {
		t.Error("diff of equal trees must be empty in both directions")
	}
}

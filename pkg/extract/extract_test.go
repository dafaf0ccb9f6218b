package extract

import (
	"reflect"
	"testing"

	"github.com/confloom/confloom/pkg/conftree"
	"github.com/confloom/confloom/pkg/diff"
)

func diffConfigs(t *testing.T, base, candidate string) []diff.Change {
	t.Helper()
	baseTree, diags := conftree.NewParser(base).Parse()
	if len(diags) > 0 {
		t.Fatalf("base diagnostics: %v", diags)
	}
	candTree, diags := conftree.NewParser(candidate).Parse()
	if len(diags) > 0 {
		t.Fatalf("candidate diagnostics: %v", diags)
	}
	return diff.Diff(baseTree.Generic(), candTree.Generic())
}

func TestInterfacesFamilyChange(t *testing.T) {
	changes := diffConfigs(t,
		"interfaces {\n    ge-0/0/0 {\n        unit 0 {\n            family inet;\n        }\n    }\n}",
		"interfaces {\n    ge-0/0/0 {\n        unit 0 {\n            family inet6;\n        }\n    }\n}")

	table := Interfaces(changes)
	want := Table{
		"ge-0/0/0": {
			"unit": map[string]any{
				"0": map[string]any{
					"family": "inet",
				},
			},
		},
	}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("table = %#v, want %#v", table, want)
	}
}

// A renamed interface appears in the table but contributes no attribute:
// the name segment already keys the entry.
func TestInterfacesRenameCreatesEmptyEntry(t *testing.T) {
	changes := diffConfigs(t,
		"interfaces {\n    ge-0/0/0 {\n        unit 0 {\n            family inet;\n        }\n    }\n}",
		"interfaces {\n    ge-0/0/1 {\n        unit 0 {\n            family inet;\n        }\n    }\n}")

	table := Interfaces(changes)
	entry, ok := table["ge-0/0/0"]
	if !ok {
		t.Fatal("expected an entry for ge-0/0/0")
	}
	if len(entry) != 0 {
		t.Errorf("rename should not record attributes, got %#v", entry)
	}
}

func TestInterfacesSeveralAttributes(t *testing.T) {
	changes := diffConfigs(t,
		`interfaces {
    ge-0/0/0 {
        mtu 1500;
        unit 0 {
            family inet;
        }
    }
    ge-0/0/1 {
        mtu 1500;
    }
}`,
		`interfaces {
    ge-0/0/0 {
        mtu 9192;
        unit 0 {
            family inet6;
        }
    }
    ge-0/0/1 {
        mtu 9192;
    }
}`)

	table := Interfaces(changes)
	want := Table{
		"ge-0/0/0": {
			"mtu": "1500",
			"unit": map[string]any{
				"0": map[string]any{
					"family": "inet",
				},
			},
		},
		"ge-0/0/1": {
			"mtu": "1500",
		},
	}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("table = %#v, want %#v", table, want)
	}
}

func TestInterfacesIgnoresOtherStanzas(t *testing.T) {
	changes := diffConfigs(t,
		"system {\n    host-name edge1;\n}",
		"system {\n    host-name edge2;\n}")
	if table := Interfaces(changes); len(table) != 0 {
		t.Errorf("non-interface changes should not tabulate, got %#v", table)
	}
}

func TestInterfacesIgnoresNonReplace(t *testing.T) {
	changes := []diff.Change{
		{
			Type:         diff.ChangeAdd,
			SemanticPath: diff.Path{diff.Key("interfaces"), diff.Key("ge-0/0/0"), diff.Key("mtu")},
			NewValue:     "9192",
		},
		{
			Type:         diff.ChangeRemoveAttribute,
			SemanticPath: diff.Path{diff.Key("interfaces"), diff.Key("ge-0/0/1"), diff.Key("mtu")},
			OldValue:     "1500",
		},
	}
	if table := Interfaces(changes); len(table) != 0 {
		t.Errorf("only replaces should tabulate, got %#v", table)
	}
}

// Positional markers from unnamed array elements drop out of the
// attribute path; the named segments around them still address the value.
func TestInterfacesSkipsIndexMarkers(t *testing.T) {
	changes := []diff.Change{
		{
			Type: diff.ChangeReplace,
			SemanticPath: diff.Path{
				diff.Key("interfaces"), diff.Key("ge-0/0/0"),
				diff.Index(3), diff.Key("mtu"),
			},
			OldValue: "1500",
			NewValue: "9192",
		},
	}
	table := Interfaces(changes)
	want := Table{"ge-0/0/0": {"mtu": "1500"}}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("table = %#v, want %#v", table, want)
	}
}

func TestInterfacesSkipsUnnamedInterfaceSegment(t *testing.T) {
	changes := []diff.Change{
		{
			Type:         diff.ChangeReplace,
			SemanticPath: diff.Path{diff.Key("interfaces"), diff.Index(0), diff.Key("mtu")},
			OldValue:     "1500",
		},
	}
	if table := Interfaces(changes); len(table) != 0 {
		t.Errorf("an unnamed interface cannot be tabulated, got %#v", table)
	}
}

func TestDeepSetDisplacesScalar(t *testing.T) {
	changes := []diff.Change{
		{
			Type:         diff.ChangeReplace,
			SemanticPath: diff.Path{diff.Key("interfaces"), diff.Key("ge-0/0/0"), diff.Key("unit")},
			OldValue:     "flat",
		},
		{
			Type: diff.ChangeReplace,
			SemanticPath: diff.Path{
				diff.Key("interfaces"), diff.Key("ge-0/0/0"),
				diff.Key("unit"), diff.Key("0"), diff.Key("family"),
			},
			OldValue: "inet",
		},
	}
	table := Interfaces(changes)
	want := Table{
		"ge-0/0/0": {
			"unit": map[string]any{
				"0": map[string]any{
					"family": "inet",
				},
			},
		},
	}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("later deep path should displace the scalar: %#v", table)
	}
}

func TestInterfacesRecordsBaseValue(t *testing.T) {
	changes := diffConfigs(t,
		"interfaces {\n    ge-0/0/0 {\n        mtu 1500;\n    }\n}",
		"interfaces {\n    ge-0/0/0 {\n        mtu 9192;\n    }\n}")
	table := Interfaces(changes)
	if got := table["ge-0/0/0"]["mtu"]; got != "1500" {
		t.Errorf("expected the base tree's value, got %v", got)
	}
}

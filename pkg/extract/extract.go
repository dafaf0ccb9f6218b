// Package extract condenses change lists into per-interface attribute
// tables: for every replace under the interfaces stanza, the changed
// attribute path and its base-tree value, keyed by interface name.
package extract

import (
	"strings"

	"github.com/confloom/confloom/pkg/diff"
)

// Table maps interface names to the attributes that changed under them.
// Dotted attribute paths become nested maps, so unit.0.family lands at
// table[name]["unit"]["0"]["family"].
type Table map[string]map[string]any

// rootSegment is the semantic-path segment interface changes live under.
const rootSegment = "interfaces"

// Interfaces builds the attribute table for a change list. Only replace
// records under the interfaces stanza contribute; an interface's entry is
// created the first time any such record references it, even when the
// record itself carries nothing tabulable (a rename, or a replace of the
// whole subtree). Values come from the base tree's side of the replace.
func Interfaces(changes []diff.Change) Table {
	table := make(Table)
	for _, c := range changes {
		if c.Type != diff.ChangeReplace {
			continue
		}
		sem := c.SemanticPath
		if len(sem) < 2 || !sem[0].IsKey || sem[0].Key != rootSegment || !sem[1].IsKey {
			continue
		}
		entry, ok := table[sem[1].Key]
		if !ok {
			entry = make(map[string]any)
			table[sem[1].Key] = entry
		}

		attr := attributePath(sem[2:])
		if attr == "" || attr == "name" {
			continue
		}
		deepSet(entry, strings.Split(attr, "."), c.OldValue)
	}
	return table
}

// attributePath joins the named segments below the interface, dropping
// positional index markers left by unnamed array elements.
func attributePath(steps diff.Path) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		if !s.IsKey {
			continue
		}
		parts = append(parts, s.Key)
	}
	return strings.Join(parts, ".")
}

// deepSet stores v at the given path, creating intermediate maps and
// displacing any non-map value in the way.
func deepSet(m map[string]any, path []string, v any) {
	for i, key := range path {
		if i == len(path)-1 {
			m[key] = v
			return
		}
		next, ok := m[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[key] = next
		}
		m = next
	}
}

// Package synth turns a configuration tree plus the changes against a
// structurally related tree into a parameterized template: sibling
// subtrees that vary between the two collapse into a synthetic loop, and
// literal values with known variable bindings become {{...}} placeholder
// expressions. The output renders through conftree.Render and a final
// CleanRendered pass.
package synth

import (
	"sort"
	"strings"

	"github.com/confloom/confloom/pkg/conftree"
	"github.com/confloom/confloom/pkg/diff"
)

// Loop and placeholder literals. They encode the one device family the
// template dialect was built around and are deliberately kept here as the
// package's only knowledge of it rather than generalized into options.
const (
	loopOpenMarker  = "{% for interface in interface.physical %}"
	loopCloseMarker = "{% endfor %}"

	varInterfaceName     = "interface.name"
	varInterfaceUnitName = "interface.unit.name"

	// interfaceNodeName marks directives whose value is a compound
	// interface token like ge-0/0/1.100, templatized per component.
	interfaceNodeName = "interface"

	childrenKey = "children"
)

// Synthesize builds the template tree for base, the change list from
// diffing base against a related tree, and a substitution table mapping
// dotted variable paths to concrete leaf values. The input tree is never
// modified; the change list must have been produced against base or the
// affected groups degrade to best-effort skips.
func Synthesize(tree *conftree.Node, changes []diff.Change, substitutions map[string]any) *conftree.Node {
	out := tree.Clone()
	reverse := make(map[string]string)
	flattenSubs(substitutions, "", reverse)
	for _, g := range groupChanges(changes) {
		applyGroup(out, g, substitutions, reverse)
	}
	return out
}

// CleanRendered collapses the statement separator a rendered loop marker
// picks up: the marker is a statement to the serializer, so its line ends
// "%};" where the template dialect wants "%}".
func CleanRendered(text string) string {
	return strings.ReplaceAll(text, "%};", "%}")
}

// subgroupEntry records one change attributed to a loop group: the full
// structural path and the array index one step below the group key.
type subgroupEntry struct {
	path  diff.Path
	index int
}

type loopGroup struct {
	key     diff.Path
	entries []subgroupEntry
}

// groupChanges folds the change list into loop groups. Each change's
// candidate container path is its structural path minus the final two
// steps; the first previously seen group whose key prefixes the candidate
// absorbs it, so many differing leaves under one repeated element collapse
// into a single group rather than one group per leaf.
func groupChanges(changes []diff.Change) []*loopGroup {
	var groups []*loopGroup
	for _, c := range changes {
		if len(c.StructuralPath) < 2 {
			continue
		}
		candidate := c.StructuralPath[:len(c.StructuralPath)-2]

		var g *loopGroup
		for _, existing := range groups {
			if candidate.HasPrefix(existing.key) {
				g = existing
				break
			}
		}
		if g == nil {
			g = &loopGroup{key: candidate}
			groups = append(groups, g)
		}

		if len(c.StructuralPath) <= len(g.key) {
			continue
		}
		step := c.StructuralPath[len(g.key)]
		if step.IsKey {
			continue
		}
		g.entries = append(g.entries, subgroupEntry{path: c.StructuralPath, index: step.Index})
	}
	return groups
}

// applyGroup rewrites one loop group inside the cloned tree: the array at
// the group key is replaced by an open marker, the templatized
// representative element, a close marker, and the siblings that belonged
// to no subgroup. Groups whose path no longer resolves are skipped.
func applyGroup(root *conftree.Node, g *loopGroup, subs map[string]any, reverse map[string]string) {
	if len(g.entries) == 0 {
		return
	}
	parent := locateParent(root, g.key)
	if parent == nil {
		return
	}

	subgroups := make(map[int]bool, len(g.entries))
	order := make([]int, 0, len(g.entries))
	for _, e := range g.entries {
		if !subgroups[e.index] {
			subgroups[e.index] = true
			order = append(order, e.index)
		}
	}
	rep := order[0]
	if rep < 0 || rep >= len(parent.Children) {
		return
	}

	repNode := parent.Children[rep]
	templatize(repNode, repNode.Name, subs, reverse)

	rebuilt := make([]*conftree.Node, 0, len(parent.Children)+3)
	rebuilt = append(rebuilt,
		&conftree.Node{Kind: conftree.KindMarker, Name: loopOpenMarker},
		repNode,
		&conftree.Node{Kind: conftree.KindMarker, Name: loopCloseMarker},
	)
	for i, sibling := range parent.Children {
		if subgroups[i] {
			continue
		}
		rebuilt = append(rebuilt, sibling)
	}
	parent.Children = rebuilt
}

// locateParent resolves a group key of alternating children/index steps
// to the node owning the live child array. A key that does not spell such
// a walk, or that indexes out of range, resolves to nil.
func locateParent(root *conftree.Node, key diff.Path) *conftree.Node {
	if len(key)%2 != 1 {
		return nil
	}
	node := root
	for i := 0; i+1 < len(key); i += 2 {
		if !key[i].IsKey || key[i].Key != childrenKey || key[i+1].IsKey {
			return nil
		}
		idx := key[i+1].Index
		if idx < 0 || idx >= len(node.Children) {
			return nil
		}
		node = node.Children[idx]
	}
	if last := key[len(key)-1]; !last.IsKey || last.Key != childrenKey {
		return nil
	}
	return node
}

// templatize rewrites the representative element in place. currPath
// accumulates node names from the representative downward; it decides
// whole-value substitution and fences off spot replacement inside
// interface-rooted paths, where component splitting already applies.
func templatize(n *conftree.Node, currPath string, subs map[string]any, reverse map[string]string) {
	if n.Name == interfaceNodeName && n.Value != "" {
		parts := strings.Split(n.Value, ".")
		if reverse[parts[0]] == varInterfaceName {
			parts[0] = placeholder(varInterfaceName)
		}
		if len(parts) > 1 && reverse[parts[1]] == varInterfaceUnitName {
			parts[1] = placeholder(varInterfaceUnitName)
		}
		n.Value = strings.Join(parts, ".")
	} else if _, ok := lookupString(subs, currPath); ok {
		n.Value = placeholder(currPath)
	} else if !strings.HasPrefix(currPath, interfaceNodeName+".") {
		if target, ok := reverse[n.Name]; ok {
			n.Name = placeholder(target)
		}
		if target, ok := reverse[n.Value]; ok && n.Value != "" {
			n.Value = placeholder(target)
		}
	}

	for _, child := range n.Children {
		templatize(child, currPath+"."+child.Name, subs, reverse)
	}
}

func placeholder(path string) string {
	return "{{" + path + "}}"
}

// flattenSubs builds the reverse lookup from concrete leaf value to
// dotted variable path. Nested non-array maps recurse; keys walk in
// sorted order so a duplicated leaf value resolves deterministically.
func flattenSubs(subs map[string]any, prefix string, out map[string]string) {
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch v := subs[k].(type) {
		case map[string]any:
			flattenSubs(v, path, out)
		case string:
			out[v] = path
		}
	}
}

// lookupString walks a dotted path through the substitution table and
// reports the string leaf there, if any.
func lookupString(subs map[string]any, path string) (string, bool) {
	cur := any(subs)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[seg]; !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

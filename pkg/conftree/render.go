package conftree

import (
	"fmt"
	"strings"
)

// indentUnit is the fixed per-depth indentation of rendered text.
const indentUnit = "    "

// Render serializes a tree back to configuration text. The root node
// renders as its children with no header; any other node renders itself at
// depth zero. Render is the structural inverse of the parser for every
// tree the parser can produce, modulo the parser's two documented lossy
// normalizations (multi-word header spacing, quote stripping).
func Render(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	if n.Kind == KindRoot {
		renderNodes(&b, n.Children, 0)
	} else {
		renderNodes(&b, []*Node{n}, 0)
	}
	return b.String()
}

func renderNodes(b *strings.Builder, nodes []*Node, indent int) {
	prefix := strings.Repeat(indentUnit, indent)
	for _, n := range nodes {
		switch n.Kind {
		case KindBlock:
			fmt.Fprintf(b, "%s%s {\n", prefix, n.Name)
			renderNodes(b, n.Children, indent+1)
			fmt.Fprintf(b, "%s}\n", prefix)
		case KindNamedBlock, KindPatternBlock:
			fmt.Fprintf(b, "%s%s %s {\n", prefix, n.Name, n.Value)
			renderNodes(b, n.Children, indent+1)
			fmt.Fprintf(b, "%s}\n", prefix)
		case KindDirective:
			fmt.Fprintf(b, "%s%s %s;\n", prefix, n.Name, n.Value)
		case KindFlag, KindMarker:
			fmt.Fprintf(b, "%s%s;\n", prefix, n.Name)
		case KindRoot:
			renderNodes(b, n.Children, indent)
		}
	}
}

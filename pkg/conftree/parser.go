package conftree

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Diagnostic records a line the parser could not classify. Diagnostics are
// advisory: parsing always continues past them.
type Diagnostic struct {
	Line int    `json:"line"` // 1-based line number in the original text
	Text string `json:"text"` // the offending line, comment-stripped and trimmed
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: unparseable: %q", d.Line, d.Text)
}

// patternHeader matches a block header of the form
// "<identifier> <angle-bracketed-pattern>", e.g. "interface <ge-*>".
var patternHeader = regexp.MustCompile(`^(\S+)\s+(<[^>]*>)$`)

// Parser builds a configuration tree from vendor configuration text.
// It is line-oriented: comments are stripped, blank lines dropped, and
// each remaining line is classified as a block open, a block close, a
// leaf statement, or an unparseable diagnostic.
type Parser struct {
	lines []sourceLine
	pos   int
	diags []Diagnostic
}

type sourceLine struct {
	num  int    // 1-based position in the original input
	text string // comment-stripped, whitespace-trimmed
}

// NewParser prepares a parser over the given configuration text.
func NewParser(input string) *Parser {
	raw := strings.Split(input, "\n")
	lines := make([]sourceLine, 0, len(raw))
	for i, line := range raw {
		text := strings.TrimSpace(stripComment(line))
		if text == "" {
			continue
		}
		lines = append(lines, sourceLine{num: i + 1, text: text})
	}
	return &Parser{lines: lines}
}

// Parse consumes the input and returns the tree root plus diagnostics for
// any lines that matched no grammar rule. It never fails: malformed input
// degrades to diagnostics, and an unclosed block is closed at end of input.
func (p *Parser) Parse() (*Node, []Diagnostic) {
	root := &Node{Kind: KindRoot}
	p.parseBody(root, true)
	return root, p.diags
}

// parseBody appends statements to parent until a closing brace or end of
// input. atRoot marks the top level, where a closing brace has no block to
// close and is diagnosed instead.
func (p *Parser) parseBody(parent *Node, atRoot bool) {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		p.pos++

		switch {
		case line.text == "}":
			if atRoot {
				p.diags = append(p.diags, Diagnostic{Line: line.num, Text: line.text})
				continue
			}
			return
		case strings.HasSuffix(line.text, "{"):
			child, ok := p.openBlock(line)
			if !ok {
				continue
			}
			parent.Children = append(parent.Children, child)
			p.parseBody(child, false)
		case strings.HasSuffix(line.text, ";"):
			child, ok := p.leaf(line)
			if !ok {
				continue
			}
			parent.Children = append(parent.Children, child)
		default:
			p.diags = append(p.diags, Diagnostic{Line: line.num, Text: line.text})
		}
	}
}

// openBlock classifies a "... {" line as a pattern-block, block, or
// named-block node. Original inter-token spacing in multi-word headers is
// not preserved; tokens are rejoined with single spaces.
func (p *Parser) openBlock(line sourceLine) (*Node, bool) {
	header := strings.TrimSpace(strings.TrimSuffix(line.text, "{"))
	if header == "" {
		p.diags = append(p.diags, Diagnostic{Line: line.num, Text: line.text})
		return nil, false
	}

	if m := patternHeader.FindStringSubmatch(header); m != nil {
		return &Node{Kind: KindPatternBlock, Name: m[1], Value: m[2], Line: line.num}, true
	}

	fields := strings.Fields(header)
	if len(fields) == 1 {
		return &Node{Kind: KindBlock, Name: fields[0], Line: line.num}, true
	}
	return &Node{
		Kind:  KindNamedBlock,
		Name:  fields[0],
		Value: strings.Join(fields[1:], " "),
		Line:  line.num,
	}, true
}

// leaf classifies a "...;" line as a directive (statement with an
// argument) or a flag (bare statement). Double-quote characters are
// stripped from directive values; internal spacing survives.
func (p *Parser) leaf(line sourceLine) (*Node, bool) {
	stmt := strings.TrimSpace(strings.TrimSuffix(line.text, ";"))
	if stmt == "" {
		p.diags = append(p.diags, Diagnostic{Line: line.num, Text: line.text})
		return nil, false
	}

	sep := strings.IndexFunc(stmt, unicode.IsSpace)
	if sep < 0 {
		return &Node{Kind: KindFlag, Name: stmt, Line: line.num}, true
	}

	value := strings.TrimSpace(stmt[sep:])
	value = strings.ReplaceAll(value, `"`, "")
	return &Node{Kind: KindDirective, Name: stmt[:sep], Value: value, Line: line.num}, true
}

// stripComment removes a trailing "#" comment unless the "#" sits inside a
// double-quoted string.
func stripComment(line string) string {
	inQuote := false
	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}

// Package diff computes structural differences between two JSON-shaped
// values: map[string]any objects, []any arrays, and primitives (including
// nil), the shapes produced by encoding/json and by conftree's Node.Generic.
// The result is an ordered list of path-addressed change records
// transforming the first value into the second. Arrays compare by index by
// default, or by greedy structural-similarity matching in order-insensitive
// mode.
package diff

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ChangeType identifies what a change record does.
type ChangeType string

const (
	ChangeAdd             ChangeType = "add"
	ChangeRemove          ChangeType = "remove"
	ChangeReplace         ChangeType = "replace"
	ChangeAddAttribute    ChangeType = "add-attribute"
	ChangeRemoveAttribute ChangeType = "remove-attribute"
)

// Step is one traversal step in a change path: either an object key or an
// array index, never both.
type Step struct {
	Key   string
	Index int
	IsKey bool
}

// Key returns a step addressing an object property.
func Key(name string) Step { return Step{Key: name, IsKey: true} }

// Index returns a step addressing an array element.
func Index(i int) Step { return Step{Index: i} }

func (s Step) String() string {
	if s.IsKey {
		return s.Key
	}
	return strconv.Itoa(s.Index)
}

// MarshalJSON renders a key step as a JSON string and an index step as a
// JSON number, so paths serialize as mixed arrays like ["children", 0].
func (s Step) MarshalJSON() ([]byte, error) {
	if s.IsKey {
		return json.Marshal(s.Key)
	}
	return json.Marshal(s.Index)
}

// UnmarshalJSON accepts either form.
func (s *Step) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err == nil {
		*s = Key(key)
		return nil
	}
	var idx int
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("path step must be a string or an integer: %s", data)
	}
	*s = Index(idx)
	return nil
}

// MarshalYAML mirrors MarshalJSON: key steps as strings, index steps as
// integers.
func (s Step) MarshalYAML() (any, error) {
	if s.IsKey {
		return s.Key, nil
	}
	return s.Index, nil
}

// Path addresses a location inside a JSON-shaped value.
type Path []Step

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Equal reports whether both paths contain the same steps.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i, s := range p {
		if s != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p starts with all of prefix's steps.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// extend returns a new path with s appended; the receiver is never
// mutated, so paths stored in change records share no backing storage.
func extend(p Path, s Step) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = s
	return out
}

// Change is one difference between the compared values.
//
// StructuralPath holds the raw traversal steps (object keys and array
// indices) from the root to the change site, mirroring the recursive
// descent. SemanticPath substitutes node names for raw steps at named node
// boundaries and collapses immediate repeats; it is stable across
// structurally identical trees regardless of array positions, and is the
// path the interface extractor and the template synthesizer consume.
type Change struct {
	Type           ChangeType `json:"type"`
	StructuralPath Path       `json:"structuralPath"`
	SemanticPath   Path       `json:"semanticPath"`
	OldValue       any        `json:"oldValue,omitempty"`
	NewValue       any        `json:"newValue,omitempty"`
}

// DefaultIgnoredAttrs are the object properties skipped by default:
// positional and location metadata that varies with formatting rather than
// meaning.
var DefaultIgnoredAttrs = []string{"line", "column", "position", "location"}

type options struct {
	ignored          map[string]struct{}
	orderSignificant bool
	maxDepth         int
}

// Option adjusts diff behavior.
type Option func(*options)

// WithIgnoredAttrs replaces the default ignore-list with the given
// property names.
func WithIgnoredAttrs(names ...string) Option {
	return func(o *options) {
		o.ignored = make(map[string]struct{}, len(names))
		for _, n := range names {
			o.ignored[n] = struct{}{}
		}
	}
}

// WithOrderSignificant selects the array matching policy: true (the
// default) compares elements by index, false matches elements by
// structural similarity before recursing.
func WithOrderSignificant(v bool) Option {
	return func(o *options) { o.orderSignificant = v }
}

// WithMaxDepth bounds recursion. Values at the limit are compared as
// opaque wholes: deep-equal produces nothing, anything else one replace.
// Zero means unbounded.
func WithMaxDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

func newOptions(opts ...Option) *options {
	o := &options{orderSignificant: true}
	WithIgnoredAttrs(DefaultIgnoredAttrs...)(o)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Diff returns the ordered change list transforming a into b. It is not
// commutative: callers needing both directions call twice with the
// arguments swapped.
func Diff(a, b any, opts ...Option) []Change {
	d := &differ{opts: newOptions(opts...)}
	d.walk(a, b, nil, nil, 0)
	return d.changes
}

type differ struct {
	opts    *options
	changes []Change
}

// shape is the tagged union the recursion dispatches on.
type shape int

const (
	shapePrimitive shape = iota
	shapeArray
	shapeObject
)

func shapeOf(v any) shape {
	switch v.(type) {
	case map[string]any:
		return shapeObject
	case []any:
		return shapeArray
	default:
		return shapePrimitive
	}
}

func (d *differ) walk(a, b any, structural, semantic Path, depth int) {
	if d.opts.maxDepth > 0 && depth >= d.opts.maxDepth {
		if !reflect.DeepEqual(a, b) {
			d.emit(ChangeReplace, structural, semantic, a, b)
		}
		return
	}

	sa, sb := shapeOf(a), shapeOf(b)
	if sa != sb {
		d.emit(ChangeReplace, structural, semantic, a, b)
		return
	}

	switch sa {
	case shapePrimitive:
		if !primitiveEqual(a, b) {
			d.emit(ChangeReplace, structural, semantic, a, b)
		}
	case shapeArray:
		aa, bb := a.([]any), b.([]any)
		if d.opts.orderSignificant {
			d.walkArrayOrdered(aa, bb, structural, semantic, depth)
		} else {
			d.walkArrayFuzzy(aa, bb, structural, semantic, depth)
		}
	case shapeObject:
		d.walkObject(a.(map[string]any), b.(map[string]any), structural, semantic, depth)
	}
}

func (d *differ) walkArrayOrdered(aa, bb []any, structural, semantic Path, depth int) {
	n := len(aa)
	if len(bb) > n {
		n = len(bb)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(aa):
			d.emit(ChangeAdd, extend(structural, Index(i)), semExtendIndex(semantic, bb[i], i), nil, bb[i])
		case i >= len(bb):
			d.emit(ChangeRemove, extend(structural, Index(i)), semExtendIndex(semantic, aa[i], i), aa[i], nil)
		default:
			d.walk(aa[i], bb[i], extend(structural, Index(i)), semExtendIndex(semantic, aa[i], i), depth+1)
		}
	}
}

// walkArrayFuzzy matches each left element with the unmatched right
// element of highest similarity; pairs above the threshold recurse under
// the left element's index, everything else degrades to remove/add.
func (d *differ) walkArrayFuzzy(aa, bb []any, structural, semantic Path, depth int) {
	matched := make([]bool, len(bb))
	for i, av := range aa {
		best, bestScore := -1, 0.0
		for j, bv := range bb {
			if matched[j] {
				continue
			}
			if score := d.similarity(av, bv); score > bestScore {
				best, bestScore = j, score
			}
		}
		if best >= 0 && bestScore > matchThreshold {
			matched[best] = true
			d.walk(av, bb[best], extend(structural, Index(i)), semExtendIndex(semantic, av, i), depth+1)
		} else {
			d.emit(ChangeRemove, extend(structural, Index(i)), semExtendIndex(semantic, av, i), av, nil)
		}
	}
	for j, bv := range bb {
		if !matched[j] {
			d.emit(ChangeAdd, extend(structural, Index(j)), semExtendIndex(semantic, bv, j), nil, bv)
		}
	}
}

func (d *differ) walkObject(ma, mb map[string]any, structural, semantic Path, depth int) {
	for _, k := range d.unionKeys(ma, mb) {
		av, aok := ma[k]
		bv, bok := mb[k]
		childStructural := extend(structural, Key(k))
		childSemantic := semExtendKey(semantic, ma, mb, k)
		switch {
		case !aok:
			d.emit(ChangeAddAttribute, childStructural, childSemantic, nil, bv)
		case !bok:
			d.emit(ChangeRemoveAttribute, childStructural, childSemantic, av, nil)
		default:
			d.walk(av, bv, childStructural, childSemantic, depth+1)
		}
	}
}

// unionKeys returns the keys of both maps, ignore-list excluded, in a
// deterministic order with the children container last: a node's own
// property changes must precede its subtree's so that downstream grouping
// by path prefix sees the shallowest change first.
func (d *differ) unionKeys(ma, mb map[string]any) []string {
	seen := make(map[string]struct{}, len(ma)+len(mb))
	keys := make([]string, 0, len(ma)+len(mb))
	for _, m := range []map[string]any{ma, mb} {
		for k := range m {
			if _, ignored := d.opts.ignored[k]; ignored {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := keys[i] == childrenKey, keys[j] == childrenKey
		if ci != cj {
			return cj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (d *differ) emit(t ChangeType, structural, semantic Path, oldValue, newValue any) {
	c := Change{Type: t, StructuralPath: structural, SemanticPath: semantic}
	switch t {
	case ChangeReplace:
		c.OldValue, c.NewValue = oldValue, newValue
	case ChangeAdd, ChangeAddAttribute:
		c.NewValue = newValue
	case ChangeRemove, ChangeRemoveAttribute:
		c.OldValue = oldValue
	}
	d.changes = append(d.changes, c)
}

// semExtendIndex computes the semantic step for descending into an array
// element: the element's own name when it is a named object (collapsing an
// immediate repeat), otherwise the raw index as a positional marker.
func semExtendIndex(semantic Path, elem any, i int) Path {
	if name, ok := nodeName(elem); ok {
		return semAppendName(semantic, name)
	}
	return extend(semantic, Index(i))
}

// childrenKey is the object property holding a node's ordered subtree in
// the generic representation.
const childrenKey = "children"

// semExtendKey computes the semantic step for descending into an object
// property. Descending into "children" of a named node contributes the
// node's name (repeat-collapsed) and then its value when present, instead
// of the literal key; descending into "value" of a named node contributes
// nothing, since the node's own segment already addresses its value; any
// other key contributes itself.
func semExtendKey(semantic Path, ma, mb map[string]any, k string) Path {
	name, named := nodeName(ma)
	if !named {
		name, named = nodeName(mb)
	}

	if k == childrenKey {
		if !named {
			return semantic
		}
		out := semAppendName(semantic, name)
		if value, ok := nodeValue(ma, mb); ok {
			out = extend(out, Key(value))
		}
		return out
	}
	if k == "value" && named {
		return semantic
	}
	return semAppendName(semantic, k)
}

// semAppendName appends a named segment unless it repeats the immediately
// preceding one.
func semAppendName(semantic Path, name string) Path {
	if n := len(semantic); n > 0 && semantic[n-1].IsKey && semantic[n-1].Key == name {
		return semantic
	}
	return extend(semantic, Key(name))
}

func nodeName(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := m["name"].(string)
	return name, ok && name != ""
}

func nodeValue(ma, mb map[string]any) (string, bool) {
	if v, ok := ma["value"].(string); ok && v != "" {
		return v, true
	}
	if v, ok := mb["value"].(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// primitiveEqual compares primitives, treating numeric values as equal
// across representations (a tree decoded from JSON carries float64 where a
// freshly built one carries int).
func primitiveEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

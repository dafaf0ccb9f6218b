package diff

import (
	"reflect"
	"sort"
)

// Tuning values for the greedy array-matching heuristic. They have no
// derivation; they are preserved as-is for behavioral compatibility.
const (
	matchThreshold        = 0.7
	discriminatorBaseline = 0.1
	emptyVsNonEmptyScore  = 0.3
	maxSampledPairs       = 5
	maxFallbackProps      = 3
)

// identityProps are the properties most likely to identify an object
// across reordering; equality of their values dominates the object score.
var identityProps = []string{"id", "name", "value", "operator", "key", "kind", "computed"}

// discriminatorKeys name an object's type tag; two objects tagged
// differently score only the small baseline.
var discriminatorKeys = []string{"kind", "type"}

// similarity scores structural likeness in [0,1]. It is only a matching
// heuristic for order-insensitive array realignment: it has to produce
// stable, intuitive pairings for near-identical sibling subtrees, nothing
// stronger.
func (d *differ) similarity(a, b any) float64 {
	sa, sb := shapeOf(a), shapeOf(b)
	if sa != sb {
		return 0
	}
	switch sa {
	case shapePrimitive:
		if primitiveEqual(a, b) {
			return 1
		}
		return 0
	case shapeArray:
		return d.arraySimilarity(a.([]any), b.([]any))
	default:
		return d.objectSimilarity(a.(map[string]any), b.(map[string]any))
	}
}

func (d *differ) objectSimilarity(ma, mb map[string]any) float64 {
	da, db := discriminator(ma), discriminator(mb)
	if da != "" && db != "" && da != db {
		return discriminatorBaseline
	}

	aKeys := d.propNames(ma)
	bKeys := d.propNames(mb)
	larger := len(aKeys)
	if len(bKeys) > larger {
		larger = len(bKeys)
	}
	if larger == 0 {
		return 1
	}

	shared := make([]string, 0, len(aKeys))
	for _, k := range aKeys {
		if _, ok := mb[k]; ok {
			shared = append(shared, k)
		}
	}
	overlap := float64(len(shared)) / float64(larger)

	// Equality of identity-ish properties, falling back to the first few
	// shared properties when none of the priority set is present on both
	// sides.
	candidates := make([]string, 0, len(identityProps))
	for _, k := range identityProps {
		_, inA := ma[k]
		_, inB := mb[k]
		if inA && inB {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		sort.Strings(shared)
		n := len(shared)
		if n > maxFallbackProps {
			n = maxFallbackProps
		}
		candidates = shared[:n]
	}

	var identity float64
	if len(candidates) > 0 {
		equal := 0
		for _, k := range candidates {
			if valuesEqual(ma[k], mb[k]) {
				equal++
			}
		}
		identity = float64(equal) / float64(len(candidates))
	}

	return 0.5*overlap + 0.5*identity
}

// arraySimilarity blends the length ratio with the average pairwise
// similarity of up to maxSampledPairs evenly-sampled index pairs.
func (d *differ) arraySimilarity(aa, bb []any) float64 {
	la, lb := len(aa), len(bb)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return emptyVsNonEmptyScore
	}

	shorter, longer := la, lb
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	ratio := float64(shorter) / float64(longer)

	n := maxSampledPairs
	if shorter < n {
		n = shorter
	}
	var sum float64
	for i := 0; i < n; i++ {
		idx := i * shorter / n
		sum += d.similarity(aa[idx], bb[idx])
	}
	avg := sum / float64(n)

	return 0.5*ratio + 0.5*avg
}

// propNames returns the map's keys with the ignore-list excluded.
func (d *differ) propNames(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if _, ignored := d.opts.ignored[k]; ignored {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func discriminator(m map[string]any) string {
	for _, k := range discriminatorKeys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func valuesEqual(a, b any) bool {
	if shapeOf(a) == shapePrimitive && shapeOf(b) == shapePrimitive {
		return primitiveEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}

package pysnaptest

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/hugof38/pysnaptest/internal/fieldpath"
)

// Redaction transforms a volatile field before a snapshot is persisted or
// compared. Built-ins: Replace, Sorted, Rounded.
type Redaction interface {
	redact(v any) any
}

// Redactions maps field selectors (see internal/fieldpath) to redactions.
// Only JSON and CSV snapshots accept redactions; for CSV the selector must
// name a column from the header row.
type Redactions map[string]Redaction

// Replace substitutes the field with a literal value.
func Replace(value any) Redaction {
	return literalRedaction{value: value}
}

// Sorted canonicalizes an unordered collection into a fixed order so that
// order-nondeterministic producers compare equal. On CSV data it sorts the
// rows by the addressed column.
func Sorted() Redaction {
	return sortedRedaction{}
}

// Rounded quantizes a numeric field to the given number of decimals,
// tolerating floating-point jitter.
func Rounded(decimals int) Redaction {
	return roundedRedaction{decimals: decimals}
}

type literalRedaction struct {
	value any
}

func (r literalRedaction) redact(any) any {
	return r.value
}

type sortedRedaction struct{}

func (sortedRedaction) redact(v any) any {
	seq, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(seq))
	copy(out, seq)
	sort.SliceStable(out, func(i, j int) bool {
		return canonicalKey(out[i]) < canonicalKey(out[j])
	})
	return out
}

// canonicalKey produces a deterministic sort key for arbitrary decoded values.
func canonicalKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

type roundedRedaction struct {
	decimals int
}

func (r roundedRedaction) redact(v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	p := math.Pow10(r.decimals)
	return math.Round(f*p) / p
}

// applyRedactions applies every selector of specs to a decoded JSON value
// (maps, slices, scalars). The input is never mutated; selectors that do not
// resolve are a no-op.
func applyRedactions(v any, specs Redactions) (any, error) {
	for selector, r := range specs {
		segs, err := fieldpath.Parse(selector)
		if err != nil {
			return nil, usageErrorf("invalid redaction selector %q: %v", selector, err)
		}
		v = redactValue(v, segs, r)
	}
	return v, nil
}

// redactValue rebuilds v along the selector path, applying r at the leaves.
// Containers on the path are copied; untouched branches are shared.
func redactValue(v any, segs []fieldpath.Segment, r Redaction) any {
	if len(segs) == 0 {
		return r.redact(v)
	}

	seg := segs[0]
	rest := segs[1:]

	switch seg.Kind {
	case fieldpath.Key:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		child, ok := m[seg.Key]
		if !ok {
			return v
		}
		out := copyMap(m)
		out[seg.Key] = redactValue(child, rest, r)
		return out

	case fieldpath.AnyKey:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := copyMap(m)
		for k, child := range out {
			out[k] = redactValue(child, rest, r)
		}
		return out

	case fieldpath.Index:
		seq, ok := v.([]any)
		if !ok || seg.Index >= len(seq) {
			return v
		}
		out := make([]any, len(seq))
		copy(out, seq)
		out[seg.Index] = redactValue(out[seg.Index], rest, r)
		return out

	case fieldpath.AnyIndex:
		seq, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(seq))
		for i, child := range seq {
			out[i] = redactValue(child, rest, r)
		}
		return out
	}
	return v
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}

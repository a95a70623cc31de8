// Package fieldpath parses redaction selectors: dotted paths into nested
// structured data with optional bracket indexing.
//
// Grammar:
//   - "user.name"     keys into nested maps
//   - "items[0]"      indexes into a sequence
//   - "items[].id"    every element of a sequence
//   - "*.created_at"  any key at that level
//
// A leading dot is permitted: ".user.name" equals "user.name".
package fieldpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates segment types.
type Kind int

const (
	// Key matches a single map key.
	Key Kind = iota
	// Index matches a single sequence position.
	Index
	// AnyKey matches every key of a map ("*").
	AnyKey
	// AnyIndex matches every element of a sequence ("[]").
	AnyIndex
)

// Segment is one step of a parsed selector.
type Segment struct {
	Kind  Kind
	Key   string // set for Kind == Key
	Index int    // set for Kind == Index
}

// Parse converts a selector string into its segment sequence.
func Parse(selector string) ([]Segment, error) {
	s := strings.TrimPrefix(selector, ".")
	if s == "" {
		return nil, fmt.Errorf("fieldpath: empty selector")
	}

	var segs []Segment
	for _, part := range strings.Split(s, ".") {
		name, brackets, err := splitBrackets(part)
		if err != nil {
			return nil, fmt.Errorf("fieldpath: %q: %w", selector, err)
		}
		if name == "" && len(brackets) == 0 {
			return nil, fmt.Errorf("fieldpath: %q: empty segment", selector)
		}

		switch name {
		case "":
			// Pure bracket segment, e.g. "[0]" after a dot.
		case "*":
			segs = append(segs, Segment{Kind: AnyKey})
		default:
			segs = append(segs, Segment{Kind: Key, Key: name})
		}

		for _, b := range brackets {
			if b == "" {
				segs = append(segs, Segment{Kind: AnyIndex})
				continue
			}
			idx, err := strconv.Atoi(b)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("fieldpath: %q: invalid index [%s]", selector, b)
			}
			segs = append(segs, Segment{Kind: Index, Index: idx})
		}
	}
	return segs, nil
}

// splitBrackets splits "items[0][]" into name "items" and brackets ["0", ""].
func splitBrackets(part string) (string, []string, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if strings.ContainsAny(part, "]") {
			return "", nil, fmt.Errorf("unbalanced bracket in %q", part)
		}
		return part, nil, nil
	}

	name := part[:open]
	rest := part[open:]
	var brackets []string
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("unexpected %q after bracket", rest)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, fmt.Errorf("unbalanced bracket in %q", part)
		}
		brackets = append(brackets, rest[1:end])
		rest = rest[end+1:]
	}
	return name, brackets, nil
}

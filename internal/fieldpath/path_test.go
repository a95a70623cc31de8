package fieldpath

import (
	"reflect"
	"testing"
)

func TestParse_ValidSelectors(t *testing.T) {
	tests := []struct {
		selector string
		want     []Segment
	}{
		{"name", []Segment{{Kind: Key, Key: "name"}}},
		{".name", []Segment{{Kind: Key, Key: "name"}}},
		{"user.name", []Segment{{Kind: Key, Key: "user"}, {Kind: Key, Key: "name"}}},
		{"items[0]", []Segment{{Kind: Key, Key: "items"}, {Kind: Index, Index: 0}}},
		{"items[].id", []Segment{{Kind: Key, Key: "items"}, {Kind: AnyIndex}, {Kind: Key, Key: "id"}}},
		{"*.created_at", []Segment{{Kind: AnyKey}, {Kind: Key, Key: "created_at"}}},
		{"rows[2][0]", []Segment{{Kind: Key, Key: "rows"}, {Kind: Index, Index: 2}, {Kind: Index, Index: 0}}},
		{"a.b[1].c", []Segment{{Kind: Key, Key: "a"}, {Kind: Key, Key: "b"}, {Kind: Index, Index: 1}, {Kind: Key, Key: "c"}}},
	}

	for _, tt := range tests {
		got, err := Parse(tt.selector)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.selector, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.selector, got, tt.want)
		}
	}
}

func TestParse_InvalidSelectors(t *testing.T) {
	invalid := []string{
		"",
		".",
		"a..b",
		"items[x]",
		"items[-1]",
		"items[0",
		"items]0[",
		"items[0]x",
	}

	for _, selector := range invalid {
		if _, err := Parse(selector); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", selector)
		}
	}
}

package pysnaptest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// Format selects how a snapshot value is serialized, compared, and stored.
type Format string

const (
	// FormatJSON stores canonical indented JSON and compares structurally.
	FormatJSON Format = "json"
	// FormatCSV stores delimited text and compares line by line.
	FormatCSV Format = "csv"
	// FormatBinary stores raw bytes and compares byte for byte.
	FormatBinary Format = "binary"
	// FormatText stores a plain textual representation and compares exactly.
	FormatText Format = "text"
)

// extension returns the default file extension for the format.
func (f Format) extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatBinary:
		return "bin"
	default:
		return "txt"
	}
}

// supportsRedactions reports whether field redactions apply to the format.
func (f Format) supportsRedactions() bool {
	return f == FormatJSON || f == FormatCSV
}

// --- JSON codec ---

// normalizeJSON decodes an arbitrary Go value into the generic JSON shape
// (map[string]any, []any, float64, string, bool, nil) via a marshal round
// trip. []byte and json.RawMessage inputs are decoded directly.
func normalizeJSON(v any) (any, error) {
	var data []byte
	switch val := v.(type) {
	case json.RawMessage:
		data = val
	case []byte:
		data = val
	case string:
		// A string value snapshots as a JSON string, not as embedded JSON.
		return val, nil
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, usageErrorf("value is not JSON-serializable: %v", err)
		}
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, usageErrorf("invalid JSON content: %v", err)
	}
	return out, nil
}

// encodeJSON renders a normalized value as canonical indented JSON with a
// trailing newline. encoding/json emits map keys in sorted order, which makes
// the encoding deterministic.
func encodeJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// equalJSON compares stored and fresh snapshot contents structurally: map key
// order is irrelevant, sequence order is significant. Redactions are applied
// to both sides so a redaction added after recording still masks the stored copy.
func equalJSON(stored, fresh []byte, specs Redactions) (bool, error) {
	var storedVal, freshVal any
	if err := json.Unmarshal(stored, &storedVal); err != nil {
		return false, fmt.Errorf("pysnaptest: stored snapshot is not valid JSON: %w", err)
	}
	if err := json.Unmarshal(fresh, &freshVal); err != nil {
		return false, fmt.Errorf("pysnaptest: fresh snapshot is not valid JSON: %w", err)
	}
	if len(specs) > 0 {
		var err error
		if storedVal, err = applyRedactions(storedVal, specs); err != nil {
			return false, err
		}
	}
	return reflect.DeepEqual(storedVal, freshVal), nil
}

// --- CSV codec ---

// csvTable is parsed tabular data: a header row plus data records.
type csvTable struct {
	header  []string
	records [][]string
}

func parseCSV(content string) (*csvTable, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, usageErrorf("invalid CSV content: %v", err)
	}
	if len(rows) == 0 {
		return nil, usageErrorf("CSV content must include a header row")
	}
	return &csvTable{header: rows[0], records: rows[1:]}, nil
}

// encode renders the table in canonical form: comma-delimited, "\n" line
// endings, trailing newline.
func (t *csvTable) encode() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.records); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// columnIndex resolves a header name to its position, or -1.
func (t *csvTable) columnIndex(name string) int {
	for i, h := range t.header {
		if h == name {
			return i
		}
	}
	return -1
}

// redact applies column-addressed redactions. Selectors must name a single
// column; a column absent from the header is a no-op. Sorted orders the data
// rows by the column, Rounded and Replace rewrite each cell.
func (t *csvTable) redact(specs Redactions) error {
	// Deterministic application order: selectors sorted lexically.
	selectors := make([]string, 0, len(specs))
	for sel := range specs {
		selectors = append(selectors, sel)
	}
	sort.Strings(selectors)

	for _, sel := range selectors {
		if strings.ContainsAny(sel, ".[*") {
			return usageErrorf("CSV redaction selector %q must be a plain column name", sel)
		}
		col := t.columnIndex(sel)
		if col < 0 {
			continue
		}
		switch r := specs[sel].(type) {
		case sortedRedaction:
			sort.SliceStable(t.records, func(i, j int) bool {
				return t.cell(i, col) < t.cell(j, col)
			})
		case roundedRedaction:
			for i := range t.records {
				if col >= len(t.records[i]) {
					continue
				}
				f, err := strconv.ParseFloat(t.records[i][col], 64)
				if err != nil {
					continue
				}
				rounded := r.redact(f).(float64)
				t.records[i][col] = strconv.FormatFloat(rounded, 'f', -1, 64)
			}
		case literalRedaction:
			for i := range t.records {
				if col < len(t.records[i]) {
					t.records[i][col] = fmt.Sprint(r.value)
				}
			}
		}
	}
	return nil
}

func (t *csvTable) cell(row, col int) string {
	if col >= len(t.records[row]) {
		return ""
	}
	return t.records[row][col]
}

// --- Text codec ---

// spewConfig renders arbitrary Go values deterministically for the generic
// text format: sorted map keys, no pointer addresses or capacities.
var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SpewKeys:                true,
}

// encodeText renders a value through the default textual representation:
// strings verbatim, Stringer/error via their own formatting, scalars via fmt,
// anything else as a deterministic dump.
func encodeText(v any) []byte {
	var s string
	switch val := v.(type) {
	case nil:
		s = "<nil>"
	case string:
		s = val
	case fmt.Stringer:
		s = val.String()
	case error:
		s = val.Error()
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, complex64, complex128:
		s = fmt.Sprintf("%v", val)
	default:
		s = strings.TrimRight(spewConfig.Sdump(v), "\n")
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return []byte(s)
}

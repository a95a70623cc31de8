package pysnaptest

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
)

// TabularWriter is implemented by dataframe-shaped values. The engine never
// inspects concrete types of external tabular libraries; adapters implement
// this capability interface instead.
type TabularWriter interface {
	// WriteCSV writes the table as delimited text with a header row.
	WriteCSV(w io.Writer) error

	// WriteJSON writes the table as a JSON document.
	WriteJSON(w io.Writer) error
}

// BinaryTabularWriter is implemented by tables that also have a columnar
// binary encoding (e.g. parquet). Pair with WithExtension to control the
// stored file extension.
type BinaryTabularWriter interface {
	TabularWriter

	// WriteBinary writes the table's binary encoding.
	WriteBinary(w io.Writer) error
}

// AssertTableSnapshot snapshots a tabular value in the requested format:
// FormatCSV, FormatJSON, or FormatBinary (the latter only for
// BinaryTabularWriter implementations). Any other format is a usage error.
func AssertTableSnapshot(tb testing.TB, table TabularWriter, format Format, opts ...Option) {
	tb.Helper()
	if err := assertTable(tb, table, format, newAssertConfig(opts)); err != nil {
		tb.Fatal(err)
	}
}

func assertTable(tb testing.TB, table TabularWriter, format Format, cfg *assertConfig) error {
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		if err := table.WriteCSV(&buf); err != nil {
			return usageErrorf("table CSV serialization failed: %v", err)
		}
		return assertCSV(tb, buf.String(), cfg)

	case FormatJSON:
		if err := table.WriteJSON(&buf); err != nil {
			return usageErrorf("table JSON serialization failed: %v", err)
		}
		return assertJSON(tb, json.RawMessage(buf.Bytes()), cfg)

	case FormatBinary:
		bw, ok := table.(BinaryTabularWriter)
		if !ok {
			return usageErrorf("table type %T does not support binary serialization", table)
		}
		if err := bw.WriteBinary(&buf); err != nil {
			return usageErrorf("table binary serialization failed: %v", err)
		}
		return assertBinary(tb, buf.Bytes(), cfg)

	default:
		return usageErrorf("unsupported snapshot format for tables: %q (supported: csv, json, binary)", format)
	}
}

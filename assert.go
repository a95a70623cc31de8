package pysnaptest

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"testing"
)

// Option configures a snapshot assertion or mock using the functional
// options pattern.
type Option func(*assertConfig)

// assertConfig holds the resolved per-assertion configuration.
type assertConfig struct {
	name            string
	dir             string
	redactions      Redactions
	extension       string
	allowDuplicates bool
	registry        *Registry
	settings        *Settings
	update          UpdateMode
	mockMode        MockMode
	requestCapture  bool
}

// WithName overrides the derived snapshot name. The part before the first
// "-" becomes the scope; ordinals are counted under it.
func WithName(name string) Option {
	return func(cfg *assertConfig) {
		cfg.name = name
	}
}

// WithDir stores snapshots in the given directory instead of the snapshots
// subdirectory next to the test source.
func WithDir(dir string) Option {
	return func(cfg *assertConfig) {
		cfg.dir = dir
	}
}

// WithRedactions masks volatile fields before persisting and comparing.
// Valid only for JSON and CSV snapshots.
func WithRedactions(r Redactions) Option {
	return func(cfg *assertConfig) {
		cfg.redactions = r
	}
}

// WithExtension overrides the stored file extension of a binary snapshot
// (e.g. "parquet").
func WithExtension(ext string) Option {
	return func(cfg *assertConfig) {
		cfg.extension = ext
	}
}

// AllowDuplicates permits repeated assertions against the same snapshot key
// instead of failing with DuplicateSnapshotError.
func AllowDuplicates() Option {
	return func(cfg *assertConfig) {
		cfg.allowDuplicates = true
	}
}

// WithRegistry uses an explicit ordinal registry instead of the process-wide
// default.
func WithRegistry(r *Registry) Option {
	return func(cfg *assertConfig) {
		cfg.registry = r
	}
}

// WithSettings uses explicit settings instead of the ones loaded from the
// environment and config file.
func WithSettings(s *Settings) Option {
	return func(cfg *assertConfig) {
		cfg.settings = s
	}
}

// WithUpdate overrides the update mode for this assertion only.
func WithUpdate(mode UpdateMode) Option {
	return func(cfg *assertConfig) {
		cfg.update = mode
	}
}

func newAssertConfig(opts []Option) *assertConfig {
	cfg := &assertConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ensureSettings resolves settings once per assertion when none were injected.
func (cfg *assertConfig) ensureSettings() error {
	if cfg.settings != nil {
		return nil
	}
	s, err := loadGlobalSettings()
	if err != nil {
		return err
	}
	cfg.settings = s
	return nil
}

func (cfg *assertConfig) registryOrDefault() *Registry {
	if cfg.registry != nil {
		return cfg.registry
	}
	return defaultRegistry
}

// dirName is the snapshot subdirectory created next to test sources.
func (cfg *assertConfig) dirName() string {
	if cfg.settings != nil && cfg.settings.DirName != "" {
		return cfg.settings.DirName
	}
	return "snapshots"
}

func (cfg *assertConfig) extensionFor(format Format) string {
	if cfg.extension != "" {
		return cfg.extension
	}
	return format.extension()
}

func (cfg *assertConfig) updateMode() UpdateMode {
	if cfg.update != "" {
		return cfg.update
	}
	if cfg.settings != nil && cfg.settings.Update != "" {
		return cfg.settings.Update
	}
	return UpdateMissing
}

// AssertSnapshot snapshots a value, routing by shape the way the other
// Assert functions do explicitly: []byte is binary, TabularWriter is CSV
// tabular, maps/slices/structs are JSON, everything else is generic text.
func AssertSnapshot(tb testing.TB, value any, opts ...Option) {
	tb.Helper()
	if err := assertAuto(tb, value, newAssertConfig(opts)); err != nil {
		tb.Fatal(err)
	}
}

// AssertJSONSnapshot snapshots a value as canonical JSON with structural
// comparison. Accepts any JSON-serializable Go value; []byte and
// json.RawMessage are treated as encoded JSON documents.
func AssertJSONSnapshot(tb testing.TB, value any, opts ...Option) {
	tb.Helper()
	if err := assertJSON(tb, value, newAssertConfig(opts)); err != nil {
		tb.Fatal(err)
	}
}

// AssertCSVSnapshot snapshots delimited text with a header row. Redaction
// selectors address columns by header name.
func AssertCSVSnapshot(tb testing.TB, content string, opts ...Option) {
	tb.Helper()
	if err := assertCSV(tb, content, newAssertConfig(opts)); err != nil {
		tb.Fatal(err)
	}
}

// AssertBinarySnapshot snapshots raw bytes, compared byte for byte. Use
// WithExtension to control the stored file extension (default "bin").
func AssertBinarySnapshot(tb testing.TB, data []byte, opts ...Option) {
	tb.Helper()
	if err := assertBinary(tb, data, newAssertConfig(opts)); err != nil {
		tb.Fatal(err)
	}
}

// Run invokes fn and snapshot-asserts its return value, the function-wrapping
// equivalent of AssertSnapshot:
//
//	report := pysnaptest.Run(t, BuildReport)
func Run[R any](tb testing.TB, fn func() R, opts ...Option) R {
	tb.Helper()
	result := fn()
	if err := assertAuto(tb, result, newAssertConfig(opts)); err != nil {
		tb.Fatal(err)
	}
	return result
}

func assertAuto(tb testing.TB, value any, cfg *assertConfig) error {
	switch v := value.(type) {
	case json.RawMessage:
		return assertJSON(tb, v, cfg)
	case []byte:
		return assertBinary(tb, v, cfg)
	case TabularWriter:
		return assertTable(tb, v, FormatCSV, cfg)
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return assertJSON(tb, value, cfg)
	default:
		return assertText(tb, value, cfg)
	}
}

func assertJSON(tb testing.TB, value any, cfg *assertConfig) error {
	if err := cfg.ensureSettings(); err != nil {
		return err
	}
	normalized, err := normalizeJSON(value)
	if err != nil {
		return err
	}
	redacted, err := applyRedactions(normalized, cfg.redactions)
	if err != nil {
		return err
	}
	fresh, err := encodeJSON(redacted)
	if err != nil {
		return err
	}
	return assertSerialized(tb, FormatJSON, fresh, cfg)
}

func assertCSV(tb testing.TB, content string, cfg *assertConfig) error {
	if err := cfg.ensureSettings(); err != nil {
		return err
	}
	table, err := parseCSV(content)
	if err != nil {
		return err
	}
	if err := table.redact(cfg.redactions); err != nil {
		return err
	}
	fresh, err := table.encode()
	if err != nil {
		return err
	}
	return assertSerialized(tb, FormatCSV, fresh, cfg)
}

func assertBinary(tb testing.TB, data []byte, cfg *assertConfig) error {
	if len(cfg.redactions) > 0 {
		return usageErrorf("redactions may only be used with json or csv snapshots")
	}
	if err := cfg.ensureSettings(); err != nil {
		return err
	}
	return assertSerialized(tb, FormatBinary, data, cfg)
}

func assertText(tb testing.TB, value any, cfg *assertConfig) error {
	if len(cfg.redactions) > 0 {
		return usageErrorf("redactions may only be used with json or csv snapshots")
	}
	if err := cfg.ensureSettings(); err != nil {
		return err
	}
	return assertSerialized(tb, FormatText, encodeText(value), cfg)
}

// assertSerialized is the single-shot compare-or-record operation: resolve
// the key, claim it, then record, compare, or fail per the update mode.
func assertSerialized(tb testing.TB, format Format, fresh []byte, cfg *assertConfig) error {
	ctx, err := resolveContext(tb, cfg)
	if err != nil {
		return err
	}

	reg := cfg.registryOrDefault()
	reg.bindCleanup(tb, ctx.Scope)
	ordinal := reg.ordinal(ctx)
	name := ctx.snapshotName(ordinal)
	path := ctx.snapshotPath(ordinal, cfg.extensionFor(format))

	if err := reg.claim(path, ctx.TestName, ctx.AllowDuplicates); err != nil {
		return err
	}

	mode := cfg.updateMode()
	if !snapshotExists(path) {
		switch mode {
		case UpdateNever:
			return &MissingSnapshotError{Name: name, Path: path, Ordinal: ordinal}
		case UpdateNew:
			return writePending(path, fresh)
		default:
			return writeSnapshot(path, fresh)
		}
	}

	if mode == UpdateAlways {
		return writeSnapshot(path, fresh)
	}

	stored, err := readSnapshot(path)
	if err != nil {
		return err
	}

	equal, err := contentsEqual(format, stored, fresh, cfg.redactions)
	if err != nil {
		return err
	}
	if equal {
		return clearPending(path)
	}

	if err := writePending(path, fresh); err != nil {
		return err
	}
	return &MismatchError{
		Name:   name,
		Path:   path,
		Stored: displayContent(format, stored),
		Fresh:  displayContent(format, fresh),
	}
}

// contentsEqual applies the format's equality rule: structural for JSON,
// exact bytes for everything else.
func contentsEqual(format Format, stored, fresh []byte, specs Redactions) (bool, error) {
	if format == FormatJSON {
		return equalJSON(stored, fresh, specs)
	}
	return bytes.Equal(stored, fresh), nil
}

// displayContent renders snapshot content for diagnostics; binary data shows
// as a hex dump.
func displayContent(format Format, data []byte) string {
	if format == FormatBinary {
		return hex.Dump(data)
	}
	return string(data)
}

package pysnaptest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

// MockMode selects the record/replay behavior of a mocked callable. The mode
// is fixed once when the callable is wrapped, never per call.
type MockMode int

const (
	// ModeAuto records when no snapshot exists for the first call and
	// replays otherwise.
	ModeAuto MockMode = iota
	// ModeRecord always invokes the real callable and re-records.
	ModeRecord
	// ModeReplay never invokes the real callable.
	ModeReplay
)

// WithMode fixes the mock's record/replay mode instead of resolving it from
// snapshot existence.
func WithMode(mode MockMode) Option {
	return func(cfg *assertConfig) {
		cfg.mockMode = mode
	}
}

// WithRequestCapture additionally snapshots the arguments of every mocked
// call (as "<name>-request"). During replay the captured arguments are
// compared against the recorded ones, making call-order drift visible.
func WithRequestCapture() Option {
	return func(cfg *assertConfig) {
		cfg.requestCapture = true
	}
}

// MockJSON wraps fn so that each invocation becomes an ordinal-scoped JSON
// snapshot of its result: recording calls fn and persists the (redacted)
// result, replay returns the persisted result without calling fn. Replay is
// sequenced by call order only — the arguments are not part of the snapshot
// identity, so the replaying test must invoke the mock in the same order as
// the recording run. A replay call beyond the recorded sequence fails with
// MissingSnapshotError.
//
// fn takes a single argument; adapt multi-argument dependencies with a small
// struct or closure. Recording returns fn's original result, not the
// redacted copy, so code under test sees real data.
func MockJSON[A, R any](tb testing.TB, fn func(A) (R, error), opts ...Option) func(A) (R, error) {
	m, err := newMockState(tb, functionName(fn), opts)
	if err != nil {
		return func(A) (R, error) {
			var zero R
			return zero, err
		}
	}
	return func(a A) (R, error) {
		return mockCall(m, a, func() (R, error) { return fn(a) })
	}
}

// MockJSONContext is MockJSON for context-taking callables; the context is
// forwarded to the real callable while recording and ignored during replay.
func MockJSONContext[A, R any](tb testing.TB, fn func(context.Context, A) (R, error), opts ...Option) func(context.Context, A) (R, error) {
	m, err := newMockState(tb, functionName(fn), opts)
	if err != nil {
		return func(context.Context, A) (R, error) {
			var zero R
			return zero, err
		}
	}
	return func(ctx context.Context, a A) (R, error) {
		return mockCall(m, a, func() (R, error) { return fn(ctx, a) })
	}
}

// mockState is the per-wrapped-callable state: the resolved identity scope
// and the mode chosen at wrap time. Ordinal sequencing lives in the registry.
type mockState struct {
	cfg       *assertConfig
	ctx       *TestContext
	reg       *Registry
	recording bool
}

func newMockState(tb testing.TB, fnName string, opts []Option) (*mockState, error) {
	cfg := newAssertConfig(opts)
	if err := cfg.ensureSettings(); err != nil {
		return nil, err
	}

	ctx, err := resolveContext(tb, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.name == "" {
		// Scope the sequence to this callable within the test, not to the
		// whole test.
		ctx.Scope = ctx.Scope + "_" + fnName
	}

	reg := cfg.registryOrDefault()
	reg.bindCleanup(tb, ctx.Scope)

	m := &mockState{cfg: cfg, ctx: ctx, reg: reg}
	switch cfg.mockMode {
	case ModeRecord:
		m.recording = true
	case ModeReplay:
		m.recording = false
	default:
		firstPath := ctx.snapshotPath(reg.current(ctx.Scope)+1, FormatJSON.extension())
		m.recording = !snapshotExists(firstPath)
	}
	return m, nil
}

// mockCall handles one invocation: assign the next ordinal, then record or
// replay.
func mockCall[A, R any](m *mockState, arg A, invoke func() (R, error)) (R, error) {
	var zero R

	ordinal := m.reg.ordinal(m.ctx)
	name := m.ctx.snapshotName(ordinal)
	path := m.ctx.snapshotPath(ordinal, FormatJSON.extension())
	if err := m.reg.claim(path, m.ctx.TestName, m.ctx.AllowDuplicates); err != nil {
		return zero, err
	}

	if m.cfg.requestCapture {
		if err := m.captureRequest(name, arg); err != nil {
			return zero, err
		}
	}

	if m.recording {
		result, err := invoke()
		if err != nil {
			return zero, err
		}
		normalized, err := normalizeJSON(result)
		if err != nil {
			return zero, err
		}
		redacted, err := applyRedactions(normalized, m.cfg.redactions)
		if err != nil {
			return zero, err
		}
		content, err := encodeJSON(redacted)
		if err != nil {
			return zero, err
		}
		if err := writeSnapshot(path, content); err != nil {
			return zero, err
		}
		return result, nil
	}

	stored, err := readSnapshot(path)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return zero, &MissingSnapshotError{Name: name, Path: path, Ordinal: ordinal}
		}
		return zero, err
	}

	var out R
	if err := json.Unmarshal(stored, &out); err != nil {
		return zero, fmt.Errorf("pysnaptest: decode snapshot %s into %T: %w", path, out, err)
	}
	return out, nil
}

// captureRequest snapshots the call's argument next to the result snapshot.
// Recording overwrites; replay compares and reports drift as a mismatch.
func (m *mockState) captureRequest(name string, arg any) error {
	normalized, err := normalizeJSON(map[string]any{"args": arg})
	if err != nil {
		return err
	}
	content, err := encodeJSON(normalized)
	if err != nil {
		return err
	}
	path := filepath.Join(m.ctx.Dir, name+"-request."+FormatJSON.extension())

	if m.recording {
		return writeSnapshot(path, content)
	}

	stored, err := readSnapshot(path)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil
		}
		return err
	}
	equal, err := equalJSON(stored, content, nil)
	if err != nil {
		return err
	}
	if !equal {
		return &MismatchError{
			Name:   name + "-request",
			Path:   path,
			Stored: string(stored),
			Fresh:  string(content),
		}
	}
	return nil
}

// functionName derives a snapshot-safe name for a wrapped callable.
func functionName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "fn"
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("-", "_", "[", "", "]", "", "(", "", ")", "", "*", "").Replace(name)
	if name == "" {
		return "fn"
	}
	return name
}

package pysnaptest

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// modulePath prefixes the functions of this module; frames below it are
// skipped when locating the calling test file.
const modulePath = "github.com/hugof38/pysnaptest"

// TestContext is the ambient identity of one snapshot assertion: which test
// is running, where its source lives, and where snapshots are stored. It is
// constructed fresh for every assertion, never cached.
type TestContext struct {
	// TestName is the running test's name including subtests ("" when the
	// context was built purely from overrides).
	TestName string

	// SourceFile is the test source file path ("" when overridden away).
	SourceFile string

	// Dir is the snapshot storage directory.
	Dir string

	// Scope is the base snapshot name under which ordinals are counted.
	Scope string

	// AllowDuplicates permits repeated assertions against the same key.
	AllowDuplicates bool
}

// resolveContext derives a TestContext from the running test plus any
// overrides. With both a name and a directory override the testing.TB is
// optional; otherwise resolution fails with ErrNoTestContext when it is
// missing or the calling test file cannot be located.
func resolveContext(tb testing.TB, cfg *assertConfig) (*TestContext, error) {
	ctx := &TestContext{AllowDuplicates: cfg.allowDuplicates}
	if tb != nil {
		ctx.TestName = tb.Name()
	}

	if cfg.name != "" && cfg.dir != "" {
		ctx.Scope = overrideScope(cfg.name)
		ctx.Dir = cfg.dir
		return ctx, nil
	}

	if tb == nil {
		return nil, fmt.Errorf("%w: no testing.TB and no name/path override", ErrNoTestContext)
	}

	src := callerSourceFile()
	if src == "" && cfg.dir == "" {
		return nil, fmt.Errorf("%w: calling test file not found", ErrNoTestContext)
	}
	ctx.SourceFile = src

	if cfg.name != "" {
		ctx.Scope = overrideScope(cfg.name)
	} else {
		stem := strings.TrimSuffix(filepath.Base(src), ".go")
		ctx.Scope = stem + "_" + sanitizeName(tb.Name())
	}

	if cfg.dir != "" {
		ctx.Dir = cfg.dir
	} else {
		ctx.Dir = filepath.Join(filepath.Dir(src), cfg.dirName())
	}
	return ctx, nil
}

// overrideScope normalizes a caller-supplied name: everything from the first
// "-" on is dropped because that separator is reserved for ordinal suffixes.
func overrideScope(name string) string {
	if i := strings.IndexByte(name, '-'); i >= 0 {
		return name[:i]
	}
	return name
}

// sanitizeName makes a test name filesystem-safe. Subtest separators become
// double underscores, whitespace a single one.
func sanitizeName(testName string) string {
	r := strings.NewReplacer("/", "__", " ", "_", "\t", "_")
	return r.Replace(testName)
}

// snapshotName appends the ordinal suffix; the first snapshot of a scope
// carries no suffix.
func (c *TestContext) snapshotName(ordinal int) string {
	if ordinal <= 1 {
		return c.Scope
	}
	return fmt.Sprintf("%s-%d", c.Scope, ordinal)
}

// snapshotPath maps an ordinal and extension to the storage path:
// <dir>/<scope>[-<ordinal>].<ext>.
func (c *TestContext) snapshotPath(ordinal int, extension string) string {
	return filepath.Join(c.Dir, c.snapshotName(ordinal)+"."+extension)
}

// callerSourceFile walks the call stack for the first frame outside this
// module (or one of the module's own _test.go files) that is not part of the
// testing runtime. Returns "" when no such frame exists.
func callerSourceFile() string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		if fr.File != "" {
			inModule := strings.HasPrefix(fr.Function, modulePath)
			isTestFile := strings.HasSuffix(fr.File, "_test.go")
			isRuntime := strings.HasPrefix(fr.Function, "testing.") ||
				strings.HasPrefix(fr.Function, "runtime.")
			if (!inModule || isTestFile) && !isRuntime {
				return fr.File
			}
		}
		if !more {
			return ""
		}
	}
}

// LastSnapshotName returns the name most recently assigned under the resolved
// scope (the base name when nothing was assigned yet).
func LastSnapshotName(tb testing.TB, opts ...Option) (string, error) {
	cfg := newAssertConfig(opts)
	if err := cfg.ensureSettings(); err != nil {
		return "", err
	}
	ctx, err := resolveContext(tb, cfg)
	if err != nil {
		return "", err
	}
	ord := cfg.registryOrDefault().current(ctx.Scope)
	if ord < 1 {
		ord = 1
	}
	return ctx.snapshotName(ord), nil
}

// NextSnapshotName returns the name the next assertion under the resolved
// scope will receive, without consuming an ordinal.
func NextSnapshotName(tb testing.TB, opts ...Option) (string, error) {
	cfg := newAssertConfig(opts)
	if err := cfg.ensureSettings(); err != nil {
		return "", err
	}
	ctx, err := resolveContext(tb, cfg)
	if err != nil {
		return "", err
	}
	return ctx.snapshotName(cfg.registryOrDefault().current(ctx.Scope) + 1), nil
}

// LastSnapshotPath returns the storage path of the most recently assigned
// snapshot for the given format.
func LastSnapshotPath(tb testing.TB, format Format, opts ...Option) (string, error) {
	cfg := newAssertConfig(opts)
	if err := cfg.ensureSettings(); err != nil {
		return "", err
	}
	ctx, err := resolveContext(tb, cfg)
	if err != nil {
		return "", err
	}
	ord := cfg.registryOrDefault().current(ctx.Scope)
	if ord < 1 {
		ord = 1
	}
	return ctx.snapshotPath(ord, cfg.extensionFor(format)), nil
}

// NextSnapshotPath returns the storage path the next assertion for the given
// format will use.
func NextSnapshotPath(tb testing.TB, format Format, opts ...Option) (string, error) {
	cfg := newAssertConfig(opts)
	if err := cfg.ensureSettings(); err != nil {
		return "", err
	}
	ctx, err := resolveContext(tb, cfg)
	if err != nil {
		return "", err
	}
	ord := cfg.registryOrDefault().current(ctx.Scope) + 1
	return ctx.snapshotPath(ord, cfg.extensionFor(format)), nil
}

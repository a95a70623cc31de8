package pysnaptest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Sentinel errors.
var (
	// ErrNoTestContext is returned when the ambient test identity cannot be
	// determined: no testing.TB was supplied and the snapshot name and
	// directory were not both overridden.
	ErrNoTestContext = errors.New("pysnaptest: cannot resolve test context")

	// ErrSnapshotNotFound is returned when a snapshot file does not exist.
	ErrSnapshotNotFound = errors.New("pysnaptest: snapshot not found")

	// ErrSnapshotTooLarge is returned when a snapshot exceeds MaxSnapshotSize.
	ErrSnapshotTooLarge = errors.New("pysnaptest: snapshot exceeds 100MB size limit")
)

// UsageError reports an unsupported format or an invalid option combination
// (e.g. redactions on a binary snapshot). It signals a bug in the calling
// test, not a snapshot divergence.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return "pysnaptest: " + e.Msg
}

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// MissingSnapshotError reports a replay against a snapshot that was never
// recorded: either strict mode with no recording, or a mocked callable
// invoked more times than were recorded.
type MissingSnapshotError struct {
	Name    string // snapshot name including ordinal suffix
	Path    string // resolved storage path
	Ordinal int
}

func (e *MissingSnapshotError) Error() string {
	return fmt.Sprintf("pysnaptest: missing snapshot %q (call %d): no recording at %s",
		e.Name, e.Ordinal, e.Path)
}

func (e *MissingSnapshotError) Unwrap() error {
	return ErrSnapshotNotFound
}

// DuplicateSnapshotError reports two assertions resolving to the same
// storage path without AllowDuplicates. This usually means two tests share
// an explicit snapshot name, or a snapshot call runs inside a loop.
type DuplicateSnapshotError struct {
	Path      string
	FirstTest string // test that first claimed the path ("" if unknown)
	Test      string // test attempting the duplicate
}

func (e *DuplicateSnapshotError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pysnaptest: duplicate snapshot at %s", e.Path)
	if e.FirstTest != "" && e.FirstTest != e.Test {
		fmt.Fprintf(&b, " (already claimed by %s)", e.FirstTest)
	}
	b.WriteString("; use AllowDuplicates or a distinct WithName")
	return b.String()
}

// MismatchError reports a divergence between the freshly computed value and
// the stored recording, after redaction of both sides. Stored and Fresh hold
// the canonical serialized forms for diagnostic display.
type MismatchError struct {
	Name   string
	Path   string
	Stored string
	Fresh  string
}

func (e *MismatchError) Error() string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(e.Stored),
		B:        difflib.SplitLines(e.Fresh),
		FromFile: "stored",
		ToFile:   "new",
		Context:  3,
	})
	if err != nil || diff == "" {
		diff = fmt.Sprintf("--- stored\n%s\n--- new\n%s\n", e.Stored, e.Fresh)
	}
	return fmt.Sprintf("pysnaptest: snapshot %q does not match recording at %s\n%s",
		e.Name, e.Path, strings.TrimRight(diff, "\n"))
}

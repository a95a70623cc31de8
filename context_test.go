package pysnaptest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveContext_DerivedScopeAndDir(t *testing.T) {
	cfg := newAssertConfig(nil)
	ctx, err := resolveContext(t, cfg)
	if err != nil {
		t.Fatalf("resolveContext returned error: %v", err)
	}

	if ctx.Scope != "context_test_TestResolveContext_DerivedScopeAndDir" {
		t.Errorf("unexpected scope: %q", ctx.Scope)
	}
	if filepath.Base(ctx.Dir) != "snapshots" {
		t.Errorf("unexpected dir: %q", ctx.Dir)
	}
	if !strings.HasSuffix(ctx.SourceFile, "context_test.go") {
		t.Errorf("unexpected source file: %q", ctx.SourceFile)
	}
	if ctx.TestName != t.Name() {
		t.Errorf("test name = %q, want %q", ctx.TestName, t.Name())
	}
}

func TestResolveContext_SubtestNameIsSanitized(t *testing.T) {
	t.Run("with space", func(t *testing.T) {
		ctx, err := resolveContext(t, newAssertConfig(nil))
		if err != nil {
			t.Fatalf("resolveContext returned error: %v", err)
		}
		if strings.ContainsAny(ctx.Scope, "/ ") {
			t.Errorf("scope not sanitized: %q", ctx.Scope)
		}
		if !strings.Contains(ctx.Scope, "__with_space") {
			t.Errorf("unexpected scope: %q", ctx.Scope)
		}
	})
}

func TestResolveContext_Overrides(t *testing.T) {
	cfg := newAssertConfig([]Option{WithName("fixed"), WithDir("/tmp/snaps")})
	ctx, err := resolveContext(nil, cfg)
	if err != nil {
		t.Fatalf("resolveContext with overrides returned error: %v", err)
	}
	if ctx.Scope != "fixed" || ctx.Dir != "/tmp/snaps" {
		t.Errorf("overrides not honored: %+v", ctx)
	}
}

func TestResolveContext_NameOverrideTruncatedAtDash(t *testing.T) {
	cfg := newAssertConfig([]Option{WithName("fixed-3"), WithDir("/tmp/snaps")})
	ctx, err := resolveContext(nil, cfg)
	if err != nil {
		t.Fatalf("resolveContext returned error: %v", err)
	}
	if ctx.Scope != "fixed" {
		t.Errorf("scope = %q, want %q (ordinal separator is reserved)", ctx.Scope, "fixed")
	}
}

func TestResolveContext_NoContext(t *testing.T) {
	_, err := resolveContext(nil, newAssertConfig(nil))
	if !errors.Is(err, ErrNoTestContext) {
		t.Errorf("expected ErrNoTestContext, got %v", err)
	}

	// A single override is not enough.
	_, err = resolveContext(nil, newAssertConfig([]Option{WithName("fixed")}))
	if !errors.Is(err, ErrNoTestContext) {
		t.Errorf("expected ErrNoTestContext with name only, got %v", err)
	}
}

func TestSnapshotName_OrdinalSuffix(t *testing.T) {
	ctx := &TestContext{Scope: "scope", Dir: "/snaps"}

	if got := ctx.snapshotName(1); got != "scope" {
		t.Errorf("snapshotName(1) = %q, want %q", got, "scope")
	}
	if got := ctx.snapshotName(2); got != "scope-2" {
		t.Errorf("snapshotName(2) = %q, want %q", got, "scope-2")
	}
	if got := ctx.snapshotPath(3, "json"); got != filepath.Join("/snaps", "scope-3.json") {
		t.Errorf("snapshotPath(3) = %q", got)
	}
	if got := ctx.snapshotPath(1, "csv"); got != filepath.Join("/snaps", "scope.csv") {
		t.Errorf("snapshotPath(1) = %q", got)
	}
}

func TestSnapshotNameIntrospection(t *testing.T) {
	reg := NewRegistry()
	opts := []Option{
		WithName("intro"),
		WithDir(t.TempDir()),
		WithRegistry(reg),
		WithSettings(DefaultSettings()),
	}

	next, err := NextSnapshotName(t, opts...)
	if err != nil {
		t.Fatalf("NextSnapshotName returned error: %v", err)
	}
	if next != "intro" {
		t.Errorf("NextSnapshotName = %q, want %q", next, "intro")
	}

	reg.ordinal(&TestContext{Scope: "intro"})
	reg.ordinal(&TestContext{Scope: "intro"})

	last, err := LastSnapshotName(t, opts...)
	if err != nil {
		t.Fatalf("LastSnapshotName returned error: %v", err)
	}
	if last != "intro-2" {
		t.Errorf("LastSnapshotName = %q, want %q", last, "intro-2")
	}

	next, err = NextSnapshotName(t, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if next != "intro-3" {
		t.Errorf("NextSnapshotName = %q, want %q", next, "intro-3")
	}

	path, err := NextSnapshotPath(t, FormatJSON, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "intro-3.json" {
		t.Errorf("NextSnapshotPath = %q", path)
	}
}

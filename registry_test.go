package pysnaptest

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry_OrdinalMonotonicity(t *testing.T) {
	reg := NewRegistry()
	ctx := &TestContext{Scope: "scope_a"}

	for want := 1; want <= 5; want++ {
		if got := reg.ordinal(ctx); got != want {
			t.Fatalf("ordinal call %d = %d", want, got)
		}
	}

	// A different scope counts independently.
	other := &TestContext{Scope: "scope_b"}
	if got := reg.ordinal(other); got != 1 {
		t.Errorf("fresh scope ordinal = %d, want 1", got)
	}
}

func TestRegistry_AllowDuplicatesFreezesOrdinal(t *testing.T) {
	reg := NewRegistry()
	ctx := &TestContext{Scope: "dup", AllowDuplicates: true}

	if got := reg.ordinal(ctx); got != 1 {
		t.Fatalf("first ordinal = %d, want 1", got)
	}
	if got := reg.ordinal(ctx); got != 1 {
		t.Fatalf("repeated ordinal = %d, want 1", got)
	}

	// After real assignments, duplicates reuse the latest ordinal.
	strict := &TestContext{Scope: "dup"}
	reg.ordinal(strict)
	reg.ordinal(strict)
	if got := reg.ordinal(ctx); got != 2 {
		t.Errorf("duplicate ordinal after assignments = %d, want 2", got)
	}
}

func TestRegistry_ClaimDetectsDuplicates(t *testing.T) {
	reg := NewRegistry()

	if err := reg.claim("/snapshots/fixed.json", "TestA", false); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	err := reg.claim("/snapshots/fixed.json", "TestB", false)
	var dup *DuplicateSnapshotError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateSnapshotError, got %v", err)
	}
	if dup.FirstTest != "TestA" || dup.Test != "TestB" {
		t.Errorf("unexpected error detail: %+v", dup)
	}

	if err := reg.claim("/snapshots/fixed.json", "TestC", true); err != nil {
		t.Errorf("claim with duplicates allowed failed: %v", err)
	}
}

func TestRegistry_ClaimSameTestAgain(t *testing.T) {
	reg := NewRegistry()

	if err := reg.claim("/snapshots/rerun.json", "TestA", false); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	// The same test running again in one process re-claims its own path.
	if err := reg.claim("/snapshots/rerun.json", "TestA", false); err != nil {
		t.Errorf("re-claim by the owning test failed: %v", err)
	}

	// An unknown claimant gets no such exemption.
	if err := reg.claim("/snapshots/anon.json", "", false); err != nil {
		t.Fatalf("first anonymous claim failed: %v", err)
	}
	if err := reg.claim("/snapshots/anon.json", "", false); err == nil {
		t.Error("anonymous re-claim should fail")
	}
}

func TestRegistry_CleanupResetsScope(t *testing.T) {
	reg := NewRegistry()
	scope := "cleanup_scope"

	t.Run("inner", func(t *testing.T) {
		reg.bindCleanup(t, scope)
		reg.ordinal(&TestContext{Scope: scope})
		reg.ordinal(&TestContext{Scope: scope})
		if got := reg.current(scope); got != 2 {
			t.Fatalf("counter = %d, want 2", got)
		}
	})

	// The subtest's cleanup ran; the scope starts over.
	if got := reg.current(scope); got != 0 {
		t.Errorf("counter after cleanup = %d, want 0", got)
	}
}

func TestRegistry_ConcurrentOrdinals(t *testing.T) {
	reg := NewRegistry()
	ctx := &TestContext{Scope: "concurrent"}

	const n = 50
	var wg sync.WaitGroup
	seen := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- reg.ordinal(ctx)
		}()
	}
	wg.Wait()
	close(seen)

	got := make(map[int]bool, n)
	for ord := range seen {
		if got[ord] {
			t.Fatalf("ordinal %d assigned twice", ord)
		}
		got[ord] = true
	}
	for i := 1; i <= n; i++ {
		if !got[i] {
			t.Errorf("ordinal %d never assigned", i)
		}
	}
}

package pysnaptest

import (
	"sync"
	"testing"
)

// Registry holds the per-scope ordinal counters and the set of snapshot paths
// claimed during this process. Assertions share the process-wide default
// registry; tests of the engine itself (or callers needing isolation) can
// inject their own via WithRegistry.
//
// Counters for a scope are torn down when the test that created them ends, so
// ordinals never leak across tests. Claimed paths deliberately survive test
// boundaries: that is what catches two tests writing the same snapshot file.
type Registry struct {
	mu       sync.Mutex
	counters map[string]int
	claimed  map[string]string // snapshot path → claiming test
	bound    map[string]bool   // scopes with an armed cleanup
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]int),
		claimed:  make(map[string]string),
		bound:    make(map[string]bool),
	}
}

var defaultRegistry = NewRegistry()

// current returns the last ordinal assigned under scope, 0 if none.
func (r *Registry) current(scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[scope]
}

// ordinal assigns the ordinal for the next assertion under ctx's scope.
// Ordinals are strictly sequential in invocation order. With AllowDuplicates
// the counter is not advanced, so repeated assertions reuse the same key.
func (r *Registry) ordinal(ctx *TestContext) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.AllowDuplicates {
		if ord := r.counters[ctx.Scope]; ord > 0 {
			return ord
		}
		return 1
	}
	r.counters[ctx.Scope]++
	return r.counters[ctx.Scope]
}

// bindCleanup arms a tb.Cleanup that resets the scope's counter when the test
// ends. Idempotent per scope.
func (r *Registry) bindCleanup(tb testing.TB, scope string) {
	if tb == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bound[scope] {
		return
	}
	r.bound[scope] = true
	tb.Cleanup(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.counters, scope)
		delete(r.bound, scope)
	})
}

// claim records that testName owns the snapshot at path. A path already
// claimed by another test fails with DuplicateSnapshotError unless duplicates
// are allowed. The same test re-claiming its own path is fine: that happens
// when a test runs more than once in one process (go test -count=2) and its
// counters were reset in between.
func (r *Registry) claim(path, testName string, allowDuplicates bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if first, ok := r.claimed[path]; ok {
		if allowDuplicates || (testName != "" && first == testName) {
			return nil
		}
		return &DuplicateSnapshotError{Path: path, FirstTest: first, Test: testName}
	}
	r.claimed[path] = testName
	return nil
}

//go:build go1.21

// Package replacer is the process-wide singleton that decides which
// [allocator.Allocator] backs the package's libc-style entry points
// (Malloc, Calloc, Realloc, Free, MallocSize).
//
// It mirrors the interposition shim this module is modeled on: normal
// process allocations are always routed through a "system" allocator so
// that a benchmark harness can later swap in a "subject" allocator and
// compare the two without touching call sites, and can also ask for a
// passthrough mode that bypasses both, to measure against Go's own
// allocator as the baseline.
package replacer

import (
	"sync"

	"github.com/AlexK0/simple-allocator/internal/debug"
	"github.com/AlexK0/simple-allocator/pkg/allocator"
)

// systemBufferSize backs the always-on system allocator, standing in for
// the malloc-backed BufferedAllocator the original shim keeps around for
// ordinary process traffic.
const systemBufferSize = 256 << 20

// benchmarkBufferSize backs the allocator instantiated by
// EnableBenchmarkAllocator(true).
const benchmarkBufferSize = 1 << 30

// Replacer is the active-allocator switchboard. Its zero value is not
// usable; obtain the process-wide instance with [Instance].
type Replacer struct {
	mu sync.Mutex

	system    *allocator.Allocator
	benchmark *allocator.Allocator

	// active is the allocator currently serving Malloc/Calloc/Realloc/Free/
	// MallocSize. A nil value is the passthrough sentinel: requests fall
	// through to Go's own allocator instead of pkg/allocator.
	active *allocator.Allocator
}

var (
	instance     *Replacer
	instanceOnce sync.Once
)

// Instance returns the process-wide Replacer, constructing it (and its
// system allocator) on first use.
func Instance() *Replacer {
	instanceOnce.Do(func() {
		sys, ok := allocator.New(make([]byte, systemBufferSize))
		debug.Assert(ok, "system allocator buffer too small")

		instance = &Replacer{system: sys, active: sys}
	})
	return instance
}

// Enable routes subsequent calls to a benchmark allocator backed by a fresh
// 1 GiB buffer, or to the passthrough sentinel if useSubject is false.
//
// Enable is not reentrant: it asserts that no benchmark allocator currently
// exists and that the system allocator is the active one. Calling it twice
// in a row without an intervening Disable is a programmer error and panics
// in debug builds.
func (r *Replacer) Enable(useSubject bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	debug.Assert(r.benchmark == nil, "benchmark allocator already enabled")
	debug.Assert(r.active == r.system, "active allocator is not the system allocator")

	if !useSubject {
		r.active = nil
		return
	}

	bench, ok := allocator.New(make([]byte, benchmarkBufferSize))
	debug.Assert(ok, "benchmark allocator buffer too small")

	r.benchmark = bench
	r.active = bench
}

// Disable destroys the benchmark allocator, if any, and restores the system
// allocator as active. It is safe to call even if Enable was never called.
func (r *Replacer) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.benchmark = nil
	r.active = r.system
}

// Active returns the allocator currently serving requests, or nil for the
// passthrough sentinel.
func (r *Replacer) Active() *allocator.Allocator {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active
}

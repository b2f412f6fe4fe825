//go:build go1.21

package replacer

import (
	"sync"
	"unsafe"
)

// passthrough stands in for the bookkeeping libc itself keeps when the
// active allocator is the nil sentinel: Go gives us no malloc_size-style
// introspection on a bare pointer, so Realloc and MallocSize need
// somewhere to look up how large a passthrough block actually is.
var passthrough = struct {
	mu    sync.Mutex
	sizes map[uintptr]int
}{sizes: make(map[uintptr]int)}

func passthroughAlloc(n int) *byte {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	p := &buf[0]

	passthrough.mu.Lock()
	passthrough.sizes[uintptr(unsafe.Pointer(p))] = n
	passthrough.mu.Unlock()

	return p
}

func passthroughSize(p *byte) int {
	if p == nil {
		return 0
	}
	passthrough.mu.Lock()
	n := passthrough.sizes[uintptr(unsafe.Pointer(p))]
	passthrough.mu.Unlock()
	return n
}

func passthroughFree(p *byte) {
	if p == nil {
		return
	}
	passthrough.mu.Lock()
	delete(passthrough.sizes, uintptr(unsafe.Pointer(p)))
	passthrough.mu.Unlock()
}

// Malloc allocates n bytes from the active allocator, or from Go's own
// allocator when the passthrough sentinel is active.
func Malloc(n int) *byte {
	if n <= 0 {
		return nil
	}

	a := Instance().Active()
	if a == nil {
		return passthroughAlloc(n)
	}
	return a.Allocate(n)
}

// Calloc allocates count*size bytes, zeroed, failing (returning nil) if the
// multiplication overflows rather than silently wrapping the way the
// unchecked C calloc does.
func Calloc(count, size int) *byte {
	if count <= 0 || size <= 0 {
		return nil
	}
	total := count * size
	if total/count != size {
		return nil
	}

	p := Malloc(total)
	if p == nil {
		return nil
	}
	for i, s := 0, unsafe.Slice(p, total); i < len(s); i++ {
		s[i] = 0
	}
	return p
}

// Realloc resizes p to n bytes, preserving its surviving prefix, following
// the active allocator's Reallocate, or Go's own allocator in passthrough
// mode.
func Realloc(p *byte, n int) *byte {
	a := Instance().Active()
	if a != nil {
		return a.Reallocate(p, n)
	}

	if n <= 0 {
		passthroughFree(p)
		return nil
	}
	if p == nil {
		return passthroughAlloc(n)
	}

	oldSize := passthroughSize(p)
	q := passthroughAlloc(n)
	copySize := oldSize
	if n < copySize {
		copySize = n
	}
	copy(unsafe.Slice(q, n), unsafe.Slice(p, copySize))
	passthroughFree(p)
	return q
}

// Free releases p back to the active allocator. It is a no-op under the
// passthrough sentinel beyond dropping the size bookkeeping entry, since Go's
// garbage collector reclaims the backing memory on its own.
func Free(p *byte) {
	a := Instance().Active()
	if a != nil {
		a.Deallocate(p)
		return
	}
	passthroughFree(p)
}

// MallocSize reports the usable capacity of a pointer returned by Malloc,
// Calloc or Realloc.
func MallocSize(p *byte) int {
	a := Instance().Active()
	if a != nil {
		return a.Size(p)
	}
	return passthroughSize(p)
}

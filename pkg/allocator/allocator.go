//go:build go1.21

package allocator

import (
	"sync"
	"unsafe"

	"github.com/AlexK0/simple-allocator/internal/debug"
)

// noCopy causes `go vet` to flag accidental copies of an Allocator, whose
// internal pointers are only meaningful relative to its own buf.
type noCopy [0]sync.Mutex

// Allocator services Allocate/Deallocate/Reallocate/Size requests from a
// single buffer supplied to [New]. It never grows that buffer and never
// talks to the Go runtime's own allocator after construction.
//
// Allocator is not safe for concurrent use; callers needing thread safety
// must serialize access themselves, exactly as spec'd for the allocator this
// package is modeled on.
type Allocator struct {
	_ noCopy

	// buf roots the backing array for the garbage collector. begin, end and
	// frontier all point inside it; nothing else in this package ever holds
	// a pointer that can outlive buf.
	buf []byte

	begin, end, frontier unsafe.Pointer

	slots freeLists
	tree  tree
}

// New carves an [Allocator] out of buffer. It fails if buffer has fewer than
// Align usable, aligned bytes once begin is rounded up and end is rounded
// down to the alignment boundary.
func New(buffer []byte) (*Allocator, bool) {
	if len(buffer) == 0 {
		return nil, false
	}

	base := unsafe.Pointer(&buffer[0])
	begin := unsafe.Pointer((uintptr(base) + Align - 1) &^ (Align - 1))
	end := unsafe.Pointer((uintptr(base) + uintptr(len(buffer))) &^ (Align - 1))
	if uintptr(begin) >= uintptr(end) {
		return nil, false
	}

	return &Allocator{
		buf:      buffer,
		begin:    begin,
		end:      end,
		frontier: begin,
	}, true
}

// carve advances the frontier by total bytes and returns the address it
// used to sit at, or nil if that would run past end.
func (a *Allocator) carve(total int) unsafe.Pointer {
	next := unsafe.Pointer(uintptr(a.frontier) + uintptr(total))
	if uintptr(next) > uintptr(a.end) {
		return nil
	}

	p := a.frontier
	a.frontier = next
	return p
}

// Allocate returns a pointer to at least n Align-aligned bytes, taken from a
// free list, the tree or freshly carved at the frontier, or nil if n is zero
// or the arena and its free structures cannot satisfy the request.
//
// The request is rounded up to a multiple of Align. Sizes at or under
// SlotMax are served from the matching small-class free list; larger sizes
// are served from the red-black tree, splitting the tail of an
// over-sized match back into the tree when the residual is itself
// tree-sized, and leaving it unsplit otherwise (the residual would just
// become unreachable small-list fragmentation).
func (a *Allocator) Allocate(n int) *byte {
	if n <= 0 {
		return nil
	}

	s := alignUp(n)

	if s <= SlotMax {
		if h := a.slots.pop(slotIndex(s)); h != nil {
			debug.Log(nil, "alloc", "slot hit size=%d p=%p", s, h.payloadBegin())
			return (*byte)(h.payloadBegin())
		}
	} else if h := a.tree.retrieveBlock(s); h != nil {
		if leftover := h.getSize() - s; leftover > int(headerSize) {
			if userLeft := leftover - int(headerSize); slotIndex(userLeft) >= NumSlots {
				splitAddr := unsafe.Pointer(uintptr(h.payloadBegin()) + uintptr(s))
				h.setSize(s)
				a.tree.insert(headerAt(splitAddr, userLeft))
			}
		}
		debug.Log(nil, "alloc", "tree hit size=%d p=%p", s, h.payloadBegin())
		return (*byte)(h.payloadBegin())
	}

	addr := a.carve(int(headerSize) + s)
	if addr == nil {
		debug.Log(nil, "alloc", "miss size=%d: arena exhausted", s)
		return nil
	}

	h := headerAt(addr, s)
	debug.Log(nil, "alloc", "carve size=%d p=%p", s, h.payloadBegin())
	return (*byte)(h.payloadBegin())
}

// Deallocate returns p's block to the allocator. If p sits at the arena
// frontier, the block is reabsorbed into virgin space and the frontier
// retreats; otherwise the block joins the matching small-class free list or
// the tree. Deallocate(nil) is a no-op.
func (a *Allocator) Deallocate(p *byte) {
	if p == nil {
		return
	}

	h := headerOf(unsafe.Pointer(p))
	if h.payloadEnd() == a.frontier {
		a.frontier = unsafe.Pointer(h)
		debug.Log(nil, "free", "reabsorbed size=%d p=%p", h.getSize(), p)
		return
	}

	if i := slotIndex(h.getSize()); i < NumSlots {
		a.slots.push(i, h)
	} else {
		a.tree.insert(h)
	}
	debug.Log(nil, "free", "recycled size=%d p=%p", h.getSize(), p)
}

// Reallocate resizes p's block to newN bytes, preferring to do so in place.
//
// Reallocate(nil, n) behaves like Allocate(n); Reallocate(p, 0) behaves like
// Deallocate(p) and returns nil. When p sits at the arena frontier, shrinking
// retreats the frontier and growing extends it if there is room. Otherwise
// Reallocate falls back to Allocate+copy+Deallocate; on failure of that
// fallback it returns nil and leaves p valid and unchanged.
func (a *Allocator) Reallocate(p *byte, newN int) *byte {
	if p == nil {
		return a.Allocate(newN)
	}
	if newN <= 0 {
		a.Deallocate(p)
		return nil
	}

	s := alignUp(newN)
	h := headerOf(unsafe.Pointer(p))
	oldSize := h.getSize()
	if s == oldSize {
		return p
	}

	if h.payloadEnd() == a.frontier {
		if s < oldSize {
			a.frontier = unsafe.Pointer(uintptr(a.frontier) - uintptr(oldSize-s))
			h.setSize(s)
			debug.Log(nil, "realloc", "shrink-in-place %d->%d p=%p", oldSize, s, p)
			return p
		}
		if addr := a.carve(s - oldSize); addr != nil {
			h.setSize(s)
			debug.Log(nil, "realloc", "grow-in-place %d->%d p=%p", oldSize, s, p)
			return p
		}
	}

	newP := a.Allocate(s)
	if newP == nil {
		return nil
	}

	copySize := oldSize
	if s < copySize {
		copySize = s
	}
	copy(unsafe.Slice(newP, copySize), unsafe.Slice(p, copySize))
	a.Deallocate(p)
	debug.Log(nil, "realloc", "moved %d->%d %p->%p", oldSize, s, p, newP)
	return newP
}

// Size reports the payload capacity recorded for p, which may be larger
// than any size previously requested for p (a tree block whose residual was
// too small to split off is handed out whole). Size(nil) is 0.
func (a *Allocator) Size(p *byte) int {
	if p == nil {
		return 0
	}
	return headerOf(unsafe.Pointer(p)).getSize()
}

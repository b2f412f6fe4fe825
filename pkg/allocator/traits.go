//go:build go1.21

// Package allocator implements the arena carve-out, dual free-list, and
// red-black-tree engine this module exists to teach: a general-purpose heap
// allocator serving Allocate/Deallocate/Reallocate/Size requests from a
// single fixed-size []byte buffer supplied by the caller.
//
// An [Allocator] never talks to the Go runtime's own allocator after
// construction; every byte it ever hands out is carved from the buffer
// passed to [New]. This makes it suitable for standing in for a C
// malloc/free/realloc family, which is exactly what [pkg/replacer] uses it
// for.
package allocator

// Align is the alignment, in bytes, of every user pointer and of the block
// header. It must be a power of two; it is fixed at 16 to match the original
// allocator's assumption that a machine word header plus padding never
// exceeds it.
const Align = 16

// SlotMax is the largest payload size served by the small-class free-list
// array. Requests larger than SlotMax are served from the red-black tree.
const SlotMax = 16 * 1024

// NumSlots is the number of small-class free lists. Slot index for a size s
// that is a positive multiple of Align is (s/Align)-1.
const NumSlots = SlotMax / Align

func slotIndex(size int) int { return size/Align - 1 }

// alignUp rounds n up to the next multiple of Align.
func alignUp(n int) int {
	return (n + Align - 1) &^ (Align - 1)
}

//go:build go1.21

package allocator

import "unsafe"

// freeLists is the dense array of NumSlots singly-linked free lists used for
// small blocks (payload size <= SlotMax).
//
// Each list is intrusive: the "next" pointer of a freed block lives in the
// first machine word of the block's own payload, exactly like
// [MemorySlot] in the allocator this package is modeled on. Since Align is
// 16 and a pointer is at most 8 bytes on every platform Go targets, even the
// smallest slot class has room for the link.
type freeLists struct {
	heads [NumSlots]unsafe.Pointer // each a payload pointer, or nil
}

// pop detaches and returns the head of slot i, or nil if the slot is empty.
// The returned value is the block's header; the link word that was stored in
// its payload is now indeterminate.
func (f *freeLists) pop(i int) *header {
	p := f.heads[i]
	if p == nil {
		return nil
	}

	f.heads[i] = *(*unsafe.Pointer)(p)
	return headerOf(p)
}

// push overlays a link onto h's payload, pointing at the slot's current
// head, and makes h the new head. Insertion order is LIFO: the most
// recently freed block of a given size class is the first one reused.
func (f *freeLists) push(i int, h *header) {
	p := h.payloadBegin()
	*(*unsafe.Pointer)(p) = f.heads[i]
	f.heads[i] = p
}

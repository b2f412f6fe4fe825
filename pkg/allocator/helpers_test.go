//go:build go1.21

package allocator_test

import "unsafe"

func uintptrOf(p *byte) uintptr {
	return uintptr(unsafe.Pointer(p))
}

func ptrSlice(p *byte, n int) []byte {
	return unsafe.Slice(p, n)
}

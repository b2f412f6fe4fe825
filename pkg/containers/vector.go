//go:build go1.21

package containers

import (
	"unsafe"

	"github.com/AlexK0/simple-allocator/pkg/allocator"
)

// Vector is a growable, contiguous array of T carved from an
// [allocator.Allocator] instead of the Go heap. Its zero value is not
// usable; construct one with [NewVector].
type Vector[T any] struct {
	a        *allocator.Allocator
	ptr      *T
	len, cap int
}

// NewVector constructs an empty Vector backed by a.
func NewVector[T any](a *allocator.Allocator) *Vector[T] {
	checkAlign[T]()
	checkElementIsPointerFree[T]()
	return &Vector[T]{a: a}
}

// Len returns the number of live elements.
func (v *Vector[T]) Len() int { return v.len }

// Cap returns the number of elements that can be held before the next Push
// grows the backing allocation.
func (v *Vector[T]) Cap() int { return v.cap }

// Get returns the element at index i.
func (v *Vector[T]) Get(i int) T {
	if i < 0 || i >= v.len {
		panic("containers: index out of range")
	}
	return *v.unsafeAt(i)
}

// Set overwrites the element at index i.
func (v *Vector[T]) Set(i int, value T) {
	if i < 0 || i >= v.len {
		panic("containers: index out of range")
	}
	*v.unsafeAt(i) = value
}

func (v *Vector[T]) unsafeAt(i int) *T {
	var zero T
	size := unsafe.Sizeof(zero)
	base := uintptr(unsafe.Pointer(v.ptr))
	return (*T)(unsafe.Pointer(base + uintptr(i)*size))
}

// Push appends value, growing the backing allocation if necessary.
func (v *Vector[T]) Push(value T) {
	if v.len == v.cap {
		v.grow()
	}
	*v.unsafeAt(v.len) = value
	v.len++
}

// Pop removes and returns the last element. It panics if the Vector is
// empty.
func (v *Vector[T]) Pop() T {
	if v.len == 0 {
		panic("containers: pop from empty Vector")
	}
	v.len--
	return *v.unsafeAt(v.len)
}

// Free releases the Vector's backing allocation. The Vector must not be used
// afterward.
func (v *Vector[T]) Free() {
	if v.ptr == nil {
		return
	}
	v.a.Deallocate((*byte)(unsafe.Pointer(v.ptr)))
	v.ptr = nil
	v.len, v.cap = 0, 0
}

func (v *Vector[T]) grow() {
	var zero T
	size := int(unsafe.Sizeof(zero))

	newCap := v.cap * 2
	if newCap == 0 {
		newCap = 4
	}

	if v.ptr == nil {
		p := v.a.Allocate(newCap * size)
		if p == nil {
			panic("containers: allocation failed")
		}
		v.ptr = (*T)(unsafe.Pointer(p))
		v.cap = v.a.Size(p) / size
		return
	}

	p := v.a.Reallocate((*byte)(unsafe.Pointer(v.ptr)), newCap*size)
	if p == nil {
		panic("containers: reallocation failed")
	}
	v.ptr = (*T)(unsafe.Pointer(p))
	v.cap = v.a.Size(p) / size
}

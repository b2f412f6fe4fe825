//go:build go1.21

// Package containers provides generic data structures backed directly by a
// [allocator.Allocator] instead of the Go heap.
//
// Like the arena this module's allocator is modeled on, every structure here
// only ever returns pointers to data of pointer-free shape: the element type
// of a [Vector], [List] or [HashMap] must not itself contain a Go pointer,
// slice, string, map, channel, func or interface. The allocator's backing
// buffer is an ordinary []byte, and the garbage collector does not trace
// pointers stored inside one; a pointer-containing element would become an
// untraced, dangling reference the moment its target is swept.
// checkElementIsPointerFree enforces this at construction time instead of
// leaving it as a documentation caveat. It does not apply to the internal
// link fields (prev/next) these structures store alongside an element:
// those are deliberate intra-buffer pointers, safe for exactly the reason
// [pkg/allocator]'s tree and free-list links are.
//
// Alignment is bounded the same way: a stored value whose natural alignment
// exceeds [allocator.Align] cannot be placed at an allocator-returned address
// and the constructors (NewVector, NewList, NewHashMap) panic rather than
// corrupt memory silently.
package containers

import (
	"reflect"
	"unsafe"

	"github.com/AlexK0/simple-allocator/pkg/allocator"
)

// checkAlign panics if W, the type actually carved out of the allocator
// (an element type or a link-plus-element wrapper struct), is over-aligned
// for allocator.Align.
func checkAlign[W any]() {
	var zero W
	if unsafe.Alignof(zero) > uintptr(allocator.Align) {
		panic("containers: over-aligned element type")
	}
}

// checkElementIsPointerFree panics if T contains a Go pointer anywhere in
// its shape. Unlike checkAlign, this must be called with the bare element
// type, never a wrapper struct that legitimately carries its own intrusive
// links.
func checkElementIsPointerFree[T any]() {
	if t := reflect.TypeFor[T](); containsPointer(t) {
		panic("containers: element type " + t.String() + " contains a pointer, which allocator-backed storage cannot keep alive")
	}
}

// containsPointer reports whether t's shape contains anything the garbage
// collector would need to trace: pointers, slices, strings, maps, channels,
// funcs, interfaces or unsafe.Pointer, whether directly or nested inside a
// struct or array field.
func containsPointer(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.String, reflect.Map,
		reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return containsPointer(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if containsPointer(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

//go:build go1.21

package containers

import (
	"unsafe"

	"github.com/AlexK0/simple-allocator/pkg/allocator"
)

type listNode[T any] struct {
	prev, next *listNode[T]
	value      T
}

// List is a doubly linked list of T, its nodes individually carved from an
// [allocator.Allocator]. Its zero value is not usable; construct one with
// [NewList].
type List[T any] struct {
	a          *allocator.Allocator
	head, tail *listNode[T]
	len        int
}

// NewList constructs an empty List backed by a.
func NewList[T any](a *allocator.Allocator) *List[T] {
	checkAlign[listNode[T]]()
	checkElementIsPointerFree[T]()
	return &List[T]{a: a}
}

// Len returns the number of elements in the list.
func (l *List[T]) Len() int { return l.len }

func (l *List[T]) newNode(value T) *listNode[T] {
	var zero listNode[T]
	p := l.a.Allocate(int(unsafe.Sizeof(zero)))
	if p == nil {
		panic("containers: allocation failed")
	}
	n := (*listNode[T])(unsafe.Pointer(p))
	n.prev, n.next = nil, nil
	n.value = value
	return n
}

// PushBack appends value to the end of the list.
func (l *List[T]) PushBack(value T) {
	n := l.newNode(value)
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.len++
}

// PushFront prepends value to the start of the list.
func (l *List[T]) PushFront(value T) {
	n := l.newNode(value)
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.len++
}

// PopBack removes and returns the last element. ok is false if the list is
// empty.
func (l *List[T]) PopBack() (value T, ok bool) {
	if l.tail == nil {
		return value, false
	}
	n := l.tail
	l.tail = n.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
	l.len--
	value = n.value
	l.a.Deallocate((*byte)(unsafe.Pointer(n)))
	return value, true
}

// PopFront removes and returns the first element. ok is false if the list is
// empty.
func (l *List[T]) PopFront() (value T, ok bool) {
	if l.head == nil {
		return value, false
	}
	n := l.head
	l.head = n.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	l.len--
	value = n.value
	l.a.Deallocate((*byte)(unsafe.Pointer(n)))
	return value, true
}

// Each calls fn for every element, from front to back. fn must not mutate
// the list.
func (l *List[T]) Each(fn func(T)) {
	for n := l.head; n != nil; n = n.next {
		fn(n.value)
	}
}

// Free releases every remaining node's backing allocation. The List must not
// be used afterward.
func (l *List[T]) Free() {
	for n := l.head; n != nil; {
		next := n.next
		l.a.Deallocate((*byte)(unsafe.Pointer(n)))
		n = next
	}
	l.head, l.tail = nil, nil
	l.len = 0
}

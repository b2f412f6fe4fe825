//go:build go1.21

package containers

import (
	"unsafe"

	"github.com/dolthub/maphash"

	"github.com/AlexK0/simple-allocator/pkg/allocator"
)

type entry[K comparable, V any] struct {
	next  *entry[K, V]
	hash  uint64
	key   K
	value V
}

// HashMap is a chained hash table keyed by K, with its entries carved from an
// [allocator.Allocator]; the bucket array itself is an ordinary Go-heap
// slice. Its zero value is not usable; construct one with [NewHashMap].
//
// Hashing follows the same pattern the teacher's Swiss table uses: one
// [maphash.Hasher] built once per map and reused for every key.
type HashMap[K comparable, V any] struct {
	a       *allocator.Allocator
	hash    maphash.Hasher[K]
	buckets []*entry[K, V] // Go-heap slice of allocator-owned entry chains.
	count   int
}

const initialBuckets = 8

// NewHashMap constructs an empty HashMap backed by a.
func NewHashMap[K comparable, V any](a *allocator.Allocator) *HashMap[K, V] {
	checkAlign[entry[K, V]]()
	checkElementIsPointerFree[K]()
	checkElementIsPointerFree[V]()
	return &HashMap[K, V]{
		a:       a,
		hash:    maphash.NewHasher[K](),
		buckets: make([]*entry[K, V], initialBuckets),
	}
}

// Len returns the number of key-value pairs stored.
func (m *HashMap[K, V]) Len() int { return m.count }

func (m *HashMap[K, V]) bucketFor(hash uint64) int {
	return int(hash % uint64(len(m.buckets)))
}

// Get looks up key, returning its value and whether it was found.
func (m *HashMap[K, V]) Get(key K) (value V, ok bool) {
	hash := m.hash.Hash(key)
	for e := m.buckets[m.bucketFor(hash)]; e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			return e.value, true
		}
	}
	return value, false
}

// Has reports whether key is present.
func (m *HashMap[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Set inserts or overwrites the value for key.
func (m *HashMap[K, V]) Set(key K, value V) {
	hash := m.hash.Hash(key)
	idx := m.bucketFor(hash)
	for e := m.buckets[idx]; e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			e.value = value
			return
		}
	}

	if m.count >= len(m.buckets)*2 {
		m.rehash()
		idx = m.bucketFor(hash)
	}

	e := m.newEntry(hash, key, value)
	e.next = m.buckets[idx]
	m.buckets[idx] = e
	m.count++
}

// Delete removes key, if present.
func (m *HashMap[K, V]) Delete(key K) {
	hash := m.hash.Hash(key)
	idx := m.bucketFor(hash)

	var prev *entry[K, V]
	for e := m.buckets[idx]; e != nil; e = e.next {
		if e.hash == hash && e.key == key {
			if prev != nil {
				prev.next = e.next
			} else {
				m.buckets[idx] = e.next
			}
			m.count--
			m.a.Deallocate((*byte)(unsafe.Pointer(e)))
			return
		}
		prev = e
	}
}

// Each calls fn for every key-value pair, in unspecified order. fn must not
// mutate the map.
func (m *HashMap[K, V]) Each(fn func(K, V)) {
	for _, head := range m.buckets {
		for e := head; e != nil; e = e.next {
			fn(e.key, e.value)
		}
	}
}

func (m *HashMap[K, V]) newEntry(hash uint64, key K, value V) *entry[K, V] {
	var zero entry[K, V]
	p := m.a.Allocate(int(unsafe.Sizeof(zero)))
	if p == nil {
		panic("containers: allocation failed")
	}
	e := (*entry[K, V])(unsafe.Pointer(p))
	e.next = nil
	e.hash = hash
	e.key = key
	e.value = value
	return e
}

// rehash doubles the bucket count and relinks every existing entry. The
// entries themselves are not reallocated, only their chain pointers change.
func (m *HashMap[K, V]) rehash() {
	next := make([]*entry[K, V], len(m.buckets)*2)
	for _, head := range m.buckets {
		for e := head; e != nil; {
			n := e.next
			idx := int(e.hash % uint64(len(next)))
			e.next = next[idx]
			next[idx] = e
			e = n
		}
	}
	m.buckets = next
}

// Free releases every entry's backing allocation. The HashMap must not be
// used afterward.
func (m *HashMap[K, V]) Free() {
	for _, head := range m.buckets {
		for e := head; e != nil; {
			next := e.next
			m.a.Deallocate((*byte)(unsafe.Pointer(e)))
			e = next
		}
	}
	m.buckets = nil
	m.count = 0
}

//go:build go1.21

package containers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AlexK0/simple-allocator/pkg/allocator"
	"github.com/AlexK0/simple-allocator/pkg/containers"
)

func TestVectorPushGet(t *testing.T) {
	a, ok := allocator.New(make([]byte, 4096))
	assert.True(t, ok)

	v := containers.NewVector[int64](a)
	for i := int64(0); i < 100; i++ {
		v.Push(i * i)
	}

	assert.Equal(t, 100, v.Len())
	for i := int64(0); i < 100; i++ {
		assert.Equal(t, i*i, v.Get(int(i)))
	}
}

func TestVectorSet(t *testing.T) {
	a, _ := allocator.New(make([]byte, 4096))

	v := containers.NewVector[int](a)
	v.Push(1)
	v.Push(2)
	v.Set(0, 42)

	assert.Equal(t, 42, v.Get(0))
	assert.Equal(t, 2, v.Get(1))
}

func TestVectorPop(t *testing.T) {
	a, _ := allocator.New(make([]byte, 4096))

	v := containers.NewVector[int](a)
	v.Push(1)
	v.Push(2)
	v.Push(3)

	assert.Equal(t, 3, v.Pop())
	assert.Equal(t, 2, v.Pop())
	assert.Equal(t, 1, v.Pop())
	assert.Panics(t, func() { v.Pop() })
}

func TestVectorGetOutOfRangePanics(t *testing.T) {
	a, _ := allocator.New(make([]byte, 4096))

	v := containers.NewVector[int](a)
	v.Push(1)

	assert.Panics(t, func() { v.Get(1) })
	assert.Panics(t, func() { v.Get(-1) })
}

func TestVectorFreeThenReuse(t *testing.T) {
	a, _ := allocator.New(make([]byte, 4096))

	v := containers.NewVector[int](a)
	for i := 0; i < 20; i++ {
		v.Push(i)
	}
	v.Free()

	// The allocation backing v sits at the arena frontier, so freeing it
	// reabsorbs it into virgin space; a fresh vector should be able to reuse
	// that memory.
	w := containers.NewVector[int](a)
	w.Push(7)
	assert.Equal(t, 7, w.Get(0))
}

//go:build go1.21

package allocator

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func alignedAddr(buf []byte) unsafe.Pointer {
	return unsafe.Pointer((uintptr(unsafe.Pointer(&buf[0])) + Align - 1) &^ (Align - 1))
}

func TestFreeListsPopEmpty(t *testing.T) {
	t.Parallel()

	var f freeLists
	assert.Nil(t, f.pop(0))
}

func TestFreeListsLIFO(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 4*headerSize+4*Align+64)
	base := alignedAddr(buf)

	var f freeLists

	h1 := headerAt(base, Align)
	h2 := headerAt(unsafe.Pointer(uintptr(base)+headerSize+Align), Align)
	h3 := headerAt(unsafe.Pointer(uintptr(base)+2*(headerSize+Align)), Align)

	i := slotIndex(Align)
	f.push(i, h1)
	f.push(i, h2)
	f.push(i, h3)

	assert.Equal(t, h3, f.pop(i))
	assert.Equal(t, h2, f.pop(i))
	assert.Equal(t, h1, f.pop(i))
	assert.Nil(t, f.pop(i))
}

//go:build go1.21

package replacer_test

import "unsafe"

func unsafeSliceByte(p *byte, n int) []byte {
	return unsafe.Slice(p, n)
}

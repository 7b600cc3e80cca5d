package primitives

import "runtime"

// Zeroize overwrites b with zero bytes. The runtime.KeepAlive call keeps
// the compiler from proving the write is dead and eliding it.
//
//go:noinline
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}

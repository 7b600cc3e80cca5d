package primitives

import "crypto/subtle"

// ConstantTimeEqual reports whether a and b hold identical bytes without
// branching on their contents. Used for MAC verification and one-time-key
// lookup by public value.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

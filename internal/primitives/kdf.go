package primitives

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFSHA256 runs RFC 5869 HKDF-SHA-256 over ikm with the given salt and
// info, returning outLen bytes of output.
func HKDFSHA256(salt, ikm, info []byte, outLen int) ([]byte, error) {
	r := hkdf.New(sha256.New, ikm, salt, info)
	out := make([]byte, outLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HMACSHA256 returns the 32-byte HMAC-SHA-256 tag of msg under key.
func HMACSHA256(key, msg []byte) [32]byte {
	h := hmac.New(sha256.New, key)
	h.Write(msg)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

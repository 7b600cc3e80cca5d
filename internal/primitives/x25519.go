package primitives

import (
	"io"

	"golang.org/x/crypto/curve25519"
)

// X25519KeyPair generates a Curve25519 key pair, clamping the private
// scalar per RFC 7748 and deriving the public key against the base point.
func X25519KeyPair(rnd io.Reader) (priv, pub [32]byte, err error) {
	if _, err = io.ReadFull(rnd, priv[:]); err != nil {
		return priv, pub, err
	}
	ClampX25519(&priv)
	pubBytes, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], pubBytes)
	return priv, pub, nil
}

// X25519KeyPairFromSeed derives a Curve25519 key pair deterministically
// from a 32-byte seed, for callers that need reproducible keys such as
// test vectors.
func X25519KeyPairFromSeed(seed [32]byte) (priv, pub [32]byte, err error) {
	priv = seed
	ClampX25519(&priv)
	pubBytes, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], pubBytes)
	return priv, pub, nil
}

// X25519 performs the Diffie-Hellman computation X25519(priv, pub).
func X25519(priv, pub [32]byte) (shared [32]byte, err error) {
	out, err := curve25519.X25519(priv[:], pub[:])
	if err != nil {
		return shared, err
	}
	copy(shared[:], out)
	return shared, nil
}

// ClampX25519 applies the standard Curve25519 scalar clamp in place.
func ClampX25519(priv *[32]byte) {
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
}

package primitives

import (
	"crypto/ed25519"
	"io"
)

// Ed25519KeyPair generates a fresh Ed25519 signing key pair.
func Ed25519KeyPair(rnd io.Reader) (pub [32]byte, priv [64]byte, err error) {
	pk, sk, err := ed25519.GenerateKey(rnd)
	if err != nil {
		return pub, priv, err
	}
	copy(pub[:], pk)
	copy(priv[:], sk)
	return pub, priv, nil
}

// Ed25519KeyPairFromSeed expands a 32-byte seed into an Ed25519 key pair
// deterministically, per RFC 8032. Used by PkSigning, where callers need
// reproducible signatures.
func Ed25519KeyPairFromSeed(seed [32]byte) (pub [32]byte, priv [64]byte) {
	sk := ed25519.NewKeyFromSeed(seed[:])
	copy(priv[:], sk)
	copy(pub[:], sk.Public().(ed25519.PublicKey))
	return pub, priv
}

// Ed25519Sign signs msg with priv and returns the 64-byte signature.
func Ed25519Sign(priv [64]byte, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// Ed25519Verify reports whether sig is a valid signature over msg by pub.
func Ed25519Verify(pub [32]byte, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

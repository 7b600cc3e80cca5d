package olm

import (
	"crypto/sha256"

	"olm/internal/primitives"
)

// Utility groups the two stateless helper operations callers reach for
// without needing a full Account or Session: hashing and raw Ed25519
// verification.
type Utility struct{}

// Sha256 returns the base64 of SHA-256(input).
func (Utility) Sha256(input []byte) string {
	sum := sha256.Sum256(input)
	return encodeB64(sum[:])
}

// Ed25519Verify checks a base64 signature over msg by a base64 Ed25519
// public key, returning ErrBadSignature on failure or ErrInvalidBase64
// if either argument doesn't decode.
func (Utility) Ed25519Verify(pubKeyB64 string, msg []byte, sigB64 string) error {
	pubBytes, err := decodeB64(pubKeyB64)
	if err != nil {
		return err
	}
	if len(pubBytes) != 32 {
		return newErr(ErrBadMessageFormat, nil)
	}
	sig, err := decodeB64(sigB64)
	if err != nil {
		return err
	}
	var pub [32]byte
	copy(pub[:], pubBytes)
	if !primitives.Ed25519Verify(pub, msg, sig) {
		return newErr(ErrBadSignature, nil)
	}
	return nil
}

// Package primitives collects the raw cryptographic building blocks used
// by the ratchet, pickle and megolm layers: Curve25519, Ed25519, HKDF,
// HMAC-SHA-256, AES-256-CBC with PKCS#7 padding, constant-time comparison
// and best-effort zeroization.
//
// Nothing in this package retains state between calls and nothing here
// logs; callers own the lifetime of every key byte they pass in.
package primitives

// Package pickle implements the encrypted-at-rest envelope shared by
// every stateful object: version_be32 || AES-256-CBC ciphertext || mac8.
// The AES key, HMAC key and IV are derived fresh on every pickle/unpickle
// call via HKDF-SHA-256 over the caller-supplied key, with an empty salt
// and empty info, so nothing about the derivation is ever persisted.
//
// The cleartext payload underneath the envelope is not self-describing;
// Writer/Reader encode it as a flat, version-ordered sequence of typed
// fields, and each object class owns its own field order per version.
package pickle

package olm_test

import (
	"crypto/rand"
	"testing"

	"olm/olm"
)

func TestPkEncryptionRoundTrip(t *testing.T) {
	dec, err := olm.NewPkDecryption(rand.Reader)
	if err != nil {
		t.Fatalf("NewPkDecryption: %v", err)
	}
	enc, err := olm.NewPkEncryption(dec.PublicKey())
	if err != nil {
		t.Fatalf("NewPkEncryption: %v", err)
	}

	ct, mac, ephemeral, err := enc.Encrypt([]byte("sealed"), rand.Reader)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := dec.Decrypt(ephemeral, mac, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "sealed" {
		t.Fatalf("got %q", pt)
	}
}

func TestPkEncryptionEachCallUsesFreshEphemeralKey(t *testing.T) {
	dec, err := olm.NewPkDecryption(rand.Reader)
	if err != nil {
		t.Fatalf("NewPkDecryption: %v", err)
	}
	enc, err := olm.NewPkEncryption(dec.PublicKey())
	if err != nil {
		t.Fatalf("NewPkEncryption: %v", err)
	}
	_, _, eph1, err := enc.Encrypt([]byte("one"), rand.Reader)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	_, _, eph2, err := enc.Encrypt([]byte("two"), rand.Reader)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if eph1 == eph2 {
		t.Fatalf("expected distinct ephemeral keys across calls")
	}
}

func TestPkDecryptionWrongRecipientFails(t *testing.T) {
	dec, err := olm.NewPkDecryption(rand.Reader)
	if err != nil {
		t.Fatalf("NewPkDecryption: %v", err)
	}
	otherDec, err := olm.NewPkDecryption(rand.Reader)
	if err != nil {
		t.Fatalf("NewPkDecryption: %v", err)
	}
	enc, err := olm.NewPkEncryption(dec.PublicKey())
	if err != nil {
		t.Fatalf("NewPkEncryption: %v", err)
	}
	ct, mac, ephemeral, err := enc.Encrypt([]byte("for dec only"), rand.Reader)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := otherDec.Decrypt(ephemeral, mac, ct); err == nil {
		t.Fatalf("expected decryption by the wrong recipient to fail")
	}
}

func TestPkSigningIsDeterministicInSeed(t *testing.T) {
	var seed [32]byte
	copy(seed[:], []byte("a fixed deterministic test seed"))

	a := olm.NewPkSigning(seed)
	b := olm.NewPkSigning(seed)
	if a.PublicKey() != b.PublicKey() {
		t.Fatalf("same seed must produce the same public key")
	}
	msg := []byte("sign me")
	if a.Sign(msg) != b.Sign(msg) {
		t.Fatalf("same seed must produce the same signature over the same message")
	}

	if err := (olm.Utility{}).Ed25519Verify(a.PublicKey(), msg, a.Sign(msg)); err != nil {
		t.Fatalf("Ed25519Verify: %v", err)
	}
}

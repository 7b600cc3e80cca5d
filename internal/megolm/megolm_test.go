package megolm_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"olm/internal/megolm"
	"olm/internal/primitives"
)

func TestNewProducesUsableRatchet(t *testing.T) {
	rt, err := megolm.New(rand.Reader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := rt.DeriveMessageKeys(); err != nil {
		t.Fatalf("DeriveMessageKeys: %v", err)
	}
}

func TestExportImportThenAdvanceMatchesDirectAdvance(t *testing.T) {
	seed := bytes.Repeat([]byte{0x01}, 4*32)
	rt1 := ratchetFromSeed(seed)
	if err := rt1.AdvanceTo(10); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	exp := rt1.Export()
	if err := rt1.AdvanceTo(1000); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	keysDirect, err := rt1.DeriveMessageKeys()
	if err != nil {
		t.Fatalf("DeriveMessageKeys: %v", err)
	}

	rt2 := megolm.Import(exp)
	if err := rt2.AdvanceTo(1000); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	keysViaImport, err := rt2.DeriveMessageKeys()
	if err != nil {
		t.Fatalf("DeriveMessageKeys: %v", err)
	}

	if keysDirect != keysViaImport {
		t.Fatalf("advancing directly and via export/import at an earlier index diverged")
	}
}

func ratchetFromSeed(seed []byte) megolm.Ratchet {
	var rt megolm.Ratchet
	for i := range rt.R {
		copy(rt.R[i][:], seed[i*32:(i+1)*32])
	}
	return rt
}

func TestAdvanceToIsIdempotent(t *testing.T) {
	seed := bytes.Repeat([]byte{0x02}, 4*32)
	rt := ratchetFromSeed(seed)
	if err := rt.AdvanceTo(700); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	r1 := rt.R
	if err := rt.AdvanceTo(700); err != nil {
		t.Fatalf("AdvanceTo (repeat): %v", err)
	}
	if rt.R != r1 {
		t.Fatalf("repeated AdvanceTo to the same index changed state")
	}
}

func TestAdvanceToRejectsRegression(t *testing.T) {
	seed := bytes.Repeat([]byte{0x03}, 4*32)
	rt := ratchetFromSeed(seed)
	if err := rt.AdvanceTo(50); err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	if err := rt.AdvanceTo(10); err != megolm.ErrIndexRegression {
		t.Fatalf("AdvanceTo backwards = %v, want ErrIndexRegression", err)
	}
}

func TestMessageRoundTripAndSignature(t *testing.T) {
	pub, priv, err := primitives.Ed25519KeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("Ed25519KeyPair: %v", err)
	}
	enc := megolm.EncodeMessage(42, []byte("hello group"), priv)
	msg, err := megolm.DecodeMessage(enc, pub)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Index != 42 || string(msg.Ciphertext) != "hello group" {
		t.Fatalf("decoded message mismatch: %+v", msg)
	}

	enc[len(enc)-1] ^= 0xFF
	if _, err := megolm.DecodeMessage(enc, pub); err != megolm.ErrBadSignature {
		t.Fatalf("tampered signature = %v, want ErrBadSignature", err)
	}
}

func TestSessionKeyShareRoundTrip(t *testing.T) {
	pub, priv, err := primitives.Ed25519KeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("Ed25519KeyPair: %v", err)
	}
	var r [4][32]byte
	for i := range r {
		r[i][0] = byte(i + 1)
	}
	blob := megolm.EncodeSessionKeyShare(7, r, pub, priv)
	sk, err := megolm.DecodeSessionKey(blob)
	if err != nil {
		t.Fatalf("DecodeSessionKey: %v", err)
	}
	if !sk.Signed {
		t.Fatalf("expected Signed = true")
	}
	if sk.Index != 7 || sk.R != r || sk.SigningPub != pub {
		t.Fatalf("session key mismatch: %+v", sk)
	}
}

func TestSessionKeyImportFormUnsigned(t *testing.T) {
	pub, _, err := primitives.Ed25519KeyPair(rand.Reader)
	if err != nil {
		t.Fatalf("Ed25519KeyPair: %v", err)
	}
	var r [4][32]byte
	blob := megolm.EncodeSessionKeyImport(3, r, pub)
	sk, err := megolm.DecodeSessionKey(blob)
	if err != nil {
		t.Fatalf("DecodeSessionKey: %v", err)
	}
	if sk.Signed {
		t.Fatalf("import form should not be Signed")
	}
}

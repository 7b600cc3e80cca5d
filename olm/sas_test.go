package olm_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"olm/olm"
)

func pairedSAS(t *testing.T) (a, b *olm.SAS) {
	t.Helper()
	var err error
	a, err = olm.NewSAS(rand.Reader)
	if err != nil {
		t.Fatalf("NewSAS: %v", err)
	}
	b, err = olm.NewSAS(rand.Reader)
	if err != nil {
		t.Fatalf("NewSAS: %v", err)
	}
	if err := a.SetTheirKey(b.GetPubkey()); err != nil {
		t.Fatalf("SetTheirKey: %v", err)
	}
	if err := b.SetTheirKey(a.GetPubkey()); err != nil {
		t.Fatalf("SetTheirKey: %v", err)
	}
	return a, b
}

func TestSASGenerateBytesAgreesBothSides(t *testing.T) {
	a, b := pairedSAS(t)
	const info = "MATRIX_KEY_VERIFICATION_SAS|alice|bob"
	bytesA, err := a.GenerateBytes(info, 6)
	if err != nil {
		t.Fatalf("GenerateBytes: %v", err)
	}
	bytesB, err := b.GenerateBytes(info, 6)
	if err != nil {
		t.Fatalf("GenerateBytes: %v", err)
	}
	if !bytes.Equal(bytesA, bytesB) {
		t.Fatalf("both sides of an ECDH must derive the same SAS bytes")
	}
}

func TestSASGenerateBytesBeforeSetTheirKeyFails(t *testing.T) {
	a, err := olm.NewSAS(rand.Reader)
	if err != nil {
		t.Fatalf("NewSAS: %v", err)
	}
	if _, err := a.GenerateBytes("info", 6); err == nil {
		t.Fatalf("expected GenerateBytes before SetTheirKey to fail")
	}
}

func TestSASCalculateMACAgreesBothSides(t *testing.T) {
	a, b := pairedSAS(t)
	const info = "MATRIX_KEY_VERIFICATION_MAC|alice|bob"
	input := []byte("ed25519:alice_device_id")

	macA, err := a.CalculateMAC(input, info)
	if err != nil {
		t.Fatalf("CalculateMAC: %v", err)
	}
	macB, err := b.CalculateMAC(input, info)
	if err != nil {
		t.Fatalf("CalculateMAC: %v", err)
	}
	if macA != macB {
		t.Fatalf("both sides must compute the same MAC over the same input and info")
	}
}

func TestSASCalculateMACLongKDFMatchesCalculateMAC(t *testing.T) {
	a, _ := pairedSAS(t)
	const info = "MATRIX_KEY_VERIFICATION_MAC|alice|bob"
	input := []byte("some auth string input")

	short, err := a.CalculateMAC(input, info)
	if err != nil {
		t.Fatalf("CalculateMAC: %v", err)
	}
	long, err := a.CalculateMACLongKDF(input, info)
	if err != nil {
		t.Fatalf("CalculateMACLongKDF: %v", err)
	}
	if short != long {
		t.Fatalf("CalculateMACLongKDF must match CalculateMAC byte-for-byte (documented HKDF prefix property)")
	}
}

func TestSASCalculateMACFixedBase64UsesPaddedEncoding(t *testing.T) {
	a, _ := pairedSAS(t)
	const info = "MATRIX_KEY_VERIFICATION_MAC|alice|bob"
	input := []byte("x")

	unpadded, err := a.CalculateMAC(input, info)
	if err != nil {
		t.Fatalf("CalculateMAC: %v", err)
	}
	padded, err := a.CalculateMACFixedBase64(input, info)
	if err != nil {
		t.Fatalf("CalculateMACFixedBase64: %v", err)
	}
	if unpadded == padded {
		t.Fatalf("expected the two encodings to differ in padding")
	}
}

func TestSASClearDoesNotPanic(t *testing.T) {
	a, _ := pairedSAS(t)
	a.Clear()
}

package olm_test

import (
	"crypto/rand"
	"testing"

	"olm/olm"
)

func TestGroupSessionRoundTrip(t *testing.T) {
	out, err := olm.NewOutboundGroupSession(rand.Reader)
	if err != nil {
		t.Fatalf("NewOutboundGroupSession: %v", err)
	}
	shareAtZero := out.SessionKey()
	ct, err := out.Encrypt([]byte("hello group"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	in, err := olm.NewInboundGroupSession(shareAtZero)
	if err != nil {
		t.Fatalf("NewInboundGroupSession: %v", err)
	}
	if !in.Verified() {
		t.Fatalf("a session built from a signed share must be verified")
	}
	if out.SessionID() != in.SessionID() {
		t.Fatalf("session IDs diverged")
	}

	pt, idx, err := in.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected message index 0, got %d", idx)
	}
	if string(pt) != "hello group" {
		t.Fatalf("got %q", pt)
	}
}

func TestGroupSessionCannotDecryptBeforeFirstKnownIndex(t *testing.T) {
	out, err := olm.NewOutboundGroupSession(rand.Reader)
	if err != nil {
		t.Fatalf("NewOutboundGroupSession: %v", err)
	}
	ct0, err := out.Encrypt([]byte("index zero"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	// Export the session only after advancing to index 1, so the export
	// cannot see the message at index 0.
	shareAtOne := out.SessionKey()

	in, err := olm.NewInboundGroupSession(shareAtOne)
	if err != nil {
		t.Fatalf("NewInboundGroupSession: %v", err)
	}
	if in.FirstKnownIndex() != 1 {
		t.Fatalf("expected FirstKnownIndex 1, got %d", in.FirstKnownIndex())
	}
	if _, _, err := in.Decrypt(ct0); err == nil {
		t.Fatalf("expected decrypting an earlier-index message to fail")
	}
}

func TestGroupSessionDecryptsOutOfOrderWithinKnownRange(t *testing.T) {
	out, err := olm.NewOutboundGroupSession(rand.Reader)
	if err != nil {
		t.Fatalf("NewOutboundGroupSession: %v", err)
	}
	shareAtZero := out.SessionKey()
	ct0, err := out.Encrypt([]byte("zero"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct1, err := out.Encrypt([]byte("one"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	in, err := olm.NewInboundGroupSession(shareAtZero)
	if err != nil {
		t.Fatalf("NewInboundGroupSession: %v", err)
	}

	// Decrypting index 1 first must not forfeit index 0: both are at or
	// after firstKnownIndex, so arrival order doesn't matter.
	if _, _, err := in.Decrypt(ct1); err != nil {
		t.Fatalf("Decrypt(ct1): %v", err)
	}
	pt0, idx0, err := in.Decrypt(ct0)
	if err != nil {
		t.Fatalf("Decrypt(ct0) after ct1: %v", err)
	}
	if idx0 != 0 || string(pt0) != "zero" {
		t.Fatalf("got %q at index %d", pt0, idx0)
	}
}

func TestImportInboundGroupSessionAcceptsUnsignedExport(t *testing.T) {
	out, err := olm.NewOutboundGroupSession(rand.Reader)
	if err != nil {
		t.Fatalf("NewOutboundGroupSession: %v", err)
	}
	shareAtZero := out.SessionKey()
	ct, err := out.Encrypt([]byte("migrated"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	in, err := olm.NewInboundGroupSession(shareAtZero)
	if err != nil {
		t.Fatalf("NewInboundGroupSession: %v", err)
	}
	exported := in.Export()

	migrated, err := olm.ImportInboundGroupSession(exported)
	if err != nil {
		t.Fatalf("ImportInboundGroupSession: %v", err)
	}
	if migrated.Verified() {
		t.Fatalf("a session rebuilt from an unsigned export must not be verified")
	}
	pt, _, err := migrated.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt after import: %v", err)
	}
	if string(pt) != "migrated" {
		t.Fatalf("got %q", pt)
	}
}

func TestNewInboundGroupSessionRejectsUnsignedShare(t *testing.T) {
	out, err := olm.NewOutboundGroupSession(rand.Reader)
	if err != nil {
		t.Fatalf("NewOutboundGroupSession: %v", err)
	}
	in, err := olm.NewInboundGroupSession(out.SessionKey())
	if err != nil {
		t.Fatalf("NewInboundGroupSession: %v", err)
	}
	unsigned := in.Export()
	if _, err := olm.NewInboundGroupSession(unsigned); err == nil {
		t.Fatalf("expected NewInboundGroupSession to reject an unsigned export")
	}
}

func TestGroupSessionTamperedMessageFailsSignatureCheck(t *testing.T) {
	out, err := olm.NewOutboundGroupSession(rand.Reader)
	if err != nil {
		t.Fatalf("NewOutboundGroupSession: %v", err)
	}
	ct, err := out.Encrypt([]byte("tamper me"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	in, err := olm.NewInboundGroupSession(out.SessionKey())
	if err != nil {
		t.Fatalf("NewInboundGroupSession: %v", err)
	}
	tampered := []byte(ct)
	tampered[len(tampered)-1] ^= 0x01
	if _, _, err := in.Decrypt(string(tampered)); err == nil {
		t.Fatalf("expected a tampered group message to fail verification")
	}
}

func TestGroupSessionPickleRoundTrip(t *testing.T) {
	out, err := olm.NewOutboundGroupSession(rand.Reader)
	if err != nil {
		t.Fatalf("NewOutboundGroupSession: %v", err)
	}
	key := []byte("0123456789abcdef0123456789abcdef")
	blob, err := out.Pickle(key)
	if err != nil {
		t.Fatalf("Pickle: %v", err)
	}
	restored, err := olm.OutboundGroupSessionFromPickle(key, blob)
	if err != nil {
		t.Fatalf("OutboundGroupSessionFromPickle: %v", err)
	}
	if restored.SessionID() != out.SessionID() {
		t.Fatalf("session ID changed across pickle round trip")
	}
	if restored.MessageIndex() != out.MessageIndex() {
		t.Fatalf("message index changed across pickle round trip")
	}
}

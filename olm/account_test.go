package olm_test

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"olm/olm"
)

func TestNewAccountGeneratesDistinctKeys(t *testing.T) {
	a, err := olm.NewAccount(rand.Reader)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	b, err := olm.NewAccount(rand.Reader)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if a.IdentityKeys() == b.IdentityKeys() {
		t.Fatalf("two accounts produced identical identity keys")
	}
}

func TestGenerateOneTimeKeysRespectsCeiling(t *testing.T) {
	a, err := olm.NewAccount(rand.Reader)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if err := a.GenerateOneTimeKeys(olm.MaxOneTimeKeys+10, rand.Reader); err != nil {
		t.Fatalf("GenerateOneTimeKeys: %v", err)
	}
	var bundle struct {
		Curve25519 map[string]string `json:"curve25519"`
	}
	if err := json.Unmarshal([]byte(a.OneTimeKeys()), &bundle); err != nil {
		t.Fatalf("decoding one-time keys: %v", err)
	}
	if len(bundle.Curve25519) != olm.MaxOneTimeKeys {
		t.Fatalf("expected pool capped at %d keys, got %d", olm.MaxOneTimeKeys, len(bundle.Curve25519))
	}
}

func TestGenerateFallbackKeyRotatesSlot(t *testing.T) {
	a, err := olm.NewAccount(rand.Reader)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if err := a.GenerateFallbackKey(rand.Reader); err != nil {
		t.Fatalf("GenerateFallbackKey: %v", err)
	}
	first := a.FallbackKey()
	if first == "{}" {
		t.Fatalf("expected a fallback key after generation")
	}
	if err := a.GenerateFallbackKey(rand.Reader); err != nil {
		t.Fatalf("GenerateFallbackKey: %v", err)
	}
	second := a.FallbackKey()
	if second == first {
		t.Fatalf("rotating the fallback key should change the published value")
	}
}

func TestUnpublishedFallbackKeyClearsAfterMarking(t *testing.T) {
	a, err := olm.NewAccount(rand.Reader)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if err := a.GenerateFallbackKey(rand.Reader); err != nil {
		t.Fatalf("GenerateFallbackKey: %v", err)
	}
	if a.UnpublishedFallbackKey() == "{}" {
		t.Fatalf("fallback key should be unpublished right after generation")
	}
	a.MarkKeysAsPublished()
	if a.UnpublishedFallbackKey() != "{}" {
		t.Fatalf("fallback key should no longer report as unpublished")
	}
}

func TestRemoveOneTimeKeysWithoutConsumedOTKFails(t *testing.T) {
	alice, err := olm.NewAccount(rand.Reader)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	bob, err := olm.NewAccount(rand.Reader)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	if err := bob.GenerateOneTimeKeys(1, rand.Reader); err != nil {
		t.Fatalf("GenerateOneTimeKeys: %v", err)
	}
	bobIdentity, bobOTK := identityAndOneTimeKey(t, bob)

	// The outbound side of a session never records a consumed one-time
	// key, since it is Bob (the inbound side) who spends one.
	sessionA, err := olm.CreateOutbound(alice, bobIdentity, bobOTK, rand.Reader)
	if err != nil {
		t.Fatalf("CreateOutbound: %v", err)
	}
	if err := bob.RemoveOneTimeKeys(sessionA); err == nil {
		t.Fatalf("expected an error removing keys for an outbound session")
	}
}

func TestAccountClearIsIdempotent(t *testing.T) {
	a, err := olm.NewAccount(rand.Reader)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	a.Clear()
	a.Clear()
}

package olm_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"olm/olm"
)

// identityAndOneTimeKey decodes acct's published identity and one
// one-time key the way a peer would read them off a key server, rather
// than reaching into the account's internals.
func identityAndOneTimeKey(t *testing.T, acct *olm.Account) (identity, oneTime [32]byte) {
	t.Helper()
	var idBundle struct {
		Curve25519 string `json:"curve25519"`
	}
	if err := json.Unmarshal([]byte(acct.IdentityKeys()), &idBundle); err != nil {
		t.Fatalf("decoding identity keys: %v", err)
	}
	identity = decodeKey(t, idBundle.Curve25519)

	var otkBundle struct {
		Curve25519 map[string]string `json:"curve25519"`
	}
	if err := json.Unmarshal([]byte(acct.OneTimeKeys()), &otkBundle); err != nil {
		t.Fatalf("decoding one-time keys: %v", err)
	}
	for _, b64 := range otkBundle.Curve25519 {
		oneTime = decodeKey(t, b64)
		return identity, oneTime
	}
	t.Fatalf("account has no published one-time keys")
	return identity, oneTime
}

var rawStdB64 = base64.StdEncoding.WithPadding(base64.NoPadding)

func decodeKey(t *testing.T, b64Str string) [32]byte {
	t.Helper()
	raw, err := rawStdB64.DecodeString(b64Str)
	if err != nil {
		t.Fatalf("decoding base64 key: %v", err)
	}
	var out [32]byte
	copy(out[:], raw)
	return out
}

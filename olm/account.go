package olm

import (
	"crypto/subtle"
	"fmt"
	"io"
	"strconv"
	"strings"

	"olm/internal/primitives"
)

// MaxOneTimeKeys is the fixed ceiling on how many one-time key pairs an
// Account holds at once. Generating more evicts the oldest unpublished
// key first.
const MaxOneTimeKeys = 50

type oneTimeKey struct {
	id        uint32
	priv      [32]byte
	pub       [32]byte
	published bool
}

type fallbackKey struct {
	priv      [32]byte
	pub       [32]byte
	published bool
}

// Account holds a party's long-lived identity and its pool of one-time
// and fallback Curve25519 keys.
type Account struct {
	edPub   [32]byte
	edPriv  [64]byte
	xPub    [32]byte
	xPriv   [32]byte
	nextOTK uint32
	otks    []oneTimeKey
	current *fallbackKey
	prev    *fallbackKey
}

// NewAccount generates a fresh identity: an Ed25519 signing key pair and
// an independently-generated Curve25519 key pair.
func NewAccount(rnd io.Reader) (*Account, error) {
	edPub, edPriv, err := primitives.Ed25519KeyPair(rnd)
	if err != nil {
		return nil, newErr(ErrNotEnoughRandom, err)
	}
	xPriv, xPub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		return nil, newErr(ErrNotEnoughRandom, err)
	}
	return &Account{edPub: edPub, edPriv: edPriv, xPub: xPub, xPriv: xPriv}, nil
}

// Sign returns an Ed25519 signature over msg by the account's identity
// signing key.
func (a *Account) Sign(msg []byte) []byte {
	return primitives.Ed25519Sign(a.edPriv, msg)
}

// IdentityKeys returns `{"curve25519":"<b64>","ed25519":"<b64>"}`.
func (a *Account) IdentityKeys() string {
	return fmt.Sprintf(`{"curve25519":"%s","ed25519":"%s"}`, encodeB64(a.xPub[:]), encodeB64(a.edPub[:]))
}

// GenerateOneTimeKeys creates n fresh one-time Curve25519 key pairs,
// marked unpublished. If the pool would exceed MaxOneTimeKeys, the
// oldest unpublished keys are evicted to make room.
func (a *Account) GenerateOneTimeKeys(n int, rnd io.Reader) error {
	for i := 0; i < n; i++ {
		priv, pub, err := primitives.X25519KeyPair(rnd)
		if err != nil {
			return newErr(ErrNotEnoughRandom, err)
		}
		id := a.nextOTK
		a.nextOTK++
		a.otks = append(a.otks, oneTimeKey{id: id, priv: priv, pub: pub})
	}
	for len(a.otks) > MaxOneTimeKeys {
		idx := -1
		for i, k := range a.otks {
			if !k.published {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		primitives.Zeroize(a.otks[idx].priv[:])
		a.otks = append(a.otks[:idx], a.otks[idx+1:]...)
	}
	return nil
}

// OneTimeKeys returns `{"curve25519":{"<id>":"<b64>",...}}` for every
// currently-held one-time key, published or not.
func (a *Account) OneTimeKeys() string {
	var b strings.Builder
	b.WriteString(`{"curve25519":{`)
	for i, k := range a.otks {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `"%s":"%s"`, strconv.FormatUint(uint64(k.id), 10), encodeB64(k.pub[:]))
	}
	b.WriteString("}}")
	return b.String()
}

// MarkKeysAsPublished flips every unpublished one-time key and the
// current fallback key to published.
func (a *Account) MarkKeysAsPublished() {
	for i := range a.otks {
		a.otks[i].published = true
	}
	if a.current != nil {
		a.current.published = true
	}
}

// GenerateFallbackKey rotates the fallback slot: the current fallback
// becomes the previous one (kept so late messages encrypted against it
// still decrypt), and a fresh key becomes current.
func (a *Account) GenerateFallbackKey(rnd io.Reader) error {
	priv, pub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		return newErr(ErrNotEnoughRandom, err)
	}
	if a.prev != nil {
		primitives.Zeroize(a.prev.priv[:])
	}
	a.prev = a.current
	a.current = &fallbackKey{priv: priv, pub: pub}
	return nil
}

// FallbackKey returns `{"curve25519":"<b64>"}` for the current fallback
// key, or "{}" if none has been generated yet.
func (a *Account) FallbackKey() string {
	if a.current == nil {
		return "{}"
	}
	return fmt.Sprintf(`{"curve25519":"%s"}`, encodeB64(a.current.pub[:]))
}

// UnpublishedFallbackKey returns the same shape as FallbackKey, but only
// if the current fallback key has not yet been marked published.
func (a *Account) UnpublishedFallbackKey() string {
	if a.current == nil || a.current.published {
		return "{}"
	}
	return a.FallbackKey()
}

// ForgetOldFallbackKey erases the previous fallback slot, after which
// messages encrypted against it can no longer be decrypted.
func (a *Account) ForgetOldFallbackKey() {
	if a.prev != nil {
		primitives.Zeroize(a.prev.priv[:])
		a.prev = nil
	}
}

// MaxNumberOfOneTimeKeys returns the fixed ceiling on the one-time key
// pool.
func (a *Account) MaxNumberOfOneTimeKeys() int { return MaxOneTimeKeys }

// lookupOneTimeSecret finds the private half of a one-time or fallback
// key matching pub, scanning every held key (not indexing by id) so the
// search touches every entry regardless of where the match lands.
func (a *Account) lookupOneTimeSecret(pub [32]byte) (priv [32]byte, isFallback bool, found bool) {
	var foundInt int
	for i := range a.otks {
		eq := subtle.ConstantTimeCompare(a.otks[i].pub[:], pub[:])
		subtle.ConstantTimeCopy(eq, priv[:], a.otks[i].priv[:])
		foundInt |= eq
	}
	if found = foundInt == 1; found {
		return priv, false, true
	}
	if a.current != nil && primitives.ConstantTimeEqual(a.current.pub[:], pub[:]) {
		return a.current.priv, true, true
	}
	if a.prev != nil && primitives.ConstantTimeEqual(a.prev.pub[:], pub[:]) {
		return a.prev.priv, true, true
	}
	return priv, false, false
}

// removeOneTimeKey deletes the one-time key with public value pub. It
// is a no-op for fallback keys, which are never consumed.
func (a *Account) removeOneTimeKey(pub [32]byte) {
	for i, k := range a.otks {
		if primitives.ConstantTimeEqual(k.pub[:], pub[:]) {
			primitives.Zeroize(a.otks[i].priv[:])
			a.otks = append(a.otks[:i], a.otks[i+1:]...)
			return
		}
	}
}

// RemoveOneTimeKeys deletes the one-time key that was used to establish
// sess, permanently. It returns ErrBadMessageKeyID only when sess did not
// consume a one-time key; a repeated call for the same session finds
// nothing left to remove and returns nil.
func (a *Account) RemoveOneTimeKeys(sess *Session) error {
	if sess.consumedOTK == nil {
		return newErr(ErrBadMessageKeyID, nil)
	}
	a.removeOneTimeKey(*sess.consumedOTK)
	return nil
}

// Clear zeroizes every secret the account holds.
func (a *Account) Clear() {
	primitives.Zeroize(a.edPriv[:])
	primitives.Zeroize(a.xPriv[:])
	for i := range a.otks {
		primitives.Zeroize(a.otks[i].priv[:])
	}
	a.otks = nil
	if a.current != nil {
		primitives.Zeroize(a.current.priv[:])
		a.current = nil
	}
	if a.prev != nil {
		primitives.Zeroize(a.prev.priv[:])
		a.prev = nil
	}
}

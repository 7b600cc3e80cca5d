package olm

import (
	"io"

	"olm/internal/megolm"
	"olm/internal/primitives"
)

// OutboundGroupSession is the sending side of a Megolm group ratchet: one
// signing identity and a forward-only hash ratchet shared by every
// member who needs to decrypt messages from this point onward.
type OutboundGroupSession struct {
	ratchet     megolm.Ratchet
	signingPub  [32]byte
	signingPriv [64]byte
}

// NewOutboundGroupSession starts a fresh group session at message index 0.
func NewOutboundGroupSession(rnd io.Reader) (*OutboundGroupSession, error) {
	rt, err := megolm.New(rnd)
	if err != nil {
		return nil, newErr(ErrNotEnoughRandom, err)
	}
	pub, priv, err := primitives.Ed25519KeyPair(rnd)
	if err != nil {
		return nil, newErr(ErrNotEnoughRandom, err)
	}
	return &OutboundGroupSession{ratchet: rt, signingPub: pub, signingPriv: priv}, nil
}

// SessionID identifies the session by its signing public key, the value
// every member verifies incoming messages against.
func (s *OutboundGroupSession) SessionID() string { return encodeB64(s.signingPub[:]) }

// MessageIndex returns the index the next call to Encrypt will use.
func (s *OutboundGroupSession) MessageIndex() uint32 { return s.ratchet.Counter }

// SessionKey exports the ratchet state at the session's current index,
// signed by the session's own signing key, for distributing to new
// members. Anyone holding it can decrypt this message onward, never
// earlier ones, since the ratchet that produced earlier keys cannot be
// recovered from a later state.
func (s *OutboundGroupSession) SessionKey() string {
	blob := megolm.EncodeSessionKeyShare(s.ratchet.Counter, s.ratchet.R, s.signingPub, s.signingPriv)
	return encodeB64(blob)
}

// Encrypt seals plaintext at the current message index, signs the result,
// and advances the ratchet so the key just used can never be reproduced.
func (s *OutboundGroupSession) Encrypt(plaintext []byte) (string, error) {
	mk, err := s.ratchet.DeriveMessageKeys()
	if err != nil {
		return "", err
	}
	defer primitives.Zeroize(mk.AESKey[:])

	ct, err := primitives.AES256CBCEncrypt(mk.AESKey, mk.IV, plaintext)
	if err != nil {
		return "", err
	}
	msg := megolm.EncodeMessage(s.ratchet.Counter, ct, s.signingPriv)

	if err := s.ratchet.AdvanceTo(s.ratchet.Counter + 1); err != nil {
		return "", err
	}
	return encodeB64(msg), nil
}

// Clear zeroizes every secret the session holds.
func (s *OutboundGroupSession) Clear() {
	for i := range s.ratchet.R {
		primitives.Zeroize(s.ratchet.R[i][:])
	}
	primitives.Zeroize(s.signingPriv[:])
}

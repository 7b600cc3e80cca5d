package olm

import (
	"olm/internal/megolm"
	"olm/internal/primitives"
)

// InboundGroupSession is the receiving side of a Megolm group ratchet. It
// can decrypt any message at or after firstKnownIndex, in any arrival
// order; ratchet holds the immutable state captured at firstKnownIndex
// and Decrypt derives a forward-advanced clone per message rather than
// mutating it, so an earlier message is never burned by a later one
// arriving first. latestIndex tracks the furthest index successfully
// decrypted so far, which is all Export ever needs to give away.
type InboundGroupSession struct {
	ratchet         megolm.Ratchet
	firstKnownIndex uint32
	latestIndex     uint32
	signingPub      [32]byte
	verified        bool
}

func newInboundFromSessionKey(sessionKeyB64 string, requireSigned bool) (*InboundGroupSession, error) {
	raw, err := decodeB64(sessionKeyB64)
	if err != nil {
		return nil, err
	}
	sk, err := megolm.DecodeSessionKey(raw)
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if requireSigned && !sk.Signed {
		return nil, newErr(ErrBadSignature, nil)
	}
	return &InboundGroupSession{
		ratchet:         megolm.Import(megolm.Export{Index: sk.Index, R: sk.R}),
		firstKnownIndex: sk.Index,
		latestIndex:     sk.Index,
		signingPub:      sk.SigningPub,
		verified:        sk.Signed,
	}, nil
}

// NewInboundGroupSession creates a session from the signed distribution
// form of a session key, as freshly shared by the sender.
func NewInboundGroupSession(sessionKeyB64 string) (*InboundGroupSession, error) {
	return newInboundFromSessionKey(sessionKeyB64, true)
}

// ImportInboundGroupSession creates a session from either form of a
// session key, including the unsigned re-share form produced by
// InboundGroupSession.Export — used when a client migrates a session
// between its own devices rather than receiving a fresh share.
func ImportInboundGroupSession(sessionKeyB64 string) (*InboundGroupSession, error) {
	return newInboundFromSessionKey(sessionKeyB64, false)
}

// SessionID identifies the session by its signing public key.
func (s *InboundGroupSession) SessionID() string { return encodeB64(s.signingPub[:]) }

// FirstKnownIndex is the earliest message index this session can ever
// decrypt.
func (s *InboundGroupSession) FirstKnownIndex() uint32 { return s.firstKnownIndex }

// Verified reports whether the session was established from a signed
// share rather than an unsigned re-export; a session built by
// ImportInboundGroupSession from an unsigned blob is never verified, even
// after successfully decrypting messages.
func (s *InboundGroupSession) Verified() bool { return s.verified }

// Export re-exports the session's state as of the furthest index
// successfully decrypted so far, unsigned, for moving it to another of
// the holder's own devices. The export covers that index onward only.
func (s *InboundGroupSession) Export() string {
	clone := s.ratchet
	// latestIndex is always >= firstKnownIndex, which is clone's counter
	// before advancing, so this can never regress.
	_ = clone.AdvanceTo(s.latestIndex)
	return encodeB64(megolm.EncodeSessionKeyImport(clone.Counter, clone.R, s.signingPub))
}

// Decrypt verifies and opens a group message, returning its plaintext
// and message index. Any index at or after firstKnownIndex decrypts
// regardless of the order messages arrive in: the keys are derived from
// a clone of the immutable base ratchet advanced to that message's
// index, never from ratchet itself.
func (s *InboundGroupSession) Decrypt(messageB64 string) (plaintext []byte, messageIndex uint32, err error) {
	raw, err := decodeB64(messageB64)
	if err != nil {
		return nil, 0, err
	}
	msg, err := megolm.DecodeMessage(raw, s.signingPub)
	if err != nil {
		switch err {
		case megolm.ErrBadSignature:
			return nil, 0, newErr(ErrBadSignature, err)
		default:
			return nil, 0, newErr(ErrBadMessageFormat, err)
		}
	}

	if msg.Index < s.firstKnownIndex {
		return nil, 0, newErr(ErrUnknownMessageIndex, nil)
	}

	clone := s.ratchet
	if err := clone.AdvanceTo(msg.Index); err != nil {
		return nil, 0, err
	}

	mk, err := clone.DeriveMessageKeys()
	if err != nil {
		return nil, 0, err
	}
	defer primitives.Zeroize(mk.AESKey[:])

	pt, decErr := primitives.AES256CBCDecrypt(mk.AESKey, mk.IV, msg.Ciphertext)
	if decErr != nil {
		return nil, 0, newErr(ErrBadMessageMAC, decErr)
	}
	if msg.Index > s.latestIndex {
		s.latestIndex = msg.Index
	}
	return pt, msg.Index, nil
}

// Clear zeroizes every secret the session holds.
func (s *InboundGroupSession) Clear() {
	for i := range s.ratchet.R {
		primitives.Zeroize(s.ratchet.R[i][:])
	}
}

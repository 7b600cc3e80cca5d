package olm

import (
	"crypto/sha256"
	"fmt"
	"io"

	"olm/internal/primitives"
	"olm/internal/ratchet"
	"olm/internal/wireformat"
)

// maxChainAdvance bounds how far a single incoming message may jump a
// receiving chain's counter before skipped keys are materialized for
// every index in between. It is a policy choice audited by the caller,
// not a protocol constant; raising it raises the cost of a hostile peer
// sending a message with a huge counter.
const maxChainAdvance = ratchet.MaxSkippedMessageKeys

type sendChain struct {
	priv, pub [32]byte
	ck        [32]byte
	index     uint32
}

type recvChain struct {
	remotePub [32]byte
	ck        [32]byte
	index     uint32
}

// Session is a two-party Double Ratchet session.
type Session struct {
	received bool

	// sendSeeded reports whether send holds a real ratchet key pair yet.
	// CreateOutbound seeds it immediately; a session built by
	// CreateInbound/CreateInboundFrom has only a receiving chain until
	// it needs to reply, at which point Encrypt performs a DH ratchet
	// step off the most recently seen remote ratchet key to seed one.
	sendSeeded bool

	// Set at creation by whichever side played Alice; retained for the
	// life of the session (beyond what the data model calls for) so
	// MatchesInbound keeps working once the handshake has completed.
	aliceIdentityKey [32]byte
	aliceBaseKey     [32]byte
	peerOneTimeKey   [32]byte // only meaningful while !received

	consumedOTK *[32]byte // Bob-side: the one-time key this session consumed

	rootKey [32]byte
	send    sendChain
	recv    []recvChain
	skipped *ratchet.SkippedKeyCache
}

// maxRetainedRecvChains bounds how many superseded receiver chains stay
// around to catch messages that were in flight across a DH ratchet step.
const maxRetainedRecvChains = 2

// CreateOutbound starts a new session as the initiator ("Alice"), given
// the peer's published identity key and one one-time (or fallback) key.
func CreateOutbound(acct *Account, peerIdentityKey, peerOneTimeKey [32]byte, rnd io.Reader) (*Session, error) {
	ePriv, ePub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		return nil, newErr(ErrNotEnoughRandom, err)
	}
	sPriv, sPub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		return nil, newErr(ErrNotEnoughRandom, err)
	}

	d1, err := primitives.X25519(acct.xPriv, peerOneTimeKey)
	if err != nil {
		return nil, err
	}
	d2, err := primitives.X25519(ePriv, peerIdentityKey)
	if err != nil {
		return nil, err
	}
	d3, err := primitives.X25519(ePriv, peerOneTimeKey)
	if err != nil {
		return nil, err
	}
	dhConcat := append(append(append([]byte{}, d1[:]...), d2[:]...), d3[:]...)
	rootKey, sendCK, err := ratchet.DeriveX3DHRoot(dhConcat)
	primitives.Zeroize(dhConcat)
	if err != nil {
		return nil, err
	}

	return &Session{
		aliceIdentityKey: acct.xPub,
		aliceBaseKey:     ePub,
		peerOneTimeKey:   peerOneTimeKey,
		rootKey:          rootKey,
		send:             sendChain{priv: sPriv, pub: sPub, ck: sendCK},
		sendSeeded:       true,
		skipped:          ratchet.NewSkippedKeyCache(ratchet.MaxSkippedMessageKeys),
	}, nil
}

// CreateInbound extracts the sender's identity key from the pre-key
// message itself and delegates to CreateInboundFrom.
func CreateInbound(acct *Account, preKeyMessageB64 string) (*Session, error) {
	raw, err := decodeB64(preKeyMessageB64)
	if err != nil {
		return nil, err
	}
	pk, err := wireformat.DecodePreKey(raw)
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if len(pk.IdentityKey) != 32 {
		return nil, newErr(ErrBadMessageFormat, nil)
	}
	var senderIdentityKey [32]byte
	copy(senderIdentityKey[:], pk.IdentityKey)
	return createInboundFromParsed(acct, senderIdentityKey, pk)
}

// CreateInboundFrom is like CreateInbound but the sender's identity key
// is supplied (and checked against the message) rather than trusted
// from the wire alone.
func CreateInboundFrom(acct *Account, senderIdentityKey [32]byte, preKeyMessageB64 string) (*Session, error) {
	raw, err := decodeB64(preKeyMessageB64)
	if err != nil {
		return nil, err
	}
	pk, err := wireformat.DecodePreKey(raw)
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if len(pk.IdentityKey) != 32 || !primitives.ConstantTimeEqual(pk.IdentityKey, senderIdentityKey[:]) {
		return nil, newErr(ErrBadMessageFormat, nil)
	}
	return createInboundFromParsed(acct, senderIdentityKey, pk)
}

func createInboundFromParsed(acct *Account, senderIdentityKey [32]byte, pk wireformat.PreKeyMessage) (*Session, error) {
	if len(pk.BaseKey) != 32 {
		return nil, newErr(ErrBadMessageFormat, nil)
	}
	var otPub [32]byte
	copy(otPub[:], pk.OneTimeKey)
	var baseKey [32]byte
	copy(baseKey[:], pk.BaseKey)

	otPriv, isFallback, found := acct.lookupOneTimeSecret(otPub)
	if !found {
		return nil, newErr(ErrBadMessageKeyID, nil)
	}

	d1, err := primitives.X25519(otPriv, senderIdentityKey)
	if err != nil {
		return nil, err
	}
	d2, err := primitives.X25519(acct.xPriv, baseKey)
	if err != nil {
		return nil, err
	}
	d3, err := primitives.X25519(otPriv, baseKey)
	if err != nil {
		return nil, err
	}
	dhConcat := append(append(append([]byte{}, d1[:]...), d2[:]...), d3[:]...)
	rootKey, recvCK, err := ratchet.DeriveX3DHRoot(dhConcat)
	primitives.Zeroize(dhConcat)
	if err != nil {
		return nil, err
	}

	if len(pk.Message) < wireformat.MACSize+1 {
		return nil, newErr(ErrInputBufferTooSmall, nil)
	}
	inner, err := wireformat.DecodeNormal(pk.Message[:len(pk.Message)-wireformat.MACSize])
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if len(inner.RatchetKey) != 32 {
		return nil, newErr(ErrBadMessageFormat, nil)
	}
	var remotePub [32]byte
	copy(remotePub[:], inner.RatchetKey)

	sess := &Session{
		aliceIdentityKey: senderIdentityKey,
		aliceBaseKey:     baseKey,
		peerOneTimeKey:   otPub,
		rootKey:          rootKey,
		recv:             []recvChain{{remotePub: remotePub, ck: recvCK, index: 0}},
		skipped:          ratchet.NewSkippedKeyCache(ratchet.MaxSkippedMessageKeys),
	}
	if !isFallback {
		sess.consumedOTK = &otPub
	}
	// Establishing the session only runs the handshake DHs; the caller
	// still drives the same pre-key message through Decrypt to obtain its
	// plaintext and flip received to true, same as any later message.
	return sess, nil
}

// SessionID returns a stable identifier derived from the public material
// exchanged during the handshake, identical on both ends of the session.
func (s *Session) SessionID() string {
	h := sha256.Sum256(append(append([]byte{}, s.aliceBaseKey[:]...), s.aliceIdentityKey[:]...))
	return encodeB64(h[:])
}

// HasReceivedMessage reports whether a normal message has ever been
// successfully decrypted on this session.
func (s *Session) HasReceivedMessage() bool { return s.received }

// MatchesInbound reports whether preKeyMessageB64 was the message that
// established this session (used to recognize and ignore a re-sent
// pre-key message rather than starting a second session).
func (s *Session) MatchesInbound(preKeyMessageB64 string) bool {
	raw, err := decodeB64(preKeyMessageB64)
	if err != nil {
		return false
	}
	pk, err := wireformat.DecodePreKey(raw)
	if err != nil || len(pk.BaseKey) != 32 || len(pk.IdentityKey) != 32 {
		return false
	}
	return primitives.ConstantTimeEqual(pk.BaseKey, s.aliceBaseKey[:]) &&
		primitives.ConstantTimeEqual(pk.IdentityKey, s.aliceIdentityKey[:])
}

// MatchesInboundFrom is MatchesInbound with an explicit expected sender
// identity key, guarding against a peer replaying someone else's message.
func (s *Session) MatchesInboundFrom(identityKeyB64 string, preKeyMessageB64 string) bool {
	idBytes, err := decodeB64(identityKeyB64)
	if err != nil || len(idBytes) != 32 {
		return false
	}
	if !primitives.ConstantTimeEqual(idBytes, s.aliceIdentityKey[:]) {
		return false
	}
	return s.MatchesInbound(preKeyMessageB64)
}

// Encrypt seals plaintext for the current state of the sending chain,
// returning the libolm-style message type (0 = pre-key, 1 = normal) and
// the base64 ciphertext. rnd supplies randomness for the ratchet key
// pair generated the first time a session that received before it ever
// sent needs to reply.
func (s *Session) Encrypt(plaintext []byte, rnd io.Reader) (msgType int, ciphertext string, err error) {
	if !s.sendSeeded {
		if err := s.seedSendChain(rnd); err != nil {
			return 0, "", err
		}
	}
	full, err := s.encryptNormal(plaintext)
	if err != nil {
		return 0, "", err
	}
	if !s.received {
		pk := wireformat.PreKeyMessage{
			OneTimeKey:  s.peerOneTimeKey[:],
			BaseKey:     s.aliceBaseKey[:],
			IdentityKey: s.aliceIdentityKey[:],
			Message:     full,
		}
		return 0, encodeB64(wireformat.EncodePreKey(pk)), nil
	}
	return 1, encodeB64(full), nil
}

// seedSendChain performs the DH ratchet step a receiver-only session
// needs before its first Encrypt: a fresh ratchet key pair is generated
// and combined with the most recently seen remote ratchet key to derive
// a new root key and sending chain, the same derivation advanceDHRatchet
// uses for its sending half.
func (s *Session) seedSendChain(rnd io.Reader) error {
	if len(s.recv) == 0 {
		return newErr(ErrBadMessageFormat, fmt.Errorf("no established receiving chain to ratchet from"))
	}
	remotePub := s.recv[len(s.recv)-1].remotePub

	newPriv, newPub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		return newErr(ErrNotEnoughRandom, err)
	}
	secret, err := primitives.X25519(newPriv, remotePub)
	if err != nil {
		return err
	}
	newRootKey, sendCK, err := ratchet.DeriveDHRatchet(s.rootKey, secret)
	primitives.Zeroize(secret[:])
	if err != nil {
		return err
	}

	s.rootKey = newRootKey
	s.send = sendChain{priv: newPriv, pub: newPub, ck: sendCK}
	s.sendSeeded = true
	return nil
}

func (s *Session) encryptNormal(plaintext []byte) ([]byte, error) {
	nextCK, mk := ratchet.StepChain(s.send.ck)
	mks, err := ratchet.DeriveMessageKeys(mk)
	primitives.Zeroize(mk[:])
	if err != nil {
		return nil, err
	}
	defer primitives.Zeroize(mks.AESKey[:])
	defer primitives.Zeroize(mks.MACKey[:])

	ct, err := primitives.AES256CBCEncrypt(mks.AESKey, mks.IV, plaintext)
	if err != nil {
		return nil, err
	}

	macInput := wireformat.EncodeNormal(wireformat.NormalMessage{
		RatchetKey: s.send.pub[:],
		Counter:    s.send.index,
		Ciphertext: ct,
	})
	tag := primitives.HMACSHA256(mks.MACKey[:], macInput)
	full := append(macInput, tag[:wireformat.MACSize]...)

	s.send.ck = nextCK
	s.send.index++
	return full, nil
}

// Decrypt opens a message of the given libolm-style type, driving a DH
// ratchet advance or skipped-key recovery as needed. rnd supplies fresh
// randomness for the new sending ratchet key generated by a DH advance.
func (s *Session) Decrypt(msgType int, ciphertext string, rnd io.Reader) ([]byte, error) {
	raw, err := decodeB64(ciphertext)
	if err != nil {
		return nil, err
	}
	var inner []byte
	switch msgType {
	case 0:
		pk, err := wireformat.DecodePreKey(raw)
		if err != nil {
			return nil, newErr(ErrBadMessageFormat, err)
		}
		inner = pk.Message
	case 1:
		inner = raw
	default:
		return nil, newErr(ErrBadMessageFormat, fmt.Errorf("unknown message type %d", msgType))
	}
	pt, err := s.decryptInner(inner, rnd)
	if err != nil {
		return nil, err
	}
	s.received = true
	return pt, nil
}

func (s *Session) decryptInner(inner []byte, rnd io.Reader) ([]byte, error) {
	if len(inner) < wireformat.MACSize+1 {
		return nil, newErr(ErrInputBufferTooSmall, nil)
	}
	macCovered := inner[:len(inner)-wireformat.MACSize]
	gotMAC := inner[len(inner)-wireformat.MACSize:]

	m, err := wireformat.DecodeNormal(macCovered)
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if len(m.RatchetKey) != 32 {
		return nil, newErr(ErrBadMessageFormat, nil)
	}
	var remotePub [32]byte
	copy(remotePub[:], m.RatchetKey)

	if chainIdx := s.findRecvChain(remotePub); chainIdx != -1 {
		return s.decryptWithChain(chainIdx, m.Counter, macCovered, gotMAC, m.Ciphertext)
	}
	return s.advanceDHRatchet(remotePub, rnd, m.Counter, macCovered, gotMAC, m.Ciphertext)
}

func (s *Session) findRecvChain(remotePub [32]byte) int {
	for i, c := range s.recv {
		if c.remotePub == remotePub {
			return i
		}
	}
	return -1
}

// advanceDHRatchet performs the sender-and-receiver DH ratchet step
// triggered by seeing a new remote ratchet key: a fresh receiving chain
// is derived from the old root key and the old sending ratchet key, then
// a fresh sending chain is derived from a newly generated ratchet key
// pair. The new receiving chain's message key for counter is derived and
// the message's MAC checked before any of this is committed to the
// session, so a bad-MAC message bearing an unrecognized ratchet key
// cannot destroy the sending chain or re-root the session. The prior
// receiving chain is kept, bounded, to catch messages that were in
// flight before the peer's own ratchet advance was seen.
func (s *Session) advanceDHRatchet(remotePub [32]byte, rnd io.Reader, counter uint32, macCovered, gotMAC, ciphertext []byte) ([]byte, error) {
	if counter > maxChainAdvance {
		return nil, newErr(ErrBadMessageFormat, fmt.Errorf("chain advance of %d exceeds limit", counter))
	}
	secret, err := primitives.X25519(s.send.priv, remotePub)
	if err != nil {
		return nil, err
	}
	rk1, recvCK, err := ratchet.DeriveDHRatchet(s.rootKey, secret)
	primitives.Zeroize(secret[:])
	if err != nil {
		return nil, err
	}

	newPriv, newPub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		primitives.Zeroize(recvCK[:])
		return nil, newErr(ErrNotEnoughRandom, err)
	}
	secret2, err := primitives.X25519(newPriv, remotePub)
	if err != nil {
		primitives.Zeroize(recvCK[:])
		return nil, err
	}
	rk2, sendCK, err := ratchet.DeriveDHRatchet(rk1, secret2)
	primitives.Zeroize(secret2[:])
	if err != nil {
		primitives.Zeroize(recvCK[:])
		return nil, err
	}

	pt, newCK, newIdx, pending, err := stepChainTo(recvCK, 0, counter, macCovered, gotMAC, ciphertext)
	primitives.Zeroize(recvCK[:])
	if err != nil {
		primitives.Zeroize(newPriv[:])
		primitives.Zeroize(sendCK[:])
		return nil, err
	}

	primitives.Zeroize(s.send.priv[:])
	s.rootKey = rk2
	s.send = sendChain{priv: newPriv, pub: newPub, ck: sendCK}
	s.recv = append(s.recv, recvChain{remotePub: remotePub, ck: newCK, index: newIdx})
	for _, p := range pending {
		s.skipped.Put(remotePub, p.index, p.mk)
	}
	if len(s.recv) > maxRetainedRecvChains {
		primitives.Zeroize(s.recv[0].ck[:])
		s.recv = s.recv[1:]
	}
	return pt, nil
}

func (s *Session) decryptWithChain(chainIdx int, counter uint32, macCovered, gotMAC, ciphertext []byte) ([]byte, error) {
	c := &s.recv[chainIdx]

	if counter < c.index {
		mk, ok := s.skipped.Take(c.remotePub, counter)
		if !ok {
			return nil, newErr(ErrBadMessageKeyID, nil)
		}
		return finishDecrypt(mk, macCovered, gotMAC, ciphertext)
	}

	if counter-c.index > maxChainAdvance {
		return nil, newErr(ErrBadMessageFormat, fmt.Errorf("chain advance of %d exceeds limit", counter-c.index))
	}

	pt, newCK, newIdx, pending, err := stepChainTo(c.ck, c.index, counter, macCovered, gotMAC, ciphertext)
	if err != nil {
		return nil, err
	}
	for _, p := range pending {
		s.skipped.Put(c.remotePub, p.index, p.mk)
	}
	c.ck = newCK
	c.index = newIdx
	return pt, nil
}

type skippedKey struct {
	index uint32
	mk    [32]byte
}

// stepChainTo derives chain keys from (ck, index) forward through
// counter and decrypts at counter, without mutating any caller state.
// Keys for indices skipped along the way are returned rather than cached
// immediately, so the caller only commits them — and the chain's new
// ck/index — once the MAC check here has actually succeeded.
func stepChainTo(ck [32]byte, index, counter uint32, macCovered, gotMAC, ciphertext []byte) (pt []byte, newCK [32]byte, newIndex uint32, pending []skippedKey, err error) {
	idx := index
	cur := ck
	for idx < counter {
		nextCK, mk := ratchet.StepChain(cur)
		pending = append(pending, skippedKey{index: idx, mk: mk})
		cur = nextCK
		idx++
	}

	finalCK, mk := ratchet.StepChain(cur)
	pt, err = finishDecrypt(mk, macCovered, gotMAC, ciphertext)
	if err != nil {
		for _, p := range pending {
			primitives.Zeroize(p.mk[:])
		}
		return nil, [32]byte{}, 0, nil, err
	}
	return pt, finalCK, idx + 1, pending, nil
}

func finishDecrypt(mk [32]byte, macCovered, gotMAC, ciphertext []byte) ([]byte, error) {
	mks, err := ratchet.DeriveMessageKeys(mk)
	primitives.Zeroize(mk[:])
	if err != nil {
		return nil, err
	}
	defer primitives.Zeroize(mks.AESKey[:])
	defer primitives.Zeroize(mks.MACKey[:])

	wantTag := primitives.HMACSHA256(mks.MACKey[:], macCovered)
	if !primitives.ConstantTimeEqual(wantTag[:wireformat.MACSize], gotMAC) {
		return nil, newErr(ErrBadMessageMAC, nil)
	}
	pt, err := primitives.AES256CBCDecrypt(mks.AESKey, mks.IV, ciphertext)
	if err != nil {
		return nil, newErr(ErrBadMessageMAC, err)
	}
	return pt, nil
}

// Describe returns a short, secret-free diagnostic summary.
func (s *Session) Describe() string {
	return fmt.Sprintf(
		"session %s: received=%t send_index=%d recv_chains=%d skipped=%d",
		s.SessionID()[:12], s.received, s.send.index, len(s.recv), s.skipped.Len(),
	)
}

// Clear zeroizes every secret the session holds.
func (s *Session) Clear() {
	primitives.Zeroize(s.rootKey[:])
	primitives.Zeroize(s.send.priv[:])
	primitives.Zeroize(s.send.ck[:])
	for i := range s.recv {
		primitives.Zeroize(s.recv[i].ck[:])
	}
	s.recv = nil
	if s.skipped != nil {
		s.skipped.Clear()
	}
}

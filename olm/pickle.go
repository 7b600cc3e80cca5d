package olm

import (
	"olm/internal/pickle"
	"olm/internal/ratchet"
)

// Pickle versions are per object class and strictly monotonic; unpickle
// accepts exactly the versions listed for its class and rejects every
// other value with ErrUnknownPickleVersion. Each class currently has one
// published version — there is no prior release of this implementation
// to stay wire-compatible with, so the accepted set is a singleton
// rather than an enumeration of historical layouts.
const (
	accountPickleVersion       = 1
	sessionPickleVersion       = 1
	outboundGroupPickleVersion = 1
	inboundGroupPickleVersion  = 1
)

func isAcceptedPickleVersion(got, accepted uint32) bool { return got == accepted }

// Pickle encrypts the account's full state under key.
func (a *Account) Pickle(key []byte) (string, error) {
	w := pickle.NewWriter()
	w.WriteFixed(a.edPub[:])
	w.WriteFixed(a.edPriv[:])
	w.WriteFixed(a.xPub[:])
	w.WriteFixed(a.xPriv[:])
	w.WriteU32(a.nextOTK)
	w.WriteU32(uint32(len(a.otks)))
	for _, k := range a.otks {
		w.WriteU32(k.id)
		w.WriteFixed(k.pub[:])
		w.WriteFixed(k.priv[:])
		w.WriteBool(k.published)
	}
	w.WriteBool(a.current != nil)
	if a.current != nil {
		w.WriteFixed(a.current.pub[:])
		w.WriteFixed(a.current.priv[:])
		w.WriteBool(a.current.published)
	}
	w.WriteBool(a.prev != nil)
	if a.prev != nil {
		w.WriteFixed(a.prev.pub[:])
		w.WriteFixed(a.prev.priv[:])
		w.WriteBool(a.prev.published)
	}

	blob, err := pickle.Seal(key, accountPickleVersion, w.Bytes())
	if err != nil {
		return "", err
	}
	return encodeB64(blob), nil
}

// AccountFromPickle restores an account previously sealed with Pickle.
func AccountFromPickle(key []byte, blob string) (*Account, error) {
	raw, err := decodeB64(blob)
	if err != nil {
		return nil, err
	}
	version, pt, err := pickle.Open(key, raw)
	if err != nil {
		return nil, unpickleErr(err)
	}
	if !isAcceptedPickleVersion(version, accountPickleVersion) {
		return nil, newErr(ErrUnknownPickleVersion, nil)
	}

	r := pickle.NewReader(pt)
	a := &Account{}
	if err := readFixed32(r, &a.edPub); err != nil {
		return nil, err
	}
	edPriv, err := r.ReadFixed(64)
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	copy(a.edPriv[:], edPriv)
	if err := readFixed32(r, &a.xPub); err != nil {
		return nil, err
	}
	if err := readFixed32(r, &a.xPriv); err != nil {
		return nil, err
	}
	if a.nextOTK, err = r.ReadU32(); err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	n, err := r.ReadU32()
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	a.otks = make([]oneTimeKey, n)
	for i := range a.otks {
		if a.otks[i].id, err = r.ReadU32(); err != nil {
			return nil, newErr(ErrBadMessageFormat, err)
		}
		if err := readFixed32(r, &a.otks[i].pub); err != nil {
			return nil, err
		}
		if err := readFixed32(r, &a.otks[i].priv); err != nil {
			return nil, err
		}
		if a.otks[i].published, err = r.ReadBool(); err != nil {
			return nil, newErr(ErrBadMessageFormat, err)
		}
	}
	hasCurrent, err := r.ReadBool()
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if hasCurrent {
		fk := &fallbackKey{}
		if err := readFixed32(r, &fk.pub); err != nil {
			return nil, err
		}
		if err := readFixed32(r, &fk.priv); err != nil {
			return nil, err
		}
		if fk.published, err = r.ReadBool(); err != nil {
			return nil, newErr(ErrBadMessageFormat, err)
		}
		a.current = fk
	}
	hasPrev, err := r.ReadBool()
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if hasPrev {
		fk := &fallbackKey{}
		if err := readFixed32(r, &fk.pub); err != nil {
			return nil, err
		}
		if err := readFixed32(r, &fk.priv); err != nil {
			return nil, err
		}
		if fk.published, err = r.ReadBool(); err != nil {
			return nil, newErr(ErrBadMessageFormat, err)
		}
		a.prev = fk
	}
	return a, nil
}

// Pickle encrypts the session's full state under key.
func (s *Session) Pickle(key []byte) (string, error) {
	w := pickle.NewWriter()
	w.WriteBool(s.received)
	w.WriteFixed(s.aliceIdentityKey[:])
	w.WriteFixed(s.aliceBaseKey[:])
	w.WriteFixed(s.peerOneTimeKey[:])
	w.WriteBool(s.consumedOTK != nil)
	if s.consumedOTK != nil {
		w.WriteFixed(s.consumedOTK[:])
	}
	w.WriteFixed(s.rootKey[:])
	w.WriteFixed(s.send.priv[:])
	w.WriteFixed(s.send.pub[:])
	w.WriteFixed(s.send.ck[:])
	w.WriteU32(s.send.index)
	w.WriteU32(uint32(len(s.recv)))
	for _, c := range s.recv {
		w.WriteFixed(c.remotePub[:])
		w.WriteFixed(c.ck[:])
		w.WriteU32(c.index)
	}
	entries := s.skipped.All()
	w.WriteU32(uint32(len(entries)))
	for _, e := range entries {
		w.WriteFixed(e.Remote[:])
		w.WriteU32(e.Index)
		w.WriteFixed(e.Key[:])
	}

	blob, err := pickle.Seal(key, sessionPickleVersion, w.Bytes())
	if err != nil {
		return "", err
	}
	return encodeB64(blob), nil
}

// SessionFromPickle restores a session previously sealed with Pickle.
func SessionFromPickle(key []byte, blob string) (*Session, error) {
	raw, err := decodeB64(blob)
	if err != nil {
		return nil, err
	}
	version, pt, err := pickle.Open(key, raw)
	if err != nil {
		return nil, unpickleErr(err)
	}
	if !isAcceptedPickleVersion(version, sessionPickleVersion) {
		return nil, newErr(ErrUnknownPickleVersion, nil)
	}

	r := pickle.NewReader(pt)
	s := &Session{}
	if s.received, err = r.ReadBool(); err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if err := readFixed32(r, &s.aliceIdentityKey); err != nil {
		return nil, err
	}
	if err := readFixed32(r, &s.aliceBaseKey); err != nil {
		return nil, err
	}
	if err := readFixed32(r, &s.peerOneTimeKey); err != nil {
		return nil, err
	}
	hasConsumed, err := r.ReadBool()
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if hasConsumed {
		var pub [32]byte
		if err := readFixed32(r, &pub); err != nil {
			return nil, err
		}
		s.consumedOTK = &pub
	}
	if err := readFixed32(r, &s.rootKey); err != nil {
		return nil, err
	}
	if err := readFixed32(r, &s.send.priv); err != nil {
		return nil, err
	}
	if err := readFixed32(r, &s.send.pub); err != nil {
		return nil, err
	}
	if err := readFixed32(r, &s.send.ck); err != nil {
		return nil, err
	}
	if s.send.index, err = r.ReadU32(); err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	nRecv, err := r.ReadU32()
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	s.recv = make([]recvChain, nRecv)
	for i := range s.recv {
		if err := readFixed32(r, &s.recv[i].remotePub); err != nil {
			return nil, err
		}
		if err := readFixed32(r, &s.recv[i].ck); err != nil {
			return nil, err
		}
		if s.recv[i].index, err = r.ReadU32(); err != nil {
			return nil, newErr(ErrBadMessageFormat, err)
		}
	}
	nSkipped, err := r.ReadU32()
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	entries := make([]ratchet.Entry, nSkipped)
	for i := range entries {
		if err := readFixed32(r, &entries[i].Remote); err != nil {
			return nil, err
		}
		if entries[i].Index, err = r.ReadU32(); err != nil {
			return nil, newErr(ErrBadMessageFormat, err)
		}
		if err := readFixed32(r, &entries[i].Key); err != nil {
			return nil, err
		}
	}
	s.skipped = ratchet.NewSkippedKeyCache(ratchet.MaxSkippedMessageKeys)
	s.skipped.Restore(entries)
	s.sendSeeded = s.send.pub != [32]byte{}
	return s, nil
}

// Pickle encrypts the outbound group session's full state under key.
func (s *OutboundGroupSession) Pickle(key []byte) (string, error) {
	w := pickle.NewWriter()
	w.WriteFixed(s.signingPub[:])
	w.WriteFixed(s.signingPriv[:])
	for _, block := range s.ratchet.R {
		w.WriteFixed(block[:])
	}
	w.WriteU32(s.ratchet.Counter)

	blob, err := pickle.Seal(key, outboundGroupPickleVersion, w.Bytes())
	if err != nil {
		return "", err
	}
	return encodeB64(blob), nil
}

// OutboundGroupSessionFromPickle restores a session previously sealed
// with Pickle.
func OutboundGroupSessionFromPickle(key []byte, blob string) (*OutboundGroupSession, error) {
	raw, err := decodeB64(blob)
	if err != nil {
		return nil, err
	}
	version, pt, err := pickle.Open(key, raw)
	if err != nil {
		return nil, unpickleErr(err)
	}
	if !isAcceptedPickleVersion(version, outboundGroupPickleVersion) {
		return nil, newErr(ErrUnknownPickleVersion, nil)
	}

	r := pickle.NewReader(pt)
	s := &OutboundGroupSession{}
	if err := readFixed32(r, &s.signingPub); err != nil {
		return nil, err
	}
	priv, err := r.ReadFixed(64)
	if err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	copy(s.signingPriv[:], priv)
	for i := range s.ratchet.R {
		if err := readFixed32(r, &s.ratchet.R[i]); err != nil {
			return nil, err
		}
	}
	if s.ratchet.Counter, err = r.ReadU32(); err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	return s, nil
}

// Pickle encrypts the inbound group session's full state under key.
func (s *InboundGroupSession) Pickle(key []byte) (string, error) {
	w := pickle.NewWriter()
	w.WriteFixed(s.signingPub[:])
	for _, block := range s.ratchet.R {
		w.WriteFixed(block[:])
	}
	w.WriteU32(s.ratchet.Counter)
	w.WriteU32(s.firstKnownIndex)
	w.WriteU32(s.latestIndex)
	w.WriteBool(s.verified)

	blob, err := pickle.Seal(key, inboundGroupPickleVersion, w.Bytes())
	if err != nil {
		return "", err
	}
	return encodeB64(blob), nil
}

// InboundGroupSessionFromPickle restores a session previously sealed
// with Pickle.
func InboundGroupSessionFromPickle(key []byte, blob string) (*InboundGroupSession, error) {
	raw, err := decodeB64(blob)
	if err != nil {
		return nil, err
	}
	version, pt, err := pickle.Open(key, raw)
	if err != nil {
		return nil, unpickleErr(err)
	}
	if !isAcceptedPickleVersion(version, inboundGroupPickleVersion) {
		return nil, newErr(ErrUnknownPickleVersion, nil)
	}

	r := pickle.NewReader(pt)
	s := &InboundGroupSession{}
	if err := readFixed32(r, &s.signingPub); err != nil {
		return nil, err
	}
	for i := range s.ratchet.R {
		if err := readFixed32(r, &s.ratchet.R[i]); err != nil {
			return nil, err
		}
	}
	if s.ratchet.Counter, err = r.ReadU32(); err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if s.firstKnownIndex, err = r.ReadU32(); err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if s.latestIndex, err = r.ReadU32(); err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	if s.verified, err = r.ReadBool(); err != nil {
		return nil, newErr(ErrBadMessageFormat, err)
	}
	return s, nil
}

func readFixed32(r *pickle.Reader, dst *[32]byte) error {
	b, err := r.ReadFixed(32)
	if err != nil {
		return newErr(ErrBadMessageFormat, err)
	}
	copy(dst[:], b)
	return nil
}

func unpickleErr(err error) error {
	if err == pickle.ErrBadMAC {
		return newErr(ErrBadMessageMAC, err)
	}
	if err == pickle.ErrTooShort {
		return newErr(ErrInputBufferTooSmall, err)
	}
	return newErr(ErrBadAccountKey, err)
}

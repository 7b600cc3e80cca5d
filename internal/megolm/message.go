package megolm

import (
	"encoding/binary"
	"errors"

	"olm/internal/primitives"
)

// WireVersion is the version byte prefixing both group message and
// session-key wire formats.
const WireVersion = 3

const (
	tagIndex      = 1 // varint, encoded tag byte 0x08
	tagCiphertext = 2 // bytes, encoded tag byte 0x12
)

// ErrBadFormat reports a framing failure in a group message or
// session-key blob.
var ErrBadFormat = errors.New("megolm: bad message format")

// ErrBadSignature is returned when an Ed25519 signature over a group
// message or signed session-key blob fails to verify.
var ErrBadSignature = errors.New("megolm: bad signature")

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readVarint(buf []byte, off int) (uint64, int, error) {
	var v uint64
	var shift uint
	for {
		if off >= len(buf) {
			return 0, 0, ErrBadFormat
		}
		b := buf[off]
		off++
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, off, nil
		}
		shift += 7
	}
}

// EncodeMessage frames an outbound group message — version, index,
// ciphertext — and signs the whole thing with the session's Ed25519
// signing key, appending the 64-byte signature.
func EncodeMessage(index uint32, ciphertext []byte, signingPriv [64]byte) []byte {
	buf := make([]byte, 0, 1+5+5+len(ciphertext)+64)
	buf = append(buf, WireVersion)
	buf = appendVarint(buf, uint64(tagIndex<<3|0))
	buf = appendVarint(buf, uint64(index))
	buf = appendVarint(buf, uint64(tagCiphertext<<3|2))
	buf = appendVarint(buf, uint64(len(ciphertext)))
	buf = append(buf, ciphertext...)
	sig := primitives.Ed25519Sign(signingPriv, buf)
	return append(buf, sig...)
}

// Message is a parsed and signature-verified outbound group message.
type Message struct {
	Index      uint32
	Ciphertext []byte
}

// DecodeMessage parses buf, verifies its trailing 64-byte Ed25519
// signature against signingPub, and returns the index and ciphertext.
// The signature covers everything preceding it, so verification happens
// before any field is trusted.
func DecodeMessage(buf []byte, signingPub [32]byte) (Message, error) {
	const sigLen = 64
	if len(buf) < 1+sigLen {
		return Message{}, ErrBadFormat
	}
	signed := buf[:len(buf)-sigLen]
	sig := buf[len(buf)-sigLen:]
	if !primitives.Ed25519Verify(signingPub, signed, sig) {
		return Message{}, ErrBadSignature
	}

	if signed[0] != WireVersion {
		return Message{}, ErrBadFormat
	}
	var m Message
	haveIndex, haveCiphertext := false, false
	off := 1
	for off < len(signed) {
		tag, next, err := readVarint(signed, off)
		if err != nil {
			return Message{}, err
		}
		field, wireType := tag>>3, tag&0x7
		off = next
		switch {
		case field == tagIndex && wireType == 0:
			v, next, err := readVarint(signed, off)
			if err != nil {
				return Message{}, err
			}
			m.Index = uint32(v)
			haveIndex = true
			off = next
		case field == tagCiphertext && wireType == 2:
			n, next, err := readVarint(signed, off)
			if err != nil {
				return Message{}, err
			}
			end := next + int(n)
			if end < next || end > len(signed) {
				return Message{}, ErrBadFormat
			}
			m.Ciphertext = append([]byte{}, signed[next:end]...)
			haveCiphertext = true
			off = end
		case wireType == 0:
			_, next, err := readVarint(signed, off)
			if err != nil {
				return Message{}, err
			}
			off = next
		case wireType == 2:
			n, next, err := readVarint(signed, off)
			if err != nil {
				return Message{}, err
			}
			end := next + int(n)
			if end < next || end > len(signed) {
				return Message{}, ErrBadFormat
			}
			off = end
		default:
			return Message{}, ErrBadFormat
		}
	}
	if !haveIndex || !haveCiphertext {
		return Message{}, ErrBadFormat
	}
	return m, nil
}

const (
	sessionKeyUnsignedLen = 1 + 4 + 128 + 32
	sessionKeySignatureLen = 64
)

// SessionKey is the parsed contents of a session-key distribution blob:
// the ratchet state at a given index plus the signing public key
// receivers use to authenticate every message from this session.
type SessionKey struct {
	Index      uint32
	R          [4][32]byte
	SigningPub [32]byte
	// Signed reports whether the blob carried a valid Ed25519 signature
	// (the "share" form) as opposed to the unsigned "import" form used
	// for re-sharing already-verified sessions. A receiver built from an
	// unsigned blob can never be promoted back to verified.
	Signed bool
}

func encodeSessionKeyBody(index uint32, r [4][32]byte, signingPub [32]byte) []byte {
	buf := make([]byte, 0, sessionKeyUnsignedLen)
	buf = append(buf, WireVersion)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	buf = append(buf, idx[:]...)
	for _, block := range r {
		buf = append(buf, block[:]...)
	}
	buf = append(buf, signingPub[:]...)
	return buf
}

// EncodeSessionKeyShare builds the signed distribution form of a
// session key, used the first time a session is shared with a group of
// receivers.
func EncodeSessionKeyShare(index uint32, r [4][32]byte, signingPub [32]byte, signingPriv [64]byte) []byte {
	body := encodeSessionKeyBody(index, r, signingPub)
	sig := primitives.Ed25519Sign(signingPriv, body)
	return append(body, sig...)
}

// EncodeSessionKeyImport builds the unsigned re-sharing form of a
// session key, omitting the signature.
func EncodeSessionKeyImport(index uint32, r [4][32]byte, signingPub [32]byte) []byte {
	return encodeSessionKeyBody(index, r, signingPub)
}

// DecodeSessionKey parses either form of a session-key blob. For the
// signed form, the signature is verified against the bundled signing
// public key itself (self-signed, establishing provenance of the
// ratchet seed); for the unsigned form, Signed is false and no
// signature check is performed.
func DecodeSessionKey(buf []byte) (SessionKey, error) {
	var sk SessionKey
	switch len(buf) {
	case sessionKeyUnsignedLen:
		sk.Signed = false
	case sessionKeyUnsignedLen + sessionKeySignatureLen:
		sk.Signed = true
	default:
		return sk, ErrBadFormat
	}
	if buf[0] != WireVersion {
		return sk, ErrBadFormat
	}
	sk.Index = binary.BigEndian.Uint32(buf[1:5])
	off := 5
	for i := range sk.R {
		copy(sk.R[i][:], buf[off:off+32])
		off += 32
	}
	copy(sk.SigningPub[:], buf[off:off+32])
	off += 32
	if sk.Signed {
		body := buf[:sessionKeyUnsignedLen]
		sig := buf[off:]
		if !primitives.Ed25519Verify(sk.SigningPub, body, sig) {
			return SessionKey{}, ErrBadSignature
		}
	}
	return sk, nil
}

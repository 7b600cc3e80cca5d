package wireformat

import "fmt"

// MessageVersion is the version byte prefixing every Olm wire message.
const MessageVersion = 3

// MACSize is the length of the truncated HMAC-SHA-256 tag trailing a
// normal message.
const MACSize = 8

const (
	tagRatchetKey  = 1
	tagCounter     = 2
	tagOneTimeKey  = 1
	tagBaseKey     = 2
	tagIdentityKey = 3
	tagCiphertext  = 4
	tagMessage     = 4
)

// ErrBadVersion is returned when the leading version byte of a message
// does not match MessageVersion.
type ErrBadVersion struct{ Got byte }

func (e ErrBadVersion) Error() string {
	return fmt.Sprintf("wireformat: unsupported message version %d", e.Got)
}

// ErrBadFormat wraps a framing failure with the field that triggered it.
type ErrBadFormat struct{ Reason string }

func (e ErrBadFormat) Error() string { return "wireformat: bad message format: " + e.Reason }

// NormalMessage is the per-message chain-ratchet wire shape: the
// sender's current ratchet public key, the chain counter, and the
// AES-CBC ciphertext. The trailing MAC is handled by the caller, since
// computing it requires the per-message MAC key derived by the ratchet.
type NormalMessage struct {
	RatchetKey []byte
	Counter    uint32
	Ciphertext []byte
}

// EncodeNormal serializes the MAC-covered portion of a normal message:
// version || ratchet_key || counter || ciphertext.
func EncodeNormal(m NormalMessage) []byte {
	buf := make([]byte, 0, 1+len(m.RatchetKey)+5+len(m.Ciphertext)+5)
	buf = append(buf, MessageVersion)
	buf = appendTaggedBytes(buf, tagRatchetKey, m.RatchetKey)
	buf = appendTaggedVarint(buf, tagCounter, uint64(m.Counter))
	buf = appendTaggedBytes(buf, tagCiphertext, m.Ciphertext)
	return buf
}

// DecodeNormal parses the MAC-covered portion of a normal message,
// skipping any tags it doesn't recognize.
func DecodeNormal(buf []byte) (NormalMessage, error) {
	var m NormalMessage
	if len(buf) < 1 {
		return m, ErrBadFormat{"empty message"}
	}
	if buf[0] != MessageVersion {
		return m, ErrBadVersion{buf[0]}
	}
	haveRatchetKey, haveCounter := false, false
	off := 1
	for off < len(buf) {
		field, wt, next, err := readTag(buf, off)
		if err != nil {
			return m, ErrBadFormat{err.Error()}
		}
		off = next
		switch {
		case field == tagRatchetKey && wt == wireBytes:
			v, next, err := readTaggedBytes(buf, off)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			m.RatchetKey = append([]byte{}, v...)
			haveRatchetKey = true
			off = next
		case field == tagCounter && wt == wireVarint:
			v, next, err := readVarint(buf, off)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			m.Counter = uint32(v)
			haveCounter = true
			off = next
		case field == tagCiphertext && wt == wireBytes:
			v, next, err := readTaggedBytes(buf, off)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			m.Ciphertext = append([]byte{}, v...)
			off = next
		default:
			next, err := skipField(buf, off, wt)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			off = next
		}
	}
	if !haveRatchetKey || !haveCounter || m.Ciphertext == nil {
		return m, ErrBadFormat{"missing required field"}
	}
	return m, nil
}

// PreKeyMessage is the first message of a session: the recipient's
// one-time key, the sender's ephemeral base key and identity key, and
// an embedded, fully-framed (including MAC) normal message.
type PreKeyMessage struct {
	OneTimeKey  []byte
	BaseKey     []byte
	IdentityKey []byte
	Message     []byte // full normal message, version+fields+MAC
}

// EncodePreKey serializes a pre-key message.
func EncodePreKey(m PreKeyMessage) []byte {
	buf := make([]byte, 0, 1+len(m.OneTimeKey)+len(m.BaseKey)+len(m.IdentityKey)+len(m.Message)+20)
	buf = append(buf, MessageVersion)
	buf = appendTaggedBytes(buf, tagOneTimeKey, m.OneTimeKey)
	buf = appendTaggedBytes(buf, tagBaseKey, m.BaseKey)
	buf = appendTaggedBytes(buf, tagIdentityKey, m.IdentityKey)
	buf = appendTaggedBytes(buf, tagMessage, m.Message)
	return buf
}

// DecodePreKey parses a pre-key message, skipping unrecognized tags.
func DecodePreKey(buf []byte) (PreKeyMessage, error) {
	var m PreKeyMessage
	if len(buf) < 1 {
		return m, ErrBadFormat{"empty message"}
	}
	if buf[0] != MessageVersion {
		return m, ErrBadVersion{buf[0]}
	}
	off := 1
	for off < len(buf) {
		field, wt, next, err := readTag(buf, off)
		if err != nil {
			return m, ErrBadFormat{err.Error()}
		}
		off = next
		switch {
		case field == tagOneTimeKey && wt == wireBytes:
			v, next, err := readTaggedBytes(buf, off)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			m.OneTimeKey = append([]byte{}, v...)
			off = next
		case field == tagBaseKey && wt == wireBytes:
			v, next, err := readTaggedBytes(buf, off)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			m.BaseKey = append([]byte{}, v...)
			off = next
		case field == tagIdentityKey && wt == wireBytes:
			v, next, err := readTaggedBytes(buf, off)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			m.IdentityKey = append([]byte{}, v...)
			off = next
		case field == tagMessage && wt == wireBytes:
			v, next, err := readTaggedBytes(buf, off)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			m.Message = append([]byte{}, v...)
			off = next
		default:
			next, err := skipField(buf, off, wt)
			if err != nil {
				return m, ErrBadFormat{err.Error()}
			}
			off = next
		}
	}
	if m.BaseKey == nil || m.IdentityKey == nil || m.Message == nil {
		return m, ErrBadFormat{"missing required field"}
	}
	return m, nil
}

package olm

import "fmt"

// ErrorKind enumerates every way a core operation can fail, mirroring
// the taxonomy a libolm-style binding surfaces to callers.
type ErrorKind int

const (
	// ErrNotEnoughRandom means the random source returned fewer bytes
	// than requested.
	ErrNotEnoughRandom ErrorKind = iota
	// ErrBadMessageVersion means the version byte of an incoming
	// message is not one this implementation understands.
	ErrBadMessageVersion
	// ErrBadMessageFormat means varint/tag/length decoding failed or a
	// required field was missing.
	ErrBadMessageFormat
	// ErrBadMessageMAC means MAC verification failed on a message or a
	// pickle.
	ErrBadMessageMAC
	// ErrBadMessageKeyID means a pre-key message referenced a one-time
	// key this account does not hold.
	ErrBadMessageKeyID
	// ErrInvalidBase64 means an external base64 decode failed.
	ErrInvalidBase64
	// ErrBadAccountKey means a pickle decryption key did not verify.
	ErrBadAccountKey
	// ErrUnknownPickleVersion means the pickle's version is not in the
	// accepted set for its object class.
	ErrUnknownPickleVersion
	// ErrUnknownMessageIndex means a group message's counter is below
	// the receiver's earliest known index.
	ErrUnknownMessageIndex
	// ErrBadLegacyAccountPickle means a legacy-format account pickle
	// failed its stricter validity checks.
	ErrBadLegacyAccountPickle
	// ErrBadSignature means Ed25519 verification failed.
	ErrBadSignature
	// ErrInputBufferTooSmall means the input was too small to be a
	// valid framed object.
	ErrInputBufferTooSmall
	// ErrSASTheirKeyNotSet means a SAS operation was requested before
	// SetTheirKey.
	ErrSASTheirKeyNotSet
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNotEnoughRandom:
		return "NOT_ENOUGH_RANDOM"
	case ErrBadMessageVersion:
		return "BAD_MESSAGE_VERSION"
	case ErrBadMessageFormat:
		return "BAD_MESSAGE_FORMAT"
	case ErrBadMessageMAC:
		return "BAD_MESSAGE_MAC"
	case ErrBadMessageKeyID:
		return "BAD_MESSAGE_KEY_ID"
	case ErrInvalidBase64:
		return "INVALID_BASE64"
	case ErrBadAccountKey:
		return "BAD_ACCOUNT_KEY"
	case ErrUnknownPickleVersion:
		return "UNKNOWN_PICKLE_VERSION"
	case ErrUnknownMessageIndex:
		return "UNKNOWN_MESSAGE_INDEX"
	case ErrBadLegacyAccountPickle:
		return "BAD_LEGACY_ACCOUNT_PICKLE"
	case ErrBadSignature:
		return "BAD_SIGNATURE"
	case ErrInputBufferTooSmall:
		return "INPUT_BUFFER_TOO_SMALL"
	case ErrSASTheirKeyNotSet:
		return "SAS_THEIR_KEY_NOT_SET"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is the typed error every fallible core operation returns. It
// wraps an optional underlying cause without ever leaking secret
// material through the error message.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("olm: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("olm: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, &olm.Error{Kind: olm.ErrBadMessageMAC}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newErr(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

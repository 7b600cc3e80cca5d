package olm

import (
	"encoding/base64"
	"io"

	"olm/internal/primitives"
)

// SAS runs one side of a short-authentication-string mutual verification:
// a fresh Curve25519 pair, an ECDH with the peer's published public key,
// and an HKDF schedule over the resulting shared secret.
type SAS struct {
	priv     [32]byte
	pub      [32]byte
	secret   [32]byte
	hasTheir bool
}

// NewSAS generates a fresh Curve25519 key pair for one verification run.
func NewSAS(rnd io.Reader) (*SAS, error) {
	priv, pub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		return nil, newErr(ErrNotEnoughRandom, err)
	}
	return &SAS{priv: priv, pub: pub}, nil
}

// GetPubkey returns this party's base64 public key, to hand to the peer.
func (s *SAS) GetPubkey() string { return encodeB64(s.pub[:]) }

// SetTheirKey computes and caches the shared secret against the peer's
// base64 public key. It must be called exactly once before generating
// bytes or MACs.
func (s *SAS) SetTheirKey(theirPubB64 string) error {
	raw, err := decodeB64(theirPubB64)
	if err != nil {
		return err
	}
	if len(raw) != 32 {
		return newErr(ErrBadMessageFormat, nil)
	}
	var theirPub [32]byte
	copy(theirPub[:], raw)
	secret, err := primitives.X25519(s.priv, theirPub)
	if err != nil {
		return err
	}
	s.secret = secret
	s.hasTheir = true
	return nil
}

func (s *SAS) requireSecret() error {
	if !s.hasTheir {
		return newErr(ErrSASTheirKeyNotSet, nil)
	}
	return nil
}

// GenerateBytes derives n bytes from the shared secret under the given
// info string, the building block both the numeric and emoji short
// authentication strings are rendered from.
func (s *SAS) GenerateBytes(info string, n int) ([]byte, error) {
	if err := s.requireSecret(); err != nil {
		return nil, err
	}
	return primitives.HKDFSHA256(nil, s.secret[:], []byte(info), n)
}

// CalculateMAC returns base64(HMAC-SHA-256(HKDF(secret, info, 32), input)),
// the current MAC form.
func (s *SAS) CalculateMAC(input []byte, info string) (string, error) {
	tag, err := s.macTag(input, info)
	if err != nil {
		return "", err
	}
	return encodeB64(tag[:]), nil
}

// CalculateMACLongKDF reproduces an earlier wire-compatible variant that
// requested a longer HKDF expansion (256 bytes instead of 32) before
// taking the MAC key from its first 32 bytes. HKDF-Expand's output
// stream is a deterministic prefix regardless of the requested length,
// so this differs from CalculateMAC only in which code path produced the
// key, not in the resulting bytes — kept as a distinct entry point so
// callers migrating fixed wire vectors from that era have it by name.
func (s *SAS) CalculateMACLongKDF(input []byte, info string) (string, error) {
	if err := s.requireSecret(); err != nil {
		return "", err
	}
	out, err := primitives.HKDFSHA256(nil, s.secret[:], []byte(info), 256)
	if err != nil {
		return "", err
	}
	defer primitives.Zeroize(out)
	var macKey [32]byte
	copy(macKey[:], out[:32])
	defer primitives.Zeroize(macKey[:])
	tag := primitives.HMACSHA256(macKey[:], input)
	return encodeB64(tag[:]), nil
}

// CalculateMACFixedBase64 reproduces the pre-fix variant that encoded its
// result as padded standard base64 instead of the unpadded form every
// other boundary value uses.
func (s *SAS) CalculateMACFixedBase64(input []byte, info string) (string, error) {
	tag, err := s.macTag(input, info)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(tag[:]), nil
}

func (s *SAS) macTag(input []byte, info string) ([32]byte, error) {
	if err := s.requireSecret(); err != nil {
		return [32]byte{}, err
	}
	macKeyBytes, err := primitives.HKDFSHA256(nil, s.secret[:], []byte(info), 32)
	if err != nil {
		return [32]byte{}, err
	}
	defer primitives.Zeroize(macKeyBytes)
	var macKey [32]byte
	copy(macKey[:], macKeyBytes)
	defer primitives.Zeroize(macKey[:])
	return primitives.HMACSHA256(macKey[:], input), nil
}

// Clear zeroizes the private key and shared secret.
func (s *SAS) Clear() {
	primitives.Zeroize(s.priv[:])
	primitives.Zeroize(s.secret[:])
}

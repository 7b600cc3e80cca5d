package olm

import (
	"io"

	"olm/internal/primitives"
	"olm/internal/ratchet"
	"olm/internal/wireformat"
)

// PkEncryption seals messages to a single recipient Curve25519 public
// key, without any session state: each call generates a fresh ephemeral
// key and runs the same key schedule as a two-party session's per-message
// keys.
type PkEncryption struct {
	recipientPub [32]byte
}

// NewPkEncryption targets every future Encrypt call at recipientPubB64.
func NewPkEncryption(recipientPubB64 string) (*PkEncryption, error) {
	raw, err := decodeB64(recipientPubB64)
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, newErr(ErrBadMessageFormat, nil)
	}
	var pub [32]byte
	copy(pub[:], raw)
	return &PkEncryption{recipientPub: pub}, nil
}

// Encrypt seals plaintext under a fresh ephemeral key, returning the
// ciphertext, the truncated MAC, and the ephemeral public key, all base64.
func (p *PkEncryption) Encrypt(plaintext []byte, rnd io.Reader) (ciphertext, mac, ephemeralPub string, err error) {
	ePriv, ePub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		return "", "", "", newErr(ErrNotEnoughRandom, err)
	}
	defer primitives.Zeroize(ePriv[:])

	shared, err := primitives.X25519(ePriv, p.recipientPub)
	if err != nil {
		return "", "", "", err
	}
	defer primitives.Zeroize(shared[:])

	mk, err := ratchet.DeriveMessageKeys(shared)
	if err != nil {
		return "", "", "", err
	}
	defer primitives.Zeroize(mk.AESKey[:])
	defer primitives.Zeroize(mk.MACKey[:])

	ct, err := primitives.AES256CBCEncrypt(mk.AESKey, mk.IV, plaintext)
	if err != nil {
		return "", "", "", err
	}
	tag := primitives.HMACSHA256(mk.MACKey[:], ct)
	return encodeB64(ct), encodeB64(tag[:wireformat.MACSize]), encodeB64(ePub[:]), nil
}

// PkDecryption holds the long-lived recipient key pair that reverses
// PkEncryption.
type PkDecryption struct {
	priv [32]byte
	pub  [32]byte
}

// NewPkDecryption generates a fresh recipient key pair.
func NewPkDecryption(rnd io.Reader) (*PkDecryption, error) {
	priv, pub, err := primitives.X25519KeyPair(rnd)
	if err != nil {
		return nil, newErr(ErrNotEnoughRandom, err)
	}
	return &PkDecryption{priv: priv, pub: pub}, nil
}

// PublicKey returns the base64 Curve25519 public key senders encrypt to.
func (p *PkDecryption) PublicKey() string { return encodeB64(p.pub[:]) }

// Decrypt opens a message sealed by PkEncryption.Encrypt, verifying the
// MAC before touching the ciphertext.
func (p *PkDecryption) Decrypt(ephemeralPubB64, macB64, ciphertextB64 string) ([]byte, error) {
	ephBytes, err := decodeB64(ephemeralPubB64)
	if err != nil {
		return nil, err
	}
	if len(ephBytes) != 32 {
		return nil, newErr(ErrBadMessageFormat, nil)
	}
	var ephPub [32]byte
	copy(ephPub[:], ephBytes)

	gotMAC, err := decodeB64(macB64)
	if err != nil {
		return nil, err
	}
	ct, err := decodeB64(ciphertextB64)
	if err != nil {
		return nil, err
	}

	shared, err := primitives.X25519(p.priv, ephPub)
	if err != nil {
		return nil, err
	}
	defer primitives.Zeroize(shared[:])

	mk, err := ratchet.DeriveMessageKeys(shared)
	if err != nil {
		return nil, err
	}
	defer primitives.Zeroize(mk.AESKey[:])
	defer primitives.Zeroize(mk.MACKey[:])

	wantMAC := primitives.HMACSHA256(mk.MACKey[:], ct)
	if !primitives.ConstantTimeEqual(wantMAC[:wireformat.MACSize], gotMAC) {
		return nil, newErr(ErrBadMessageMAC, nil)
	}
	pt, err := primitives.AES256CBCDecrypt(mk.AESKey, mk.IV, ct)
	if err != nil {
		return nil, newErr(ErrBadMessageMAC, err)
	}
	return pt, nil
}

// Clear zeroizes the recipient private key.
func (p *PkDecryption) Clear() { primitives.Zeroize(p.priv[:]) }

// PkSigning wraps a deterministic Ed25519 signer expanded from a
// caller-supplied seed, so the same seed always yields the same key pair
// and the same signature over a given message.
type PkSigning struct {
	pub  [32]byte
	priv [64]byte
}

// NewPkSigning expands seed into an Ed25519 key pair.
func NewPkSigning(seed [32]byte) *PkSigning {
	pub, priv := primitives.Ed25519KeyPairFromSeed(seed)
	return &PkSigning{pub: pub, priv: priv}
}

// PublicKey returns the base64 Ed25519 public key.
func (p *PkSigning) PublicKey() string { return encodeB64(p.pub[:]) }

// Sign returns the base64 Ed25519 signature over msg.
func (p *PkSigning) Sign(msg []byte) string {
	return encodeB64(primitives.Ed25519Sign(p.priv, msg))
}

// Clear zeroizes the signing private key.
func (p *PkSigning) Clear() { primitives.Zeroize(p.priv[:]) }

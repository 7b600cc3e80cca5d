package ratchet

import "olm/internal/primitives"

// HKDF info labels, reproduced byte-exactly since they are part of the
// wire-compatible key schedule, not an implementation detail.
var (
	infoRoot    = []byte("OLM_ROOT")
	infoRatchet = []byte("OLM_RATCHET")
	infoKeys    = []byte("OLM_KEYS")
)

// MessageKeys are the per-message symmetric keys derived from a chain's
// message key via HKDF.
type MessageKeys struct {
	AESKey [32]byte
	MACKey [32]byte
	IV     [16]byte
}

// StepChain advances a symmetric chain key by one message, returning the
// next chain key and this message's key: CK' = HMAC(CK, 0x02),
// MK = HMAC(CK, 0x01).
func StepChain(ck [32]byte) (nextCK [32]byte, mk [32]byte) {
	mkTag := primitives.HMACSHA256(ck[:], []byte{0x01})
	ckTag := primitives.HMACSHA256(ck[:], []byte{0x02})
	return ckTag, mkTag
}

// DeriveMessageKeys expands a message key into the AES key, HMAC key and
// IV used to seal one message, via HKDF-SHA-256 with a zero salt and
// info "OLM_KEYS".
func DeriveMessageKeys(mk [32]byte) (MessageKeys, error) {
	var zeroSalt [32]byte
	out, err := primitives.HKDFSHA256(zeroSalt[:], mk[:], infoKeys, 80)
	if err != nil {
		return MessageKeys{}, err
	}
	defer primitives.Zeroize(out)
	var mks MessageKeys
	copy(mks.AESKey[:], out[0:32])
	copy(mks.MACKey[:], out[32:64])
	copy(mks.IV[:], out[64:80])
	return mks, nil
}

// DeriveX3DHRoot derives the initial root key and sending chain key from
// the concatenated X3DH Diffie-Hellman shares, via HKDF-SHA-256 with an
// empty salt and info "OLM_ROOT".
func DeriveX3DHRoot(dhConcat []byte) (rootKey [32]byte, chainKey [32]byte, err error) {
	out, err := primitives.HKDFSHA256(nil, dhConcat, infoRoot, 64)
	if err != nil {
		return rootKey, chainKey, err
	}
	defer primitives.Zeroize(out)
	copy(rootKey[:], out[0:32])
	copy(chainKey[:], out[32:64])
	return rootKey, chainKey, nil
}

// DeriveDHRatchet advances the root ratchet on a new Diffie-Hellman
// share: RK', CK' = HKDF-SHA-256(salt=RK, ikm=dhSecret, info="OLM_RATCHET", 64).
func DeriveDHRatchet(rootKey [32]byte, dhSecret [32]byte) (newRoot [32]byte, chainKey [32]byte, err error) {
	out, err := primitives.HKDFSHA256(rootKey[:], dhSecret[:], infoRatchet, 64)
	if err != nil {
		return newRoot, chainKey, err
	}
	defer primitives.Zeroize(out)
	copy(newRoot[:], out[0:32])
	copy(chainKey[:], out[32:64])
	return newRoot, chainKey, nil
}

package olm

import "encoding/base64"

// Every externally-visible byte string crosses the boundary as unpadded
// standard base64, never URL-safe and never padded.
var b64 = base64.StdEncoding.WithPadding(base64.NoPadding)

func encodeB64(b []byte) string { return b64.EncodeToString(b) }

func decodeB64(s string) ([]byte, error) {
	b, err := b64.DecodeString(s)
	if err != nil {
		return nil, newErr(ErrInvalidBase64, err)
	}
	return b, nil
}

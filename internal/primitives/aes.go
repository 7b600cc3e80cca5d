package primitives

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// ErrBadPadding is returned when decrypted PKCS#7 padding does not
// validate; it never distinguishes where the padding went wrong, so
// callers can't use it as a decryption oracle.
var ErrBadPadding = errors.New("primitives: bad PKCS#7 padding")

// AES256CBCEncrypt PKCS#7-pads data to the AES block size and encrypts it
// under key/iv with AES-256 in CBC mode.
func AES256CBCEncrypt(key [32]byte, iv [16]byte, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(data, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out, padded)
	return out, nil
}

// AES256CBCDecrypt decrypts data under key/iv and strips PKCS#7 padding.
func AES256CBCDecrypt(key [32]byte, iv [16]byte, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(data) == 0 || len(data)%bs != 0 {
		return nil, ErrBadPadding
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(out, data)
	return pkcs7Unpad(out, bs)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, ErrBadPadding
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, ErrBadPadding
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, ErrBadPadding
		}
	}
	return data[:n-padLen], nil
}

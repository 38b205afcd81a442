package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"hash"
)

// HMACPrimitive implements MAC over HMAC-SHA256/384/512, truncated to the
// tag length COSE registers (HMAC-256/64 truncates to 8 bytes; the
// others use the full hash output).
type HMACPrimitive struct {
	newHash func() hash.Hash
	tagLen  int
}

// NewHMAC returns an HMAC MAC binding for the given hash and tag length.
func NewHMAC(h HashID, tagLen int) (*HMACPrimitive, error) {
	var newHash func() hash.Hash
	switch h {
	case HashSHA256:
		newHash = sha256.New
	case HashSHA384:
		newHash = sha512.New384
	case HashSHA512:
		newHash = sha512.New
	default:
		return nil, fmt.Errorf("primitives: unsupported HMAC hash %d", h)
	}
	return &HMACPrimitive{newHash: newHash, tagLen: tagLen}, nil
}

func (m *HMACPrimitive) TagLen() int { return m.tagLen }

func (m *HMACPrimitive) Tag(key, msg []byte) ([]byte, error) {
	mac := hmac.New(m.newHash, key)
	mac.Write(msg)
	full := mac.Sum(nil)
	if m.tagLen > len(full) {
		return nil, fmt.Errorf("primitives: HMAC tag length %d exceeds hash output %d", m.tagLen, len(full))
	}
	return full[:m.tagLen], nil
}

func (m *HMACPrimitive) Verify(key, msg, tag []byte) (bool, error) {
	expected, err := m.Tag(key, msg)
	if err != nil {
		return false, err
	}
	if len(expected) != len(tag) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(expected, tag) == 1, nil
}

// AESCBCMAC implements MAC over AES-CBC-MAC (CBC-MAC with zero IV), as used
// by COSE's AES-MAC-{128,256}/{64,128} algorithms.
type AESCBCMAC struct {
	keyLen int
	tagLen int
}

// NewAESCBCMAC returns an AES-CBC-MAC binding for the given key and tag
// length in bytes.
func NewAESCBCMAC(keyLen, tagLen int) *AESCBCMAC {
	return &AESCBCMAC{keyLen: keyLen, tagLen: tagLen}
}

func (m *AESCBCMAC) TagLen() int { return m.tagLen }

func (m *AESCBCMAC) Tag(key, msg []byte) ([]byte, error) {
	if len(key) != m.keyLen {
		return nil, fmt.Errorf("primitives: AES-CBC-MAC key length %d, want %d", len(key), m.keyLen)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := make([]byte, len(msg))
	copy(padded, msg)
	if pad := len(padded) % aes.BlockSize; pad != 0 {
		padded = append(padded, make([]byte, aes.BlockSize-pad)...)
	}

	iv := make([]byte, aes.BlockSize)
	mode := cipher.NewCBCEncrypter(block, iv)
	out := make([]byte, len(padded))
	mode.CryptBlocks(out, padded)

	last := out[len(out)-aes.BlockSize:]
	if m.tagLen > len(last) {
		return nil, fmt.Errorf("primitives: AES-CBC-MAC tag length %d exceeds block size", m.tagLen)
	}
	return last[:m.tagLen], nil
}

func (m *AESCBCMAC) Verify(key, msg, tag []byte) (bool, error) {
	expected, err := m.Tag(key, msg)
	if err != nil {
		return false, err
	}
	if len(expected) != len(tag) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(expected, tag) == 1, nil
}

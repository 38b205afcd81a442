package primitives

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFPrimitive implements KDF over HKDF (RFC 5869), used for
// DirectKeyAgreement and KeyAgreementWithKeyWrap recipients to derive the
// CEK/KEK from an ECDH shared secret and a KDF_Context byte string.
type HKDFPrimitive struct{}

// NewHKDF returns the HKDF binding.
func NewHKDF() *HKDFPrimitive { return &HKDFPrimitive{} }

func hashFunc(h HashID) (func() hash.Hash, error) {
	switch h {
	case HashSHA256:
		return sha256.New, nil
	case HashSHA384:
		return sha512.New384, nil
	case HashSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("primitives: unsupported HKDF hash %d", h)
	}
}

func (k *HKDFPrimitive) Derive(h HashID, ikm, salt, info []byte, length int) ([]byte, error) {
	newHash, err := hashFunc(h)
	if err != nil {
		return nil, err
	}
	reader := hkdf.New(newHash, ikm, salt, info)
	okm := make([]byte, length)
	if _, err := io.ReadFull(reader, okm); err != nil {
		return nil, fmt.Errorf("primitives: HKDF expand: %w", err)
	}
	return okm, nil
}

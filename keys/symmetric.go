package keys

import (
	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

const labelSymmetricK = -1

// SymmetricKey is a COSE symmetric key (kty=4): a single secret byte
// string, used by MAC, AEAD, HMAC-based KDF, and AES key-wrap algorithms.
type SymmetricKey struct {
	Common
	K []byte
}

// NewSymmetricKey validates and constructs a symmetric key.
func NewSymmetricKey(k []byte, opts ...func(*Common)) (*SymmetricKey, error) {
	if len(k) == 0 {
		return nil, &InvalidKeyFormatError{Reason: "symmetric key requires non-empty k"}
	}
	sk := &SymmetricKey{Common: Common{Kty: algorithm.KeyTypeSymmetric}, K: k}
	for _, opt := range opts {
		opt(&sk.Common)
	}
	return sk, nil
}

func (k *SymmetricKey) Type() algorithm.KeyType { return algorithm.KeyTypeSymmetric }
func (k *SymmetricKey) CommonParams() *Common   { return &k.Common }

func (k *SymmetricKey) MarshalCBOR() ([]byte, error) {
	m := map[int64]interface{}{}
	encodeCommon(m, &k.Common)
	m[labelSymmetricK] = k.K
	return cborcodec.Marshal(m)
}

func decodeSymmetric(m map[int64]cborcodec.RawMessage) (*SymmetricKey, error) {
	common, err := decodeCommon(m)
	if err != nil {
		return nil, err
	}
	raw, ok := m[labelSymmetricK]
	if !ok {
		return nil, &InvalidKeyFormatError{Reason: "symmetric key missing k"}
	}
	var k []byte
	if err := cborcodec.Unmarshal(raw, &k); err != nil {
		return nil, &InvalidKeyFormatError{Reason: "k is not a bstr"}
	}
	if len(k) == 0 {
		return nil, &InvalidKeyFormatError{Reason: "symmetric key requires non-empty k"}
	}
	return &SymmetricKey{Common: common, K: k}, nil
}

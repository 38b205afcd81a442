package keys

import (
	"crypto/rsa"
	"math/big"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

const (
	labelRSAN    = -1
	labelRSAE    = -2
	labelRSAD    = -3
	labelRSAP    = -4
	labelRSAQ    = -5
	labelRSADP   = -6
	labelRSADQ   = -7
	labelRSAQInv = -8
)

// RSAKey is a COSE RSA key (kty=3): a public modulus/exponent pair with
// optional private components (CRT form).
type RSAKey struct {
	Common
	N []byte
	E []byte

	D    []byte // private, optional
	P    []byte
	Q    []byte
	DP   []byte
	DQ   []byte
	QInv []byte
}

// NewRSAKey validates and constructs an RSA key. N and E are required; the
// private components are either all absent (public key) or all present
// (CRT private key).
func NewRSAKey(n, e []byte, opts ...func(*Common)) (*RSAKey, error) {
	if len(n) == 0 || len(e) == 0 {
		return nil, &InvalidKeyFormatError{Reason: "RSA key requires n and e"}
	}
	k := &RSAKey{Common: Common{Kty: algorithm.KeyTypeRSA}, N: n, E: e}
	for _, opt := range opts {
		opt(&k.Common)
	}
	return k, nil
}

func (k *RSAKey) Type() algorithm.KeyType { return algorithm.KeyTypeRSA }
func (k *RSAKey) CommonParams() *Common   { return &k.Common }

func (k *RSAKey) MarshalCBOR() ([]byte, error) {
	m := map[int64]interface{}{}
	encodeCommon(m, &k.Common)
	m[labelRSAN] = k.N
	m[labelRSAE] = k.E
	if k.D != nil {
		m[labelRSAD] = k.D
		m[labelRSAP] = k.P
		m[labelRSAQ] = k.Q
		m[labelRSADP] = k.DP
		m[labelRSADQ] = k.DQ
		m[labelRSAQInv] = k.QInv
	}
	return cborcodec.Marshal(m)
}

func decodeRSA(m map[int64]cborcodec.RawMessage) (*RSAKey, error) {
	common, err := decodeCommon(m)
	if err != nil {
		return nil, err
	}

	readBytes := func(label int64, required bool) ([]byte, error) {
		raw, ok := m[label]
		if !ok {
			if required {
				return nil, &InvalidKeyFormatError{Reason: "RSA key missing required field"}
			}
			return nil, nil
		}
		var b []byte
		if err := cborcodec.Unmarshal(raw, &b); err != nil {
			return nil, &InvalidKeyFormatError{Reason: "RSA field is not a bstr"}
		}
		return b, nil
	}

	n, err := readBytes(labelRSAN, true)
	if err != nil {
		return nil, err
	}
	e, err := readBytes(labelRSAE, true)
	if err != nil {
		return nil, err
	}

	k := &RSAKey{Common: common, N: n, E: e}

	if _, hasD := m[labelRSAD]; hasD {
		if k.D, err = readBytes(labelRSAD, true); err != nil {
			return nil, err
		}
		if k.P, err = readBytes(labelRSAP, true); err != nil {
			return nil, err
		}
		if k.Q, err = readBytes(labelRSAQ, true); err != nil {
			return nil, err
		}
		if k.DP, err = readBytes(labelRSADP, true); err != nil {
			return nil, err
		}
		if k.DQ, err = readBytes(labelRSADQ, true); err != nil {
			return nil, err
		}
		if k.QInv, err = readBytes(labelRSAQInv, true); err != nil {
			return nil, err
		}
	}

	return k, nil
}

// PublicKey converts the RSA key's modulus/exponent to *rsa.PublicKey.
func (k *RSAKey) PublicKey() *rsa.PublicKey {
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(k.N),
		E: int(new(big.Int).SetBytes(k.E).Int64()),
	}
}

// PrivateKey converts the RSA key's CRT components to *rsa.PrivateKey.
func (k *RSAKey) PrivateKey() (*rsa.PrivateKey, error) {
	if k.D == nil {
		return nil, &InvalidKeyError{Reason: "RSA key has no private component"}
	}
	priv := &rsa.PrivateKey{
		PublicKey: *k.PublicKey(),
		D:         new(big.Int).SetBytes(k.D),
		Primes: []*big.Int{
			new(big.Int).SetBytes(k.P),
			new(big.Int).SetBytes(k.Q),
		},
	}
	priv.Precompute()
	return priv, nil
}

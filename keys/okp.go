package keys

import (
	"crypto/ecdh"
	"crypto/ed25519"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

const (
	labelOKPCrv = -1
	labelOKPX   = -2
	labelOKPD   = -4
)

// OKPKey is a COSE OKP key (kty=1): an octet-string key pair over Ed25519,
// Ed448, X25519, or X448.
type OKPKey struct {
	Common
	Crv algorithm.Curve
	X   []byte
	D   []byte // private, optional
}

// NewOKPKey validates and constructs an OKP key.
func NewOKPKey(crv algorithm.Curve, x, d []byte, opts ...func(*Common)) (*OKPKey, error) {
	n := crv.CoordLen()
	if n == 0 {
		return nil, &InvalidKeyFormatError{Reason: "unsupported OKP curve"}
	}
	if len(x) != n {
		return nil, &InvalidKeyFormatError{Reason: "x has wrong length for curve"}
	}
	if d != nil && len(d) != n {
		return nil, &InvalidKeyFormatError{Reason: "d has wrong length for curve"}
	}
	k := &OKPKey{Common: Common{Kty: algorithm.KeyTypeOKP}, Crv: crv, X: x, D: d}
	for _, opt := range opts {
		opt(&k.Common)
	}
	return k, nil
}

func (k *OKPKey) Type() algorithm.KeyType { return algorithm.KeyTypeOKP }
func (k *OKPKey) CommonParams() *Common   { return &k.Common }

func (k *OKPKey) MarshalCBOR() ([]byte, error) {
	m := map[int64]interface{}{}
	encodeCommon(m, &k.Common)
	m[labelOKPCrv] = crvToCBOR[k.Crv]
	m[labelOKPX] = k.X
	if k.D != nil {
		m[labelOKPD] = k.D
	}
	return cborcodec.Marshal(m)
}

func decodeOKP(m map[int64]cborcodec.RawMessage) (*OKPKey, error) {
	common, err := decodeCommon(m)
	if err != nil {
		return nil, err
	}

	crvRaw, ok := m[labelOKPCrv]
	if !ok {
		return nil, &InvalidKeyFormatError{Reason: "OKP key missing crv"}
	}
	var crvID int64
	if err := cborcodec.Unmarshal(crvRaw, &crvID); err != nil {
		return nil, &InvalidKeyFormatError{Reason: "crv is not an integer"}
	}
	crv, ok := cborToCrv[crvID]
	if !ok {
		return nil, &InvalidKeyFormatError{Reason: "unknown OKP curve"}
	}
	n := crv.CoordLen()

	xRaw, ok := m[labelOKPX]
	if !ok {
		return nil, &InvalidKeyFormatError{Reason: "OKP key missing x"}
	}
	var x []byte
	if err := cborcodec.Unmarshal(xRaw, &x); err != nil || len(x) != n {
		return nil, &InvalidKeyFormatError{Reason: "x has wrong length for curve"}
	}

	var d []byte
	if dRaw, ok := m[labelOKPD]; ok {
		if err := cborcodec.Unmarshal(dRaw, &d); err != nil || len(d) != n {
			return nil, &InvalidKeyFormatError{Reason: "d has wrong length for curve"}
		}
	}

	return &OKPKey{Common: common, Crv: crv, X: x, D: d}, nil
}

// PublicKey converts an Ed25519 OKP key's public bytes to ed25519.PublicKey.
func (k *OKPKey) PublicKey() (ed25519.PublicKey, error) {
	if k.Crv != algorithm.CurveEd25519 {
		return nil, &InvalidKeyError{Reason: "OKP key is not Ed25519"}
	}
	return ed25519.PublicKey(k.X), nil
}

// PrivateKey converts an Ed25519 OKP key's seed to ed25519.PrivateKey.
func (k *OKPKey) PrivateKey() (ed25519.PrivateKey, error) {
	if k.Crv != algorithm.CurveEd25519 {
		return nil, &InvalidKeyError{Reason: "OKP key is not Ed25519"}
	}
	if k.D == nil {
		return nil, &InvalidKeyError{Reason: "OKP key has no private component"}
	}
	return ed25519.NewKeyFromSeed(k.D), nil
}

// ECDHPublicKey converts an X25519 OKP key's public bytes to
// *ecdh.PublicKey, for ECDH-ES/SS recipient key agreement.
func (k *OKPKey) ECDHPublicKey() (*ecdh.PublicKey, error) {
	if k.Crv != algorithm.CurveX25519 {
		return nil, &InvalidKeyError{Reason: "OKP key is not X25519"}
	}
	return ecdh.X25519().NewPublicKey(k.X)
}

// ECDHPrivateKey converts an X25519 OKP key's private bytes to
// *ecdh.PrivateKey.
func (k *OKPKey) ECDHPrivateKey() (*ecdh.PrivateKey, error) {
	if k.Crv != algorithm.CurveX25519 {
		return nil, &InvalidKeyError{Reason: "OKP key is not X25519"}
	}
	if k.D == nil {
		return nil, &InvalidKeyError{Reason: "OKP key has no private component"}
	}
	return ecdh.X25519().NewPrivateKey(k.D)
}

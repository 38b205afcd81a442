package keys

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

const (
	labelEC2Crv = -1
	labelEC2X   = -2
	labelEC2Y   = -3
	labelEC2D   = -4
)

// EC2Key is a COSE EC2 key (kty=2): an elliptic-curve key pair over P-256,
// P-384, P-521, or secp256k1.
type EC2Key struct {
	Common
	Crv algorithm.Curve
	X   []byte
	Y   []byte
	D   []byte // private, optional
}

// NewEC2Key validates and constructs an EC2 key. Y may be nil for a
// private-only key material pair that never needs the public point, but
// peers generally expect it present.
func NewEC2Key(crv algorithm.Curve, x, y, d []byte, opts ...func(*Common)) (*EC2Key, error) {
	n := crv.CoordLen()
	if n == 0 {
		return nil, &InvalidKeyFormatError{Reason: "unsupported EC2 curve"}
	}
	if len(x) != n {
		return nil, &InvalidKeyFormatError{Reason: "x has wrong length for curve"}
	}
	if y != nil && len(y) != n {
		return nil, &InvalidKeyFormatError{Reason: "y has wrong length for curve"}
	}
	if d != nil && len(d) != n {
		return nil, &InvalidKeyFormatError{Reason: "d has wrong length for curve"}
	}
	k := &EC2Key{Common: Common{Kty: algorithm.KeyTypeEC2}, Crv: crv, X: x, Y: y, D: d}
	for _, opt := range opts {
		opt(&k.Common)
	}
	return k, nil
}

func (k *EC2Key) Type() algorithm.KeyType { return algorithm.KeyTypeEC2 }
func (k *EC2Key) CommonParams() *Common   { return &k.Common }

func (k *EC2Key) MarshalCBOR() ([]byte, error) {
	m := map[int64]interface{}{}
	encodeCommon(m, &k.Common)
	m[labelEC2Crv] = crvToCBOR[k.Crv]
	m[labelEC2X] = k.X
	if k.Y != nil {
		m[labelEC2Y] = k.Y
	}
	if k.D != nil {
		m[labelEC2D] = k.D
	}
	return cborcodec.Marshal(m)
}

var crvToCBOR = map[algorithm.Curve]int64{
	algorithm.CurveP256:      1,
	algorithm.CurveP384:      2,
	algorithm.CurveP521:      3,
	algorithm.CurveSecp256k1: 8,
	algorithm.CurveX25519:    4,
	algorithm.CurveX448:      5,
	algorithm.CurveEd25519:   6,
	algorithm.CurveEd448:     7,
}

var cborToCrv = map[int64]algorithm.Curve{
	1: algorithm.CurveP256,
	2: algorithm.CurveP384,
	3: algorithm.CurveP521,
	8: algorithm.CurveSecp256k1,
	4: algorithm.CurveX25519,
	5: algorithm.CurveX448,
	6: algorithm.CurveEd25519,
	7: algorithm.CurveEd448,
}

func decodeEC2(m map[int64]cborcodec.RawMessage) (*EC2Key, error) {
	common, err := decodeCommon(m)
	if err != nil {
		return nil, err
	}

	crvRaw, ok := m[labelEC2Crv]
	if !ok {
		return nil, &InvalidKeyFormatError{Reason: "EC2 key missing crv"}
	}
	var crvID int64
	if err := cborcodec.Unmarshal(crvRaw, &crvID); err != nil {
		return nil, &InvalidKeyFormatError{Reason: "crv is not an integer"}
	}
	crv, ok := cborToCrv[crvID]
	if !ok {
		return nil, &InvalidKeyFormatError{Reason: "unknown EC2 curve"}
	}
	n := crv.CoordLen()

	xRaw, ok := m[labelEC2X]
	if !ok {
		return nil, &InvalidKeyFormatError{Reason: "EC2 key missing x"}
	}
	var x []byte
	if err := cborcodec.Unmarshal(xRaw, &x); err != nil || len(x) != n {
		return nil, &InvalidKeyFormatError{Reason: "x has wrong length for curve"}
	}

	var y []byte
	if yRaw, ok := m[labelEC2Y]; ok {
		if err := cborcodec.Unmarshal(yRaw, &y); err != nil || len(y) != n {
			return nil, &InvalidKeyFormatError{Reason: "y has wrong length for curve"}
		}
	}

	var d []byte
	if dRaw, ok := m[labelEC2D]; ok {
		if err := cborcodec.Unmarshal(dRaw, &d); err != nil || len(d) != n {
			return nil, &InvalidKeyFormatError{Reason: "d has wrong length for curve"}
		}
	}

	return &EC2Key{Common: common, Crv: crv, X: x, Y: y, D: d}, nil
}

// ec2EllipticCurve returns the crypto/elliptic.Curve backing k.Crv, used by
// PublicKey/PrivateKey conversion. secp256k1.S256() satisfies the same
// elliptic.Curve interface as the stdlib NIST curves (decred's library is
// built specifically to drop into code written against crypto/elliptic), so
// ES256K reuses the generic ECDSA signer in internal/primitives rather than
// a dedicated one.
func ec2EllipticCurve(c algorithm.Curve) (elliptic.Curve, bool) {
	switch c {
	case algorithm.CurveP256:
		return elliptic.P256(), true
	case algorithm.CurveP384:
		return elliptic.P384(), true
	case algorithm.CurveP521:
		return elliptic.P521(), true
	case algorithm.CurveSecp256k1:
		return secp256k1.S256(), true
	default:
		return nil, false
	}
}

// PublicKey converts the EC2 key's public point to *ecdsa.PublicKey, for use
// with the ECDSA signature primitive.
func (k *EC2Key) PublicKey() (*ecdsa.PublicKey, error) {
	curve, ok := ec2EllipticCurve(k.Crv)
	if !ok {
		return nil, &InvalidKeyError{Reason: "EC2 key curve has no ECDSA binding"}
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(k.X),
		Y:     new(big.Int).SetBytes(k.Y),
	}, nil
}

// PrivateKey converts the EC2 key's private scalar to *ecdsa.PrivateKey.
func (k *EC2Key) PrivateKey() (*ecdsa.PrivateKey, error) {
	if k.D == nil {
		return nil, &InvalidKeyError{Reason: "EC2 key has no private component"}
	}
	pub, err := k.PublicKey()
	if err != nil {
		return nil, err
	}
	return &ecdsa.PrivateKey{
		PublicKey: *pub,
		D:         new(big.Int).SetBytes(k.D),
	}, nil
}

// ECDHPublicKey converts the EC2 key's public point to *ecdh.PublicKey, for
// ECDH-ES/SS recipient key agreement.
func (k *EC2Key) ECDHPublicKey() (*ecdh.PublicKey, error) {
	pub, err := k.PublicKey()
	if err != nil {
		return nil, err
	}
	ecdhPub, err := pub.ECDH()
	if err != nil {
		return nil, &InvalidKeyError{Reason: "EC2 public key is not on-curve for ECDH: " + err.Error()}
	}
	return ecdhPub, nil
}

// ECDHPrivateKey converts the EC2 key's private scalar to *ecdh.PrivateKey.
func (k *EC2Key) ECDHPrivateKey() (*ecdh.PrivateKey, error) {
	priv, err := k.PrivateKey()
	if err != nil {
		return nil, err
	}
	ecdhPriv, err := priv.ECDH()
	if err != nil {
		return nil, &InvalidKeyError{Reason: "EC2 private key is not valid for ECDH: " + err.Error()}
	}
	return ecdhPriv, nil
}

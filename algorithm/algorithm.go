// Package algorithm implements the COSE algorithm registry (spec §4.1): a
// closed mapping from the IANA COSE Algorithms registry's integer/text
// identifiers to a descriptor carrying everything a message operation needs
// to invoke the right primitive — key length, IV/nonce/tag length, hash,
// curve constraint, and the primitive binding itself.
package algorithm

import (
	"crypto"
	"crypto/ecdh"
	"fmt"

	"github.com/silvergate-labs/cose/internal/primitives"
)

// Kind classifies what an algorithm descriptor is used for.
type Kind int

const (
	KindInvalid Kind = iota
	KindAEAD
	KindMAC
	KindSignature
	KindKeyWrap
	KindKDF
	KindDirect
	KindDirectKeyAgreement
	KindKeyAgreementWithKeyWrap
)

// KeyType names the COSE key type (kty) an algorithm requires (spec §3
// "Key"). Defined here, rather than in package keys, so that both this
// package's descriptors and package keys's key variants can share one
// vocabulary without an import cycle (package keys imports package
// algorithm to run Key.Check, not the reverse).
type KeyType int

const (
	KeyTypeNone KeyType = iota
	KeyTypeSymmetric
	KeyTypeEC2
	KeyTypeOKP
	KeyTypeRSA
)

// Curve names the EC2/OKP curve an algorithm or key is constrained to.
type Curve int

const (
	CurveNone Curve = iota
	CurveP256
	CurveP384
	CurveP521
	CurveSecp256k1
	CurveEd25519
	CurveEd448
	CurveX25519
	CurveX448
)

// CoordLen returns the per-coordinate byte length for EC2/OKP curves (spec
// §4.3).
func (c Curve) CoordLen() int {
	switch c {
	case CurveP256, CurveSecp256k1:
		return 32
	case CurveP384:
		return 48
	case CurveP521:
		return 66
	case CurveEd25519, CurveX25519:
		return 32
	case CurveEd448, CurveX448:
		return 57
	default:
		return 0
	}
}

// Algorithm is a registered COSE algorithm descriptor.
type Algorithm struct {
	ID   int64
	Name string
	Kind Kind

	KeyLen   int // symmetric key length in bytes, 0 if not applicable
	NonceLen int // AEAD nonce length in bytes
	TagLen   int // AEAD/MAC tag length in bytes

	Hash    crypto.Hash
	HashID  primitives.HashID
	MGFHash crypto.Hash // RSA-OAEP only
	Salt    int         // RSA-PSS/OAEP salt length

	Curve Curve // EC-based algorithm/curve constraint, CurveNone if unconstrained

	// KeyType is the kty this algorithm requires of any key used with it.
	KeyType KeyType

	aead    primitives.AEAD
	mac     primitives.MAC
	signer  primitives.Signer
	keywrap primitives.KeyWrap
	kdf     primitives.KDF
}

// AEAD returns the AEAD primitive bound to this algorithm, or nil if this
// algorithm's Kind is not KindAEAD.
func (a *Algorithm) AEAD() primitives.AEAD { return a.aead }

// MAC returns the MAC primitive bound to this algorithm, or nil if this
// algorithm's Kind is not KindMAC.
func (a *Algorithm) MAC() primitives.MAC { return a.mac }

// Signer returns the signature primitive bound to this algorithm, or nil if
// this algorithm's Kind is not KindSignature.
func (a *Algorithm) Signer() primitives.Signer { return a.signer }

// KeyWrap returns the AES-KW primitive bound to this algorithm, or nil if
// this algorithm's Kind is not KindKeyWrap (or KindKeyAgreementWithKeyWrap).
func (a *Algorithm) KeyWrap() primitives.KeyWrap { return a.keywrap }

// KDF returns the KDF primitive bound to this algorithm, or nil if this
// algorithm's Kind does not involve key derivation.
func (a *Algorithm) KDF() primitives.KDF { return a.kdf }

// ECDHCurve returns the crypto/ecdh.Curve for this algorithm's curve
// constraint, for EC2 DirectKeyAgreement/KeyAgreementWithKeyWrap algorithms.
func (c Curve) ECDHCurve() (ecdh.Curve, bool) {
	switch c {
	case CurveP256:
		return ecdh.P256(), true
	case CurveP384:
		return ecdh.P384(), true
	case CurveP521:
		return ecdh.P521(), true
	case CurveX25519:
		return ecdh.X25519(), true
	default:
		return nil, false
	}
}

// UnknownAlgorithmError is returned by Lookup/LookupName for an identifier
// outside the closed registry.
type UnknownAlgorithmError struct {
	ID   int64
	Name string
}

func (e *UnknownAlgorithmError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("algorithm: unknown algorithm name %q", e.Name)
	}
	return fmt.Sprintf("algorithm: unknown algorithm id %d", e.ID)
}

// Lookup resolves a registry integer identifier to its descriptor.
func Lookup(id int64) (*Algorithm, error) {
	a, ok := byID[id]
	if !ok {
		return nil, &UnknownAlgorithmError{ID: id}
	}
	return a, nil
}

// LookupName resolves a registry text alias to its descriptor.
func LookupName(name string) (*Algorithm, error) {
	a, ok := byName[name]
	if !ok {
		return nil, &UnknownAlgorithmError{Name: name}
	}
	return a, nil
}

package primitives

import (
	"context"
	"crypto/ecdh"
	"fmt"
)

// X25519 implements ECDH agreement via the standard library's crypto/ecdh,
// whose *PrivateKey/*PublicKey ECDH() method is curve-agnostic: it agrees
// identically whether the underlying curve is Curve25519 or a NIST P-curve.
// EC2 recipients go through EC2Key.ECDHPrivateKey/ECDHPublicKey to reach the
// same *ecdh.PrivateKey/*ecdh.PublicKey shape, so one binding here covers
// every ECDH-ES/ECDH-SS recipient regardless of key type. secp256k1 is never
// a party to ECDH in COSE (it is signature-only, ES256K), so it has no
// binding here.
type X25519 struct{}

// NewX25519 returns the X25519 ECDH binding.
func NewX25519() *X25519 { return &X25519{} }

func (x *X25519) Agree(ctx context.Context, priv, pub interface{}) ([]byte, error) {
	ecdhPriv, ok := priv.(*ecdh.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("primitives: X25519 agree requires *ecdh.PrivateKey")
	}
	ecdhPub, ok := pub.(*ecdh.PublicKey)
	if !ok {
		return nil, fmt.Errorf("primitives: X25519 agree requires *ecdh.PublicKey")
	}
	return ecdhPriv.ECDH(ecdhPub)
}

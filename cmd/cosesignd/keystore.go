// Copyright (c) 2021 ubirch GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/keys"
)

// KeyEncrypter seals/opens the CBOR-encoded COSE_Key bytes that get
// written to the private_key column, using NaCl secretbox (XSalsa20 +
// Poly1305) keyed by the server's 32 byte secret. The nonce is generated
// fresh per Encrypt call and prepended to the ciphertext.
type KeyEncrypter struct {
	secret [32]byte
}

func NewKeyEncrypter(secret []byte) (*KeyEncrypter, error) {
	if len(secret) != secretLength {
		return nil, fmt.Errorf("key encryption secret must be %d bytes", secretLength)
	}
	var k KeyEncrypter
	copy(k.secret[:], secret)
	return &k, nil
}

func (k *KeyEncrypter) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %v", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &k.secret), nil
}

func (k *KeyEncrypter) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, fmt.Errorf("sealed private key too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &k.secret)
	if !ok {
		return nil, fmt.Errorf("decrypting private key failed: authentication mismatch")
	}
	return plaintext, nil
}

// GenerateIdentityKey creates a fresh COSE key pair for algName (an IANA
// COSE algorithm name, e.g. "ES256" or "EdDSA"), returning the private and
// public halves as separate keys.Key values so the public half can be
// handed out without the private scalar.
func GenerateIdentityKey(algName string) (priv, pub keys.Key, err error) {
	alg, err := algorithm.LookupName(algName)
	if err != nil {
		return nil, nil, err
	}

	switch alg.KeyType {
	case algorithm.KeyTypeEC2:
		curve, ok := ec2EllipticCurveFor(alg.Curve)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported EC2 curve for algorithm %s", algName)
		}
		sk, err := ecdsa.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("generating EC2 key: %v", err)
		}
		n := alg.Curve.CoordLen()
		x := leftPad(sk.X.Bytes(), n)
		y := leftPad(sk.Y.Bytes(), n)
		d := leftPad(sk.D.Bytes(), n)

		priv, err = keys.NewEC2Key(alg.Curve, x, y, d)
		if err != nil {
			return nil, nil, err
		}
		pub, err = keys.NewEC2Key(alg.Curve, x, y, nil)
		if err != nil {
			return nil, nil, err
		}
		return priv, pub, nil

	case algorithm.KeyTypeOKP:
		pubBytes, privBytes, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("generating OKP key: %v", err)
		}
		// ed25519.PrivateKey is the 32 byte seed followed by the public key;
		// COSE OKP's d is the seed alone (RFC 8152 §8.2).
		seed := privBytes.Seed()
		priv, err = keys.NewOKPKey(alg.Curve, []byte(pubBytes), seed)
		if err != nil {
			return nil, nil, err
		}
		pub, err = keys.NewOKPKey(alg.Curve, []byte(pubBytes), nil)
		if err != nil {
			return nil, nil, err
		}
		return priv, pub, nil

	case algorithm.KeyTypeRSA:
		bits := rsaKeyBitsFor(algName)
		sk, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, nil, fmt.Errorf("generating RSA key: %v", err)
		}
		sk.Precompute()

		n := sk.PublicKey.N.Bytes()
		e := big.NewInt(int64(sk.PublicKey.E)).Bytes()

		pub, err = keys.NewRSAKey(n, e)
		if err != nil {
			return nil, nil, err
		}

		privKey, err := keys.NewRSAKey(n, e)
		if err != nil {
			return nil, nil, err
		}
		privKey.D = sk.D.Bytes()
		privKey.P = sk.Primes[0].Bytes()
		privKey.Q = sk.Primes[1].Bytes()
		privKey.DP = sk.Precomputed.Dp.Bytes()
		privKey.DQ = sk.Precomputed.Dq.Bytes()
		privKey.QInv = sk.Precomputed.Qinv.Bytes()
		priv = privKey

		return priv, pub, nil

	default:
		return nil, nil, fmt.Errorf("algorithm %s has no supported key generation path", algName)
	}
}

// rsaKeyBitsFor picks a modulus size for a newly registered RSA identity,
// scaling with the algorithm's hash so PS512/RS512 identities aren't backed
// by a modulus too small to make the larger hash meaningful.
func rsaKeyBitsFor(algName string) int {
	switch algName {
	case "PS384", "RS384":
		return 3072
	case "PS512", "RS512":
		return 4096
	default:
		return 2048
	}
}

func ec2EllipticCurveFor(c algorithm.Curve) (elliptic.Curve, bool) {
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

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

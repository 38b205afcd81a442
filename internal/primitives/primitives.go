// Package primitives defines the narrow interfaces the COSE core consumes
// for raw cryptographic operations (spec §6 "Primitive adapters"), plus the
// default bindings onto Go's standard crypto packages and the wider
// ecosystem for algorithms the standard library doesn't cover (ChaCha20-
// Poly1305, HKDF). The core never reaches into crypto/* directly — it calls
// through these interfaces so a caller can substitute an HSM-backed or
// side-channel-hardened implementation without touching message code.
package primitives

import "context"

// AEAD binds an authenticated-encryption primitive (AES-GCM, AES-CCM,
// ChaCha20-Poly1305) to fixed key/nonce/tag lengths.
type AEAD interface {
	KeyLen() int
	NonceLen() int
	TagLen() int
	Encrypt(key, nonce, aad, plaintext []byte) (ciphertext []byte, err error)
	Decrypt(key, nonce, aad, ciphertext []byte) (plaintext []byte, err error)
}

// MAC binds a message-authentication primitive (HMAC, AES-CBC-MAC).
type MAC interface {
	TagLen() int
	Tag(key, msg []byte) ([]byte, error)
	Verify(key, msg, tag []byte) (bool, error)
}

// Signer binds a digital-signature primitive (ECDSA, EdDSA, RSA-PSS,
// RSA-PKCS#1v1.5).
type Signer interface {
	Sign(key interface{}, msg []byte) ([]byte, error)
	Verify(key interface{}, msg, sig []byte) (bool, error)
}

// KeyWrap binds AES-KW (RFC 3394).
type KeyWrap interface {
	Wrap(kek, cek []byte) (wrapped []byte, err error)
	Unwrap(kek, wrapped []byte) (cek []byte, err error)
}

// KDF binds an HKDF-style key-derivation primitive.
type KDF interface {
	Derive(hashID HashID, ikm, salt, info []byte, length int) ([]byte, error)
}

// ECDH binds elliptic-curve Diffie-Hellman agreement over EC2 (P-256/P-384/
// P-521) or OKP X25519 keys. X448 has no binding.
type ECDH interface {
	Agree(ctx context.Context, priv, pub interface{}) (sharedSecret []byte, err error)
}

// RNG is the injected random-byte source. Encrypt0.Encrypt calls it at most
// once, to generate an IV; Mac0 never calls it. Mac.Protect and
// Encrypt.Protect call it once for a shared CEK (KeyWrap and
// KeyAgreementWithKeyWrap recipients) and again while generating each
// ECDH-ES ephemeral key, and Encrypt.Protect once more for a generated IV,
// so those two can make several calls per operation.
type RNG interface {
	Fill(buf []byte) error
}

// HashID names a hash function without importing crypto/* into the
// algorithm registry; primitive implementations map it to a concrete
// crypto.Hash.
type HashID int

const (
	HashInvalid HashID = iota
	HashSHA256
	HashSHA384
	HashSHA512
)

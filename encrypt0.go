package cose

import (
	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/cborcodec"
	"github.com/silvergate-labs/cose/internal/primitives"
	"github.com/silvergate-labs/cose/keys"
)

// Encrypt0 is a COSE_Encrypt0 message: ciphertext with the content key
// shared out-of-band rather than via the recipient tree (spec §4.3
// "Encrypt0"), tag 16.
type Encrypt0 struct {
	Headers    *headers.Bucket
	Ciphertext []byte
}

// NewEncrypt0 returns a fresh Encrypt0 with empty header buckets.
func NewEncrypt0() *Encrypt0 {
	return &Encrypt0{Headers: headers.New()}
}

func requireAEADAlg(alg *algorithm.Algorithm) error {
	if alg.Kind != algorithm.KindAEAD {
		return newErr(KindInvalidAlgorithm, "alg "+alg.Name+" is not an AEAD algorithm", nil)
	}
	return nil
}

// Encrypt derives the nonce (generating one if neither IV nor partial_IV is
// already set) and seals payload.
func (m *Encrypt0) Encrypt(key keys.Key, payload, externalAAD []byte, rng primitives.RNG) error {
	if payload == nil {
		return newErr(KindMalformedMessage, "Encrypt0 requires a payload", nil)
	}
	alg, err := m.Headers.Alg()
	if err != nil {
		return newErr(KindInvalidAlgorithm, "Encrypt0 missing alg", err)
	}
	if err := requireAEADAlg(alg); err != nil {
		return err
	}
	if err := keys.Check(key, keys.OpEncrypt, alg); err != nil {
		return newErr(KindInvalidKey, "key not usable for encryption", err)
	}

	nonce, err := resolveOrGenerateNonce(m.Headers, key.CommonParams().BaseIV, alg.NonceLen, rng)
	if err != nil {
		return err
	}
	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return newErr(KindCryptoBackend, "encoding protected header", err)
	}
	aad, err := encStructure(contextEncrypt0, protectedBytes, externalAAD)
	if err != nil {
		return newErr(KindCryptoBackend, "building Enc_structure", err)
	}

	k, err := symmetricKeyBytes(key)
	if err != nil {
		return err
	}
	ct, err := alg.AEAD().Encrypt(k, nonce, aad, payload)
	if err != nil {
		return newErr(KindCryptoBackend, "AEAD primitive", err)
	}

	m.Ciphertext = ct
	return nil
}

// Decrypt recovers the plaintext payload. Authentication failure is
// reported as KindDecryptionFailure.
func (m *Encrypt0) Decrypt(key keys.Key, externalAAD []byte) ([]byte, error) {
	alg, err := m.Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "Encrypt0 missing alg", err)
	}
	if err := requireAEADAlg(alg); err != nil {
		return nil, err
	}
	if err := keys.Check(key, keys.OpDecrypt, alg); err != nil {
		return nil, newErr(KindInvalidKey, "key not usable for decryption", err)
	}

	nonce, err := effectiveNonce(m.Headers, key.CommonParams().BaseIV, alg.NonceLen)
	if err != nil {
		return nil, err
	}
	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	aad, err := encStructure(contextEncrypt0, protectedBytes, externalAAD)
	if err != nil {
		return nil, newErr(KindCryptoBackend, "building Enc_structure", err)
	}

	k, err := symmetricKeyBytes(key)
	if err != nil {
		return nil, err
	}
	pt, err := alg.AEAD().Decrypt(k, nonce, aad, m.Ciphertext)
	if err != nil {
		return nil, newErr(KindDecryptionFailure, "AEAD authentication failed", err)
	}
	return pt, nil
}

// Marshal encodes the Encrypt0 array [protected, unprotected, ciphertext],
// optionally wrapped in tag 16.
func (m *Encrypt0) Marshal(attachTag bool) ([]byte, error) {
	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	unprotected, err := m.Headers.MarshalUnprotected()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding unprotected header", err)
	}
	arr := []interface{}{cborcodec.RawMessage(protectedBytes), unprotected, m.Ciphertext}
	if attachTag {
		return cborcodec.Marshal(cborcodec.Tag{Number: TagEncrypt0, Content: arr})
	}
	return cborcodec.Marshal(arr)
}

// ParseEncrypt0 decodes an untagged COSE_Encrypt0 array.
func ParseEncrypt0(raw []byte) (*Encrypt0, error) {
	var arr []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &arr); err != nil {
		return nil, newErr(KindMalformedMessage, "decoding Encrypt0 array", err)
	}
	if len(arr) != 3 {
		return nil, newErr(KindMalformedMessage, "Encrypt0 array must have 3 elements", nil)
	}

	var protectedBytes []byte
	if err := cborcodec.Unmarshal(arr[0], &protectedBytes); err != nil {
		return nil, newErr(KindMalformedMessage, "Encrypt0 protected field is not a bstr", err)
	}
	bucket, err := decodeBucket(protectedBytes, arr[1])
	if err != nil {
		return nil, err
	}

	var ciphertext []byte
	if err := cborcodec.Unmarshal(arr[2], &ciphertext); err != nil {
		return nil, newErr(KindMalformedMessage, "Encrypt0 ciphertext field is not a bstr", err)
	}

	return &Encrypt0{Headers: bucket, Ciphertext: ciphertext}, nil
}

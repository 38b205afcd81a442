package cose

import (
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/cborcodec"
	"github.com/silvergate-labs/cose/internal/primitives"
	"github.com/silvergate-labs/cose/keys"
)

// Encrypt is a COSE_Encrypt message: ciphertext whose CEK is distributed to
// one or more recipients via the recipient tree (spec §4.3 "Encrypt", §4.7),
// tag 96.
type Encrypt struct {
	Headers    *headers.Bucket
	Ciphertext []byte
	Recipients []*Recipient
}

// NewEncrypt returns a fresh Encrypt with empty header buckets and no
// recipients.
func NewEncrypt() *Encrypt {
	return &Encrypt{Headers: headers.New()}
}

// Protect derives the message CEK across recipients (spec §4.7, same rule
// as Mac.Protect), encrypts payload, and populates
// m.Recipients/Ciphertext. It returns the derived CEK.
func (m *Encrypt) Protect(recipients []*Recipient, recipientKeys []keys.Key, opts []SealOptions, payload, externalAAD []byte, rng primitives.RNG) ([]byte, error) {
	if payload == nil {
		return nil, newErr(KindMalformedMessage, "Encrypt requires a payload", nil)
	}
	if len(recipients) != len(recipientKeys) || len(recipients) != len(opts) {
		return nil, newErr(KindMalformedMessage, "recipients/keys/opts length mismatch", nil)
	}
	targetAlg, err := m.Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "Encrypt missing alg", err)
	}
	if err := requireAEADAlg(targetAlg); err != nil {
		return nil, err
	}
	if err := checkRecipientMix(recipients); err != nil {
		return nil, err
	}

	cek, err := sealRecipients(recipients, recipientKeys, opts, targetAlg, rng)
	if err != nil {
		return nil, err
	}

	nonce, err := resolveOrGenerateNonce(m.Headers, nil, targetAlg.NonceLen, rng)
	if err != nil {
		return nil, err
	}
	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	aad, err := encStructure(contextEncrypt, protectedBytes, externalAAD)
	if err != nil {
		return nil, newErr(KindCryptoBackend, "building Enc_structure", err)
	}
	ct, err := targetAlg.AEAD().Encrypt(cek, nonce, aad, payload)
	if err != nil {
		return nil, newErr(KindCryptoBackend, "AEAD primitive", err)
	}

	m.Recipients = recipients
	m.Ciphertext = ct
	return cek, nil
}

// Unprotect recovers the CEK from m.Recipients[idx] using the caller's key.
func (m *Encrypt) Unprotect(idx int, key keys.Key, opts OpenOptions) ([]byte, error) {
	if idx < 0 || idx >= len(m.Recipients) {
		return nil, newErr(KindMalformedMessage, "recipient index out of range", nil)
	}
	targetAlg, err := m.Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "Encrypt missing alg", err)
	}
	return m.Recipients[idx].Open(key, targetAlg, opts)
}

// Decrypt recovers the plaintext given the CEK recovered via Unprotect.
func (m *Encrypt) Decrypt(cek, externalAAD []byte) ([]byte, error) {
	targetAlg, err := m.Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "Encrypt missing alg", err)
	}
	if err := requireAEADAlg(targetAlg); err != nil {
		return nil, err
	}
	nonce, err := effectiveNonce(m.Headers, nil, targetAlg.NonceLen)
	if err != nil {
		return nil, err
	}
	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	aad, err := encStructure(contextEncrypt, protectedBytes, externalAAD)
	if err != nil {
		return nil, newErr(KindCryptoBackend, "building Enc_structure", err)
	}
	pt, err := targetAlg.AEAD().Decrypt(cek, nonce, aad, m.Ciphertext)
	if err != nil {
		return nil, newErr(KindDecryptionFailure, "AEAD authentication failed", err)
	}
	return pt, nil
}

// Marshal encodes the Encrypt array [protected, unprotected, ciphertext,
// recipients], optionally wrapped in tag 96.
func (m *Encrypt) Marshal(attachTag bool) ([]byte, error) {
	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	unprotected, err := m.Headers.MarshalUnprotected()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding unprotected header", err)
	}

	recipients := make([]interface{}, len(m.Recipients))
	for i, r := range m.Recipients {
		arr, err := r.encodeArray()
		if err != nil {
			return nil, err
		}
		recipients[i] = arr
	}

	arr := []interface{}{cborcodec.RawMessage(protectedBytes), unprotected, m.Ciphertext, recipients}
	if attachTag {
		return cborcodec.Marshal(cborcodec.Tag{Number: TagEncrypt, Content: arr})
	}
	return cborcodec.Marshal(arr)
}

// ParseEncrypt decodes an untagged COSE_Encrypt array.
func ParseEncrypt(raw []byte) (*Encrypt, error) {
	var arr []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &arr); err != nil {
		return nil, newErr(KindMalformedMessage, "decoding Encrypt array", err)
	}
	if len(arr) != 4 {
		return nil, newErr(KindMalformedMessage, "Encrypt array must have 4 elements", nil)
	}

	var protectedBytes []byte
	if err := cborcodec.Unmarshal(arr[0], &protectedBytes); err != nil {
		return nil, newErr(KindMalformedMessage, "Encrypt protected field is not a bstr", err)
	}
	bucket, err := decodeBucket(protectedBytes, arr[1])
	if err != nil {
		return nil, err
	}

	var ciphertext []byte
	if err := cborcodec.Unmarshal(arr[2], &ciphertext); err != nil {
		return nil, newErr(KindMalformedMessage, "Encrypt ciphertext field is not a bstr", err)
	}

	var recipientArrays []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(arr[3], &recipientArrays); err != nil {
		return nil, newErr(KindMalformedMessage, "Encrypt recipients field is not an array", err)
	}

	m := &Encrypt{Headers: bucket, Ciphertext: ciphertext}
	for _, ra := range recipientArrays {
		var elems []cborcodec.RawMessage
		if err := cborcodec.Unmarshal(ra, &elems); err != nil {
			return nil, newErr(KindMalformedMessage, "recipient is not an array", err)
		}
		r, err := parseRecipientElements(elems)
		if err != nil {
			return nil, err
		}
		m.Recipients = append(m.Recipients, r)
	}
	return m, nil
}

package cose

import (
	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/cborcodec"
	"github.com/silvergate-labs/cose/keys"
)

// Sign1 is a COSE_Sign1 message: a single-signer signed message, tag 18
// (spec §4.3 "Sign1").
type Sign1 struct {
	Headers   *headers.Bucket
	Payload   []byte // nil means detached content
	Signature []byte
}

// NewSign1 returns a fresh, unsigned Sign1 with empty header buckets.
func NewSign1() *Sign1 {
	return &Sign1{Headers: headers.New()}
}

func requireSignatureAlg(alg *algorithm.Algorithm) error {
	if alg.Kind != algorithm.KindSignature {
		return newErr(KindInvalidAlgorithm, "alg "+alg.Name+" is not a signature algorithm", nil)
	}
	return nil
}

// Sign computes the signature over payload (and freezes the protected
// bucket bytes). A nil payload is rejected — Sign1 has no detached-sign
// operation; construct Payload before signing.
func (m *Sign1) Sign(key keys.Key, payload, externalAAD []byte) error {
	if payload == nil {
		return newErr(KindMalformedMessage, "Sign1 requires a payload", nil)
	}
	alg, err := m.Headers.Alg()
	if err != nil {
		return newErr(KindInvalidAlgorithm, "Sign1 missing alg", err)
	}
	if err := requireSignatureAlg(alg); err != nil {
		return err
	}
	if err := keys.Check(key, keys.OpSign, alg); err != nil {
		return newErr(KindInvalidKey, "key not usable for signing", err)
	}

	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return newErr(KindCryptoBackend, "encoding protected header", err)
	}
	tbs, err := sigStructure(contextSignature1, protectedBytes, nil, externalAAD, payload)
	if err != nil {
		return newErr(KindCryptoBackend, "building Sig_structure", err)
	}

	priv, err := signingKey(key)
	if err != nil {
		return err
	}
	sig, err := alg.Signer().Sign(priv, tbs)
	if err != nil {
		return newErr(KindCryptoBackend, "signature primitive", err)
	}

	m.Payload = payload
	m.Signature = sig
	return nil
}

// Verify checks the signature over the message's own payload.
func (m *Sign1) Verify(key keys.Key, externalAAD []byte) (bool, error) {
	return m.verify(key, m.Payload, externalAAD)
}

// VerifyDetached checks the signature against a caller-supplied payload,
// for a message whose Payload is absent (detached content, spec §9).
func (m *Sign1) VerifyDetached(key keys.Key, payload, externalAAD []byte) (bool, error) {
	return m.verify(key, payload, externalAAD)
}

func (m *Sign1) verify(key keys.Key, payload, externalAAD []byte) (bool, error) {
	if payload == nil {
		return false, newErr(KindMalformedMessage, "no payload to verify; use VerifyDetached", nil)
	}
	alg, err := m.Headers.Alg()
	if err != nil {
		return false, newErr(KindInvalidAlgorithm, "Sign1 missing alg", err)
	}
	if err := requireSignatureAlg(alg); err != nil {
		return false, err
	}
	if err := keys.Check(key, keys.OpVerify, alg); err != nil {
		return false, newErr(KindInvalidKey, "key not usable for verification", err)
	}

	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return false, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	tbs, err := sigStructure(contextSignature1, protectedBytes, nil, externalAAD, payload)
	if err != nil {
		return false, newErr(KindCryptoBackend, "building Sig_structure", err)
	}

	pub, err := verifyingKey(key)
	if err != nil {
		return false, err
	}
	ok, err := alg.Signer().Verify(pub, tbs, m.Signature)
	if err != nil {
		return false, newErr(KindCryptoBackend, "signature primitive", err)
	}
	if !ok {
		return false, newErr(KindVerificationFailure, "signature did not verify", nil)
	}
	return true, nil
}

// Marshal encodes the Sign1 array [protected, unprotected, payload,
// signature], optionally wrapped in tag 18.
func (m *Sign1) Marshal(attachTag bool) ([]byte, error) {
	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	unprotected, err := m.Headers.MarshalUnprotected()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding unprotected header", err)
	}
	var payload interface{}
	if m.Payload != nil {
		payload = m.Payload
	}
	arr := []interface{}{cborcodec.RawMessage(protectedBytes), unprotected, payload, m.Signature}
	if attachTag {
		return cborcodec.Marshal(cborcodec.Tag{Number: TagSign1, Content: arr})
	}
	return cborcodec.Marshal(arr)
}

// ParseSign1 decodes an untagged COSE_Sign1 array.
func ParseSign1(raw []byte) (*Sign1, error) {
	var arr []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &arr); err != nil {
		return nil, newErr(KindMalformedMessage, "decoding Sign1 array", err)
	}
	if len(arr) != 4 {
		return nil, newErr(KindMalformedMessage, "Sign1 array must have 4 elements", nil)
	}

	var protectedBytes []byte
	if err := cborcodec.Unmarshal(arr[0], &protectedBytes); err != nil {
		return nil, newErr(KindMalformedMessage, "Sign1 protected field is not a bstr", err)
	}
	bucket, err := decodeBucket(protectedBytes, arr[1])
	if err != nil {
		return nil, err
	}

	var payload []byte
	hasPayload, err := decodeOptionalBstr(arr[2], &payload)
	if err != nil {
		return nil, newErr(KindMalformedMessage, "Sign1 payload field malformed", err)
	}

	var sig []byte
	if err := cborcodec.Unmarshal(arr[3], &sig); err != nil {
		return nil, newErr(KindMalformedMessage, "Sign1 signature field is not a bstr", err)
	}

	m := &Sign1{Headers: bucket, Signature: sig}
	if hasPayload {
		m.Payload = payload
	}
	return m, nil
}

// decodeOptionalBstr unmarshals raw into *out unless raw encodes CBOR null,
// in which case it reports false and leaves *out untouched (detached
// payload, spec §9).
func decodeOptionalBstr(raw cborcodec.RawMessage, out *[]byte) (bool, error) {
	var probe interface{}
	if err := cborcodec.Unmarshal(raw, &probe); err != nil {
		return false, err
	}
	if probe == nil {
		return false, nil
	}
	if err := cborcodec.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

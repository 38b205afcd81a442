package cose

import (
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/cborcodec"
	"github.com/silvergate-labs/cose/keys"
)

// Signer is one signer entry of a COSE_Sign message: its own header
// buckets and signature bytes (spec §4.3 "Sign").
type Signer struct {
	Headers   *headers.Bucket
	Signature []byte
}

// NewSigner returns a fresh Signer entry with empty header buckets.
func NewSigner() *Signer { return &Signer{Headers: headers.New()} }

// Sign is a COSE_Sign message: a payload signed by one or more independent
// signers, tag 98.
type Sign struct {
	Headers *headers.Bucket
	Payload []byte // nil means detached content
	Signers []*Signer
}

// NewSign returns a fresh Sign message with empty header buckets and no
// signers yet.
func NewSign() *Sign {
	return &Sign{Headers: headers.New()}
}

// AddSigner computes signer's signature over the message's current Payload
// and appends it to m.Signers. m.Payload must be set first (Sign has no
// per-signer payload). Sig_structure uses context "Signature", including
// both body_protected and this signer's sign_protected bytes.
func (m *Sign) AddSigner(signer *Signer, key keys.Key, externalAAD []byte) error {
	if m.Payload == nil {
		return newErr(KindMalformedMessage, "Sign requires a payload before adding signers", nil)
	}
	alg, err := signer.Headers.Alg()
	if err != nil {
		return newErr(KindInvalidAlgorithm, "signer missing alg", err)
	}
	if err := requireSignatureAlg(alg); err != nil {
		return err
	}
	if err := keys.Check(key, keys.OpSign, alg); err != nil {
		return newErr(KindInvalidKey, "key not usable for signing", err)
	}

	bodyProtected, err := m.Headers.ProtectedBytes()
	if err != nil {
		return newErr(KindCryptoBackend, "encoding body protected header", err)
	}
	signProtected, err := signer.Headers.ProtectedBytes()
	if err != nil {
		return newErr(KindCryptoBackend, "encoding signer protected header", err)
	}
	tbs, err := sigStructure(contextSignature, bodyProtected, signProtected, externalAAD, m.Payload)
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

	signer.Signature = sig
	m.Signers = append(m.Signers, signer)
	return nil
}

// VerifySigner checks the idx'th signer's signature against the message's
// own payload.
func (m *Sign) VerifySigner(idx int, key keys.Key, externalAAD []byte) (bool, error) {
	return m.verifySigner(idx, key, m.Payload, externalAAD)
}

// VerifySignerDetached checks the idx'th signer's signature against a
// caller-supplied payload (detached content, spec §9).
func (m *Sign) VerifySignerDetached(idx int, key keys.Key, payload, externalAAD []byte) (bool, error) {
	return m.verifySigner(idx, key, payload, externalAAD)
}

func (m *Sign) verifySigner(idx int, key keys.Key, payload, externalAAD []byte) (bool, error) {
	if idx < 0 || idx >= len(m.Signers) {
		return false, newErr(KindMalformedMessage, "signer index out of range", nil)
	}
	if payload == nil {
		return false, newErr(KindMalformedMessage, "no payload to verify; use VerifySignerDetached", nil)
	}
	signer := m.Signers[idx]
	alg, err := signer.Headers.Alg()
	if err != nil {
		return false, newErr(KindInvalidAlgorithm, "signer missing alg", err)
	}
	if err := requireSignatureAlg(alg); err != nil {
		return false, err
	}
	if err := keys.Check(key, keys.OpVerify, alg); err != nil {
		return false, newErr(KindInvalidKey, "key not usable for verification", err)
	}

	bodyProtected, err := m.Headers.ProtectedBytes()
	if err != nil {
		return false, newErr(KindCryptoBackend, "encoding body protected header", err)
	}
	signProtected, err := signer.Headers.ProtectedBytes()
	if err != nil {
		return false, newErr(KindCryptoBackend, "encoding signer protected header", err)
	}
	tbs, err := sigStructure(contextSignature, bodyProtected, signProtected, externalAAD, payload)
	if err != nil {
		return false, newErr(KindCryptoBackend, "building Sig_structure", err)
	}

	pub, err := verifyingKey(key)
	if err != nil {
		return false, err
	}
	ok, err := alg.Signer().Verify(pub, tbs, signer.Signature)
	if err != nil {
		return false, newErr(KindCryptoBackend, "signature primitive", err)
	}
	if !ok {
		return false, newErr(KindVerificationFailure, "signature did not verify", nil)
	}
	return true, nil
}

// Marshal encodes the Sign array [protected, unprotected, payload,
// [[sprotected, sunprotected, signature], ...]], optionally wrapped in tag
// 98.
func (m *Sign) Marshal(attachTag bool) ([]byte, error) {
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

	signers := make([]interface{}, len(m.Signers))
	for i, s := range m.Signers {
		sProtected, err := s.Headers.ProtectedBytes()
		if err != nil {
			return nil, newErr(KindCryptoBackend, "encoding signer protected header", err)
		}
		sUnprotected, err := s.Headers.MarshalUnprotected()
		if err != nil {
			return nil, newErr(KindCryptoBackend, "encoding signer unprotected header", err)
		}
		signers[i] = []interface{}{cborcodec.RawMessage(sProtected), sUnprotected, s.Signature}
	}

	arr := []interface{}{cborcodec.RawMessage(protectedBytes), unprotected, payload, signers}
	if attachTag {
		return cborcodec.Marshal(cborcodec.Tag{Number: TagSign, Content: arr})
	}
	return cborcodec.Marshal(arr)
}

// ParseSign decodes an untagged COSE_Sign array.
func ParseSign(raw []byte) (*Sign, error) {
	var arr []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &arr); err != nil {
		return nil, newErr(KindMalformedMessage, "decoding Sign array", err)
	}
	if len(arr) != 4 {
		return nil, newErr(KindMalformedMessage, "Sign array must have 4 elements", nil)
	}

	var protectedBytes []byte
	if err := cborcodec.Unmarshal(arr[0], &protectedBytes); err != nil {
		return nil, newErr(KindMalformedMessage, "Sign protected field is not a bstr", err)
	}
	bucket, err := decodeBucket(protectedBytes, arr[1])
	if err != nil {
		return nil, err
	}

	var payload []byte
	hasPayload, err := decodeOptionalBstr(arr[2], &payload)
	if err != nil {
		return nil, newErr(KindMalformedMessage, "Sign payload field malformed", err)
	}

	var signerArrays []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(arr[3], &signerArrays); err != nil {
		return nil, newErr(KindMalformedMessage, "Sign signers field is not an array", err)
	}

	m := &Sign{Headers: bucket}
	if hasPayload {
		m.Payload = payload
	}

	for _, sa := range signerArrays {
		var elems []cborcodec.RawMessage
		if err := cborcodec.Unmarshal(sa, &elems); err != nil {
			return nil, newErr(KindMalformedMessage, "signer entry is not an array", err)
		}
		if len(elems) != 3 {
			return nil, newErr(KindMalformedMessage, "signer array must have 3 elements", nil)
		}
		var sProtectedBytes []byte
		if err := cborcodec.Unmarshal(elems[0], &sProtectedBytes); err != nil {
			return nil, newErr(KindMalformedMessage, "signer protected field is not a bstr", err)
		}
		sBucket, err := decodeBucket(sProtectedBytes, elems[1])
		if err != nil {
			return nil, err
		}
		var sig []byte
		if err := cborcodec.Unmarshal(elems[2], &sig); err != nil {
			return nil, newErr(KindMalformedMessage, "signer signature field is not a bstr", err)
		}
		m.Signers = append(m.Signers, &Signer{Headers: sBucket, Signature: sig})
	}

	return m, nil
}

package cose

import (
	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/cborcodec"
	"github.com/silvergate-labs/cose/keys"
)

// Mac0 is a COSE_Mac0 message: a single-recipient MAC with the recipient
// implied by a shared key rather than the recipient tree, tag 17 (spec
// §4.3 "Mac0").
type Mac0 struct {
	Headers *headers.Bucket
	Payload []byte // nil means detached content
	Tag     []byte
}

// NewMac0 returns a fresh Mac0 with empty header buckets.
func NewMac0() *Mac0 {
	return &Mac0{Headers: headers.New()}
}

func requireMACAlg(alg *algorithm.Algorithm) error {
	if alg.Kind != algorithm.KindMAC {
		return newErr(KindInvalidAlgorithm, "alg "+alg.Name+" is not a MAC algorithm", nil)
	}
	return nil
}

// ComputeTag computes the MAC over payload.
func (m *Mac0) ComputeTag(key keys.Key, payload, externalAAD []byte) error {
	if payload == nil {
		return newErr(KindMalformedMessage, "Mac0 requires a payload", nil)
	}
	alg, err := m.Headers.Alg()
	if err != nil {
		return newErr(KindInvalidAlgorithm, "Mac0 missing alg", err)
	}
	if err := requireMACAlg(alg); err != nil {
		return err
	}
	if err := keys.Check(key, keys.OpMACCreate, alg); err != nil {
		return newErr(KindInvalidKey, "key not usable for MAC", err)
	}

	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return newErr(KindCryptoBackend, "encoding protected header", err)
	}
	msg, err := macStructure(contextMAC0, protectedBytes, externalAAD, payload)
	if err != nil {
		return newErr(KindCryptoBackend, "building MAC_structure", err)
	}

	k, err := symmetricKeyBytes(key)
	if err != nil {
		return err
	}
	tag, err := alg.MAC().Tag(k, msg)
	if err != nil {
		return newErr(KindCryptoBackend, "MAC primitive", err)
	}

	m.Payload = payload
	m.Tag = tag
	return nil
}

// VerifyTag checks the MAC over the message's own payload.
func (m *Mac0) VerifyTag(key keys.Key, externalAAD []byte) (bool, error) {
	return m.verifyTag(key, m.Payload, externalAAD)
}

// VerifyTagDetached checks the MAC against a caller-supplied payload
// (detached content, spec §9).
func (m *Mac0) VerifyTagDetached(key keys.Key, payload, externalAAD []byte) (bool, error) {
	return m.verifyTag(key, payload, externalAAD)
}

func (m *Mac0) verifyTag(key keys.Key, payload, externalAAD []byte) (bool, error) {
	if payload == nil {
		return false, newErr(KindMalformedMessage, "no payload to verify; use VerifyTagDetached", nil)
	}
	alg, err := m.Headers.Alg()
	if err != nil {
		return false, newErr(KindInvalidAlgorithm, "Mac0 missing alg", err)
	}
	if err := requireMACAlg(alg); err != nil {
		return false, err
	}
	if err := keys.Check(key, keys.OpMACVerify, alg); err != nil {
		return false, newErr(KindInvalidKey, "key not usable for MAC verification", err)
	}

	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return false, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	msg, err := macStructure(contextMAC0, protectedBytes, externalAAD, payload)
	if err != nil {
		return false, newErr(KindCryptoBackend, "building MAC_structure", err)
	}

	k, err := symmetricKeyBytes(key)
	if err != nil {
		return false, err
	}
	ok, err := alg.MAC().Verify(k, msg, m.Tag)
	if err != nil {
		return false, newErr(KindCryptoBackend, "MAC primitive", err)
	}
	if !ok {
		return false, newErr(KindVerificationFailure, "MAC did not verify", nil)
	}
	return true, nil
}

// Marshal encodes the Mac0 array [protected, unprotected, payload, tag],
// optionally wrapped in tag 17.
func (m *Mac0) Marshal(attachTag bool) ([]byte, error) {
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
	arr := []interface{}{cborcodec.RawMessage(protectedBytes), unprotected, payload, m.Tag}
	if attachTag {
		return cborcodec.Marshal(cborcodec.Tag{Number: TagMac0, Content: arr})
	}
	return cborcodec.Marshal(arr)
}

// ParseMac0 decodes an untagged COSE_Mac0 array.
func ParseMac0(raw []byte) (*Mac0, error) {
	var arr []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &arr); err != nil {
		return nil, newErr(KindMalformedMessage, "decoding Mac0 array", err)
	}
	if len(arr) != 4 {
		return nil, newErr(KindMalformedMessage, "Mac0 array must have 4 elements", nil)
	}

	var protectedBytes []byte
	if err := cborcodec.Unmarshal(arr[0], &protectedBytes); err != nil {
		return nil, newErr(KindMalformedMessage, "Mac0 protected field is not a bstr", err)
	}
	bucket, err := decodeBucket(protectedBytes, arr[1])
	if err != nil {
		return nil, err
	}

	var payload []byte
	hasPayload, err := decodeOptionalBstr(arr[2], &payload)
	if err != nil {
		return nil, newErr(KindMalformedMessage, "Mac0 payload field malformed", err)
	}

	var tag []byte
	if err := cborcodec.Unmarshal(arr[3], &tag); err != nil {
		return nil, newErr(KindMalformedMessage, "Mac0 tag field is not a bstr", err)
	}

	m := &Mac0{Headers: bucket, Tag: tag}
	if hasPayload {
		m.Payload = payload
	}
	return m, nil
}

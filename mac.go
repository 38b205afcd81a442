package cose

import (
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/cborcodec"
	"github.com/silvergate-labs/cose/internal/primitives"
	"github.com/silvergate-labs/cose/keys"
)

// Mac is a COSE_Mac message: a MAC over the payload, with the tagging key
// distributed to one or more recipients via the recipient tree (spec §4.3
// "Mac", §4.7), tag 97.
type Mac struct {
	Headers    *headers.Bucket
	Payload    []byte // nil means detached content
	Tag        []byte
	Recipients []*Recipient
}

// NewMac returns a fresh Mac with empty header buckets and no recipients.
func NewMac() *Mac {
	return &Mac{Headers: headers.New()}
}

// Protect derives the message CEK across recipients (spec §4.7: a single
// Direct/DirectKeyAgreement recipient derives the CEK itself; any other mix
// shares one freshly generated CEK wrapped per recipient), computes the
// tag, and populates m.Recipients/Payload/Tag. recipientKeys[i]/opts[i]
// correspond to recipients[i]. It returns the derived CEK.
func (m *Mac) Protect(recipients []*Recipient, recipientKeys []keys.Key, opts []SealOptions, payload, externalAAD []byte, rng primitives.RNG) ([]byte, error) {
	if payload == nil {
		return nil, newErr(KindMalformedMessage, "Mac requires a payload", nil)
	}
	if len(recipients) != len(recipientKeys) || len(recipients) != len(opts) {
		return nil, newErr(KindMalformedMessage, "recipients/keys/opts length mismatch", nil)
	}
	targetAlg, err := m.Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "Mac missing alg", err)
	}
	if err := requireMACAlg(targetAlg); err != nil {
		return nil, err
	}
	if err := checkRecipientMix(recipients); err != nil {
		return nil, err
	}

	cek, err := sealRecipients(recipients, recipientKeys, opts, targetAlg, rng)
	if err != nil {
		return nil, err
	}

	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	msg, err := macStructure(contextMAC, protectedBytes, externalAAD, payload)
	if err != nil {
		return nil, newErr(KindCryptoBackend, "building MAC_structure", err)
	}
	tag, err := targetAlg.MAC().Tag(cek, msg)
	if err != nil {
		return nil, newErr(KindCryptoBackend, "MAC primitive", err)
	}

	m.Recipients = recipients
	m.Payload = payload
	m.Tag = tag
	return cek, nil
}

// Unprotect recovers the CEK from m.Recipients[idx] using the caller's key.
func (m *Mac) Unprotect(idx int, key keys.Key, opts OpenOptions) ([]byte, error) {
	if idx < 0 || idx >= len(m.Recipients) {
		return nil, newErr(KindMalformedMessage, "recipient index out of range", nil)
	}
	targetAlg, err := m.Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "Mac missing alg", err)
	}
	return m.Recipients[idx].Open(key, targetAlg, opts)
}

// VerifyTag checks the tag over the message's own payload given the CEK
// recovered via Unprotect.
func (m *Mac) VerifyTag(cek, externalAAD []byte) (bool, error) {
	return m.verifyTag(cek, m.Payload, externalAAD)
}

// VerifyTagDetached checks the tag against a caller-supplied payload.
func (m *Mac) VerifyTagDetached(cek, payload, externalAAD []byte) (bool, error) {
	return m.verifyTag(cek, payload, externalAAD)
}

func (m *Mac) verifyTag(cek, payload, externalAAD []byte) (bool, error) {
	if payload == nil {
		return false, newErr(KindMalformedMessage, "no payload to verify; use VerifyTagDetached", nil)
	}
	targetAlg, err := m.Headers.Alg()
	if err != nil {
		return false, newErr(KindInvalidAlgorithm, "Mac missing alg", err)
	}
	if err := requireMACAlg(targetAlg); err != nil {
		return false, err
	}
	protectedBytes, err := m.Headers.ProtectedBytes()
	if err != nil {
		return false, newErr(KindCryptoBackend, "encoding protected header", err)
	}
	msg, err := macStructure(contextMAC, protectedBytes, externalAAD, payload)
	if err != nil {
		return false, newErr(KindCryptoBackend, "building MAC_structure", err)
	}
	ok, err := targetAlg.MAC().Verify(cek, msg, m.Tag)
	if err != nil {
		return false, newErr(KindCryptoBackend, "MAC primitive", err)
	}
	if !ok {
		return false, newErr(KindVerificationFailure, "MAC did not verify", nil)
	}
	return true, nil
}

// Marshal encodes the Mac array [protected, unprotected, payload, tag,
// recipients], optionally wrapped in tag 97.
func (m *Mac) Marshal(attachTag bool) ([]byte, error) {
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

	recipients := make([]interface{}, len(m.Recipients))
	for i, r := range m.Recipients {
		arr, err := r.encodeArray()
		if err != nil {
			return nil, err
		}
		recipients[i] = arr
	}

	arr := []interface{}{cborcodec.RawMessage(protectedBytes), unprotected, payload, m.Tag, recipients}
	if attachTag {
		return cborcodec.Marshal(cborcodec.Tag{Number: TagMac, Content: arr})
	}
	return cborcodec.Marshal(arr)
}

// ParseMac decodes an untagged COSE_Mac array.
func ParseMac(raw []byte) (*Mac, error) {
	var arr []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &arr); err != nil {
		return nil, newErr(KindMalformedMessage, "decoding Mac array", err)
	}
	if len(arr) != 5 {
		return nil, newErr(KindMalformedMessage, "Mac array must have 5 elements", nil)
	}

	var protectedBytes []byte
	if err := cborcodec.Unmarshal(arr[0], &protectedBytes); err != nil {
		return nil, newErr(KindMalformedMessage, "Mac protected field is not a bstr", err)
	}
	bucket, err := decodeBucket(protectedBytes, arr[1])
	if err != nil {
		return nil, err
	}

	var payload []byte
	hasPayload, err := decodeOptionalBstr(arr[2], &payload)
	if err != nil {
		return nil, newErr(KindMalformedMessage, "Mac payload field malformed", err)
	}

	var tag []byte
	if err := cborcodec.Unmarshal(arr[3], &tag); err != nil {
		return nil, newErr(KindMalformedMessage, "Mac tag field is not a bstr", err)
	}

	var recipientArrays []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(arr[4], &recipientArrays); err != nil {
		return nil, newErr(KindMalformedMessage, "Mac recipients field is not an array", err)
	}

	m := &Mac{Headers: bucket, Tag: tag}
	if hasPayload {
		m.Payload = payload
	}
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

package cose

import (
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

// encodeArray builds this recipient's COSE_recipient array:
// [protected, unprotected, ciphertext, recipients?] (spec §4.7).
func (r *Recipient) encodeArray() ([]interface{}, error) {
	protectedBytes, err := r.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding recipient protected bucket", err)
	}
	unprotected, err := r.Headers.MarshalUnprotected()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding recipient unprotected bucket", err)
	}
	ciphertext := r.Ciphertext
	if ciphertext == nil {
		ciphertext = []byte{}
	}
	arr := []interface{}{cborcodec.RawMessage(protectedBytes), unprotected, ciphertext}
	if len(r.Recipients) > 0 {
		nested := make([]interface{}, len(r.Recipients))
		for i, sub := range r.Recipients {
			subArr, err := sub.encodeArray()
			if err != nil {
				return nil, err
			}
			nested[i] = subArr
		}
		arr = append(arr, nested)
	}
	return arr, nil
}

// MarshalCBOR encodes this recipient to its standalone COSE_recipient bytes.
func (r *Recipient) MarshalCBOR() ([]byte, error) {
	arr, err := r.encodeArray()
	if err != nil {
		return nil, err
	}
	return cborcodec.Marshal(arr)
}

// ParseRecipient decodes a standalone COSE_recipient byte string.
func ParseRecipient(raw []byte) (*Recipient, error) {
	var arr []cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &arr); err != nil {
		return nil, newErr(KindMalformedMessage, "decoding recipient array", err)
	}
	return parseRecipientElements(arr)
}

func parseRecipientElements(arr []cborcodec.RawMessage) (*Recipient, error) {
	if len(arr) != 3 && len(arr) != 4 {
		return nil, newErr(KindMalformedMessage, "recipient array must have 3 or 4 elements", nil)
	}

	var protectedBytes []byte
	if err := cborcodec.Unmarshal(arr[0], &protectedBytes); err != nil {
		return nil, newErr(KindMalformedMessage, "recipient protected field is not a bstr", err)
	}
	decodedProtected, err := headers.DecodeProtected(protectedBytes)
	if err != nil {
		return nil, newErr(KindMalformedMessage, "decoding recipient protected header", err)
	}
	decodedUnprotected, err := headers.ParseMap(arr[1])
	if err != nil {
		return nil, newErr(KindMalformedMessage, "decoding recipient unprotected header", err)
	}

	bucket := headers.New()
	bucket.SetProtectedBytes(protectedBytes, decodedProtected)
	bucket.Unprotected = decodedUnprotected
	if err := bucket.AssertNoOverlap(); err != nil {
		return nil, newErr(KindInvalidHeader, "attribute present in both recipient buckets", err)
	}
	if err := bucket.ValidateCrit(); err != nil {
		return nil, newErr(KindInvalidCriticalValue, "recipient crit validation", err)
	}

	var ciphertext []byte
	if err := cborcodec.Unmarshal(arr[2], &ciphertext); err != nil {
		return nil, newErr(KindMalformedMessage, "recipient ciphertext is not a bstr", err)
	}

	r := &Recipient{Headers: bucket, Ciphertext: ciphertext}

	if len(arr) == 4 {
		var subArrays []cborcodec.RawMessage
		if err := cborcodec.Unmarshal(arr[3], &subArrays); err != nil {
			return nil, newErr(KindMalformedMessage, "recipient's nested recipients field is malformed", err)
		}
		for _, s := range subArrays {
			var elems []cborcodec.RawMessage
			if err := cborcodec.Unmarshal(s, &elems); err != nil {
				return nil, newErr(KindMalformedMessage, "nested recipient is not an array", err)
			}
			sub, err := parseRecipientElements(elems)
			if err != nil {
				return nil, err
			}
			r.Recipients = append(r.Recipients, sub)
		}
	}

	return r, nil
}

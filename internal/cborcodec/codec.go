// Package cborcodec provides the single deterministic CBOR encode/decode
// surface used across the COSE core. Every message, key, and header bucket
// goes through this package so that the byte layout handed to a signature,
// MAC, or AEAD primitive is guaranteed canonical, matching peer
// implementations bit-for-bit.
package cborcodec

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// EncMode is the shared deterministic ("Canonical CBOR" / CTAP2) encode
// mode. Shortest-form integers, definite-length containers, and map keys in
// bytewise-lexicographic order of their encoded form.
var EncMode cbor.EncMode

// DecMode rejects indefinite-length items, matching the strictness the COSE
// structure builders require for Sig_structure/MAC_structure/Enc_structure
// inputs.
var DecMode cbor.DecMode

func init() {
	encOpts := cbor.CanonicalEncOptions()
	var err error
	EncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cborcodec: building canonical encode mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		IndefLength: cbor.IndefLengthForbidden,
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}
	DecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cborcodec: building decode mode: %v", err))
	}
}

// Marshal encodes v using the canonical encode mode.
func Marshal(v interface{}) ([]byte, error) {
	return EncMode.Marshal(v)
}

// Unmarshal decodes data into v using the strict decode mode.
func Unmarshal(data []byte, v interface{}) error {
	return DecMode.Unmarshal(data, v)
}

// RawMessage is a CBOR-encoded value kept verbatim. Used to retain the
// original bytes of a protected header bucket across a decode/re-encode
// roundtrip, since those bytes must never be re-serialized once observed.
type RawMessage = cbor.RawMessage

// Tag wraps a CBOR major-type-6 tag number around arbitrary content, used to
// attach the COSE message tags (16/17/18/96/97/98) on encode.
type Tag = cbor.Tag

// RawTag exposes a decoded tag's number and raw (still-encoded) content,
// letting the top-level codec dispatch on the tag number before decoding
// the tagged array into its typed message shape.
type RawTag = cbor.RawTag

// EncodedMapEqual compares two canonical CBOR map encodings for byte
// equality, used by tests asserting deterministic re-encoding.
func EncodedMapEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

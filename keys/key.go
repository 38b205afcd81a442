// Package keys implements the COSE key model (spec §4.3): typed key
// variants (symmetric, EC2, OKP, RSA), their required/optional parameters,
// operation restrictions, and canonical CBOR encode/decode.
package keys

import (
	"fmt"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

// Common parameter labels, shared across all key types (RFC 8152 Table 3).
const (
	labelKty     = 1
	labelKid     = 2
	labelAlg     = 3
	labelKeyOps  = 4
	labelBaseIV  = 5
)

// Op is a COSE key operation restriction (key_ops).
type Op string

const (
	OpSign       Op = "sign"
	OpVerify     Op = "verify"
	OpEncrypt    Op = "encrypt"
	OpDecrypt    Op = "decrypt"
	OpWrapKey    Op = "wrap key"
	OpUnwrapKey  Op = "unwrap key"
	OpDeriveKey  Op = "derive key"
	OpDeriveBits Op = "derive bits"
	OpMACCreate  Op = "MAC create"
	OpMACVerify  Op = "MAC verify"
)

var ktyToCBOR = map[algorithm.KeyType]int64{
	algorithm.KeyTypeSymmetric: 4,
	algorithm.KeyTypeEC2:       2,
	algorithm.KeyTypeOKP:       1,
	algorithm.KeyTypeRSA:       3,
}

var cborToKty = map[int64]algorithm.KeyType{
	4: algorithm.KeyTypeSymmetric,
	2: algorithm.KeyTypeEC2,
	1: algorithm.KeyTypeOKP,
	3: algorithm.KeyTypeRSA,
}

// Common holds the parameters shared by every key variant.
type Common struct {
	Kty    algorithm.KeyType
	Kid    []byte
	Alg    *algorithm.Algorithm
	KeyOps []Op
	BaseIV []byte
}

// HasOp reports whether op is permitted — per spec §4.3, an empty KeyOps
// permits any operation.
func (c *Common) HasOp(op Op) bool {
	if len(c.KeyOps) == 0 {
		return true
	}
	for _, o := range c.KeyOps {
		if o == op {
			return true
		}
	}
	return false
}

// Key is the common interface implemented by every key variant.
type Key interface {
	Type() algorithm.KeyType
	CommonParams() *Common
	MarshalCBOR() ([]byte, error)
}

// InvalidKeyFormatError reports a structural failure parsing a key (spec §7).
type InvalidKeyFormatError struct {
	Reason string
}

func (e *InvalidKeyFormatError) Error() string {
	return fmt.Sprintf("keys: invalid key format: %s", e.Reason)
}

// InvalidKeyError reports a key incompatible with the requested algorithm or
// operation (spec §7).
type InvalidKeyError struct {
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("keys: invalid key: %s", e.Reason)
}

// Check verifies that k may be used for op with alg, per spec §4.3:
//   (a) key_ops is empty or contains op
//   (b) kty matches alg's required key type
//   (c) alg is unset on the key, or equal to the algorithm in use
func Check(k Key, op Op, alg *algorithm.Algorithm) error {
	c := k.CommonParams()
	if !c.HasOp(op) {
		return &InvalidKeyError{Reason: fmt.Sprintf("key_ops does not permit %q", op)}
	}
	if alg.KeyType != algorithm.KeyTypeNone && k.Type() != alg.KeyType {
		return &InvalidKeyError{Reason: fmt.Sprintf("key type %d incompatible with algorithm %s", k.Type(), alg.Name)}
	}
	if c.Alg != nil && c.Alg.ID != alg.ID {
		return &InvalidKeyError{Reason: fmt.Sprintf("key is bound to algorithm %s, not %s", c.Alg.Name, alg.Name)}
	}
	return nil
}

// Resolver resolves a kid to key material lazily at verify/decrypt time,
// letting a caller defer key lookup until a message names which key it
// needs (grounded on forestrie-go-merklelog's public-key-provider pattern;
// see SPEC_FULL.md §4).
type Resolver interface {
	ResolveKey(kid []byte) (Key, error)
}

func decodeCommon(m map[int64]cborcodec.RawMessage) (Common, error) {
	var c Common

	ktyRaw, ok := m[labelKty]
	if !ok {
		return c, &InvalidKeyFormatError{Reason: "missing required kty"}
	}
	var ktyVal int64
	if err := cborcodec.Unmarshal(ktyRaw, &ktyVal); err != nil {
		return c, &InvalidKeyFormatError{Reason: "kty is not an integer"}
	}
	kty, ok := cborToKty[ktyVal]
	if !ok {
		return c, &InvalidKeyFormatError{Reason: fmt.Sprintf("unknown kty %d", ktyVal)}
	}
	c.Kty = kty

	if raw, ok := m[labelKid]; ok {
		if err := cborcodec.Unmarshal(raw, &c.Kid); err != nil {
			return c, &InvalidKeyFormatError{Reason: "kid is not a bstr"}
		}
	}
	if raw, ok := m[labelAlg]; ok {
		var id int64
		if err := cborcodec.Unmarshal(raw, &id); err == nil {
			alg, err := algorithm.Lookup(id)
			if err != nil {
				return c, &InvalidKeyFormatError{Reason: err.Error()}
			}
			c.Alg = alg
		}
	}
	if raw, ok := m[labelKeyOps]; ok {
		var ops []string
		if err := cborcodec.Unmarshal(raw, &ops); err != nil {
			return c, &InvalidKeyFormatError{Reason: "key_ops is not an array of text"}
		}
		c.KeyOps = make([]Op, len(ops))
		for i, o := range ops {
			c.KeyOps[i] = Op(o)
		}
	}
	if raw, ok := m[labelBaseIV]; ok {
		if err := cborcodec.Unmarshal(raw, &c.BaseIV); err != nil {
			return c, &InvalidKeyFormatError{Reason: "base_IV is not a bstr"}
		}
	}

	return c, nil
}

func encodeCommon(dst map[int64]interface{}, c *Common) {
	dst[labelKty] = ktyToCBOR[c.Kty]
	if len(c.Kid) > 0 {
		dst[labelKid] = c.Kid
	}
	if c.Alg != nil {
		dst[labelAlg] = c.Alg.ID
	}
	if len(c.KeyOps) > 0 {
		ops := make([]string, len(c.KeyOps))
		for i, o := range c.KeyOps {
			ops[i] = string(o)
		}
		dst[labelKeyOps] = ops
	}
	if len(c.BaseIV) > 0 {
		dst[labelBaseIV] = c.BaseIV
	}
}

// Decode parses CBOR key bytes into the matching Key variant, rejecting
// duplicate keys (handled by the strict decode mode) and unknown kty.
func Decode(raw []byte) (Key, error) {
	var m map[int64]cborcodec.RawMessage
	if err := cborcodec.Unmarshal(raw, &m); err != nil {
		return nil, &InvalidKeyFormatError{Reason: err.Error()}
	}

	ktyRaw, ok := m[labelKty]
	if !ok {
		return nil, &InvalidKeyFormatError{Reason: "missing required kty"}
	}
	var ktyVal int64
	if err := cborcodec.Unmarshal(ktyRaw, &ktyVal); err != nil {
		return nil, &InvalidKeyFormatError{Reason: "kty is not an integer"}
	}

	switch ktyVal {
	case 4:
		return decodeSymmetric(m)
	case 2:
		return decodeEC2(m)
	case 1:
		return decodeOKP(m)
	case 3:
		return decodeRSA(m)
	default:
		return nil, &InvalidKeyFormatError{Reason: fmt.Sprintf("unknown kty %d", ktyVal)}
	}
}

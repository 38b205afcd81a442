package headers

import (
	"fmt"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

// Map is a single header bucket's attribute→value map. Values are the typed
// form produced by each label's parser: int64, string, []byte,
// *algorithm.Algorithm (for Alg), []Label (for Crit), or cborcodec.RawMessage
// for attributes with no typed parser.
type Map map[Label]interface{}

// Bucket holds a message or recipient's protected and unprotected header
// maps (spec §3 "Header bucket", §4.4). The zero value is a valid, empty
// bucket.
type Bucket struct {
	Protected   Map
	Unprotected Map

	// protectedBytes caches the canonical CBOR encoding of Protected. It is
	// invalidated whenever Protected is mutated through SetProtected, and is
	// set directly (never recomputed) when the bucket was produced by
	// Decode — the original bytes of a received protected bucket must be
	// retained verbatim for any later Sig/MAC/Enc-structure computation.
	protectedBytes []byte
	protectedFresh bool // true once protectedBytes reflects Protected
}

// New returns an empty Bucket.
func New() *Bucket {
	return &Bucket{Protected: Map{}, Unprotected: Map{}}
}

// SetProtected sets a protected attribute and invalidates the cached
// encoding.
func (b *Bucket) SetProtected(l Label, v interface{}) {
	if b.Protected == nil {
		b.Protected = Map{}
	}
	b.Protected[l] = v
	b.protectedFresh = false
}

// SetUnprotected sets an unprotected attribute.
func (b *Bucket) SetUnprotected(l Label, v interface{}) {
	if b.Unprotected == nil {
		b.Unprotected = Map{}
	}
	b.Unprotected[l] = v
}

// OverlapError is returned when the same attribute appears in both buckets
// of a decoded message (spec §3 invariant, §7 InvalidHeader).
type OverlapError struct {
	Label Label
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("headers: attribute %d present in both protected and unprotected buckets", e.Label)
}

// AssertNoOverlap enforces that no attribute appears in both buckets. It
// must be run once as part of parsing any received bucket pair.
func (b *Bucket) AssertNoOverlap() error {
	for l := range b.Protected {
		if _, ok := b.Unprotected[l]; ok {
			return &OverlapError{Label: l}
		}
	}
	return nil
}

// Get searches protected first, then unprotected, and returns the value and
// whether it was found. Per spec §4.4, a caller must not request an
// attribute present in both buckets; call AssertNoOverlap at parse time to
// guarantee that invariant rather than re-checking on every Get.
func (b *Bucket) Get(l Label) (interface{}, bool) {
	if v, ok := b.Protected[l]; ok {
		return v, true
	}
	v, ok := b.Unprotected[l]
	return v, ok
}

// Alg returns the message's algorithm, searching protected then
// unprotected.
func (b *Bucket) Alg() (*algorithm.Algorithm, error) {
	v, ok := b.Get(Alg)
	if !ok {
		return nil, fmt.Errorf("headers: no alg attribute present")
	}
	switch a := v.(type) {
	case *algorithm.Algorithm:
		return a, nil
	case int64:
		return algorithm.Lookup(a)
	case string:
		return algorithm.LookupName(a)
	default:
		return nil, fmt.Errorf("headers: alg attribute has unexpected type %T", v)
	}
}

// Kid returns the kid attribute, if present.
func (b *Bucket) Kid() ([]byte, bool) {
	v, ok := b.Get(Kid)
	if !ok {
		return nil, false
	}
	kid, ok := v.([]byte)
	return kid, ok
}

// Crit returns the list of labels declared critical. Per spec §3, crit may
// only appear in the protected bucket.
func (b *Bucket) Crit() ([]Label, error) {
	v, ok := b.Protected[Crit]
	if !ok {
		return nil, nil
	}
	switch c := v.(type) {
	case []Label:
		return c, nil
	default:
		return nil, fmt.Errorf("headers: crit attribute has unexpected type %T", v)
	}
}

// CriticalValueError is returned when crit names an attribute that is not
// present in protected, or that this implementation does not understand
// (spec §7, InvalidCriticalValue).
type CriticalValueError struct {
	Label Label
}

func (e *CriticalValueError) Error() string {
	return fmt.Sprintf("headers: crit lists attribute %d, which is not present in protected or not understood", e.Label)
}

// ValidateCrit enforces that every label in crit is present in the protected
// bucket and is a registered (understood) attribute.
func (b *Bucket) ValidateCrit() error {
	crit, err := b.Crit()
	if err != nil {
		return err
	}
	for _, l := range crit {
		if _, ok := b.Protected[l]; !ok {
			return &CriticalValueError{Label: l}
		}
		if !Known(l) {
			return &CriticalValueError{Label: l}
		}
	}
	return nil
}

// ProtectedBytes returns the canonical CBOR bstr encoding of Protected,
// computing and caching it if necessary. An empty map encodes to a
// zero-length byte string.
func (b *Bucket) ProtectedBytes() ([]byte, error) {
	if b.protectedFresh {
		return b.protectedBytes, nil
	}
	if len(b.Protected) == 0 {
		b.protectedBytes = []byte{}
		b.protectedFresh = true
		return b.protectedBytes, nil
	}
	raw, err := encodeMap(b.Protected)
	if err != nil {
		return nil, err
	}
	b.protectedBytes = raw
	b.protectedFresh = true
	return b.protectedBytes, nil
}

// SetProtectedBytes installs bytes as the verbatim protected encoding
// without re-serializing Protected — used when decoding a received message,
// so the original bytes survive for Sig/MAC/Enc-structure computation even
// after Protected itself is parsed into a map (spec §4.6, §9).
func (b *Bucket) SetProtectedBytes(raw []byte, decoded Map) {
	b.protectedBytes = append([]byte{}, raw...)
	b.protectedFresh = true
	b.Protected = decoded
}

// MarshalUnprotected returns the canonical CBOR encoding of Unprotected, as
// a bare map (not bstr-wrapped) — the shape every message/recipient array
// embeds it in.
func (b *Bucket) MarshalUnprotected() (cborcodec.RawMessage, error) {
	raw, err := encodeMap(b.Unprotected)
	if err != nil {
		return nil, err
	}
	return cborcodec.RawMessage(raw), nil
}

func encodeMap(m Map) ([]byte, error) {
	plain := make(map[int64]cborcodec.RawMessage, len(m))
	for l, v := range m {
		raw, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		plain[int64(l)] = raw
	}
	return cborcodec.Marshal(plain)
}

func encodeValue(v interface{}) (cborcodec.RawMessage, error) {
	switch val := v.(type) {
	case *algorithm.Algorithm:
		return cborcodec.Marshal(val.ID)
	case []Label:
		ids := make([]int64, len(val))
		for i, l := range val {
			ids[i] = int64(l)
		}
		return cborcodec.Marshal(ids)
	case cborcodec.RawMessage:
		return val, nil
	default:
		return cborcodec.Marshal(val)
	}
}

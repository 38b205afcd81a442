// Package headers implements the COSE header attribute registry (spec §4.2)
// and the two-bucket (protected/unprotected) header model (spec §4.4).
package headers

import "fmt"

// Label is a COSE header attribute identifier. The closed set of common
// labels below matches the IANA COSE Header Parameters registry verbatim;
// any other integer is an unknown attribute that parses to raw CBOR and
// round-trips unchanged. Labels are integers only: ParseMap fails on a
// header map that has a text label.
type Label int64

const (
	Alg               Label = 1
	Crit              Label = 2
	ContentType       Label = 3
	Kid               Label = 4
	IV                Label = 5
	PartialIV         Label = 6
	CounterSignature  Label = 7
	X5Chain           Label = 33
	EphemeralKey      Label = -1
	StaticKey         Label = -2
	StaticKeyID       Label = -3
	Salt              Label = -20
	PartyUIdentity    Label = -21
	PartyUNonce       Label = -22
	PartyUOther       Label = -23
	PartyVIdentity    Label = -24
	PartyVNonce       Label = -25
	PartyVOther       Label = -26
)

// ValueKind classifies the typed shape a header attribute's CBOR value is
// parsed into (spec §9 "Dynamic header values").
type ValueKind int

const (
	KindRaw ValueKind = iota
	KindInt
	KindText
	KindBytes
	KindAlg
	KindCritList
)

// attrInfo binds a label to its canonical name and expected value shape.
type attrInfo struct {
	name string
	kind ValueKind
}

var registry = map[Label]attrInfo{
	Alg:              {"alg", KindAlg},
	Crit:             {"crit", KindCritList},
	ContentType:      {"content type", KindText},
	Kid:              {"kid", KindBytes},
	IV:               {"IV", KindBytes},
	PartialIV:        {"Partial IV", KindBytes},
	CounterSignature: {"counter signature", KindRaw},
	X5Chain:          {"x5chain", KindRaw},
	EphemeralKey:     {"ephemeral key", KindRaw},
	StaticKey:        {"static key", KindRaw},
	StaticKeyID:      {"static key id", KindBytes},
	Salt:             {"salt", KindBytes},
	PartyUIdentity:   {"PartyU identity", KindBytes},
	PartyUNonce:      {"PartyU nonce", KindBytes},
	PartyUOther:      {"PartyU other", KindBytes},
	PartyVIdentity:   {"PartyV identity", KindBytes},
	PartyVNonce:      {"PartyV nonce", KindBytes},
	PartyVOther:      {"PartyV other", KindBytes},
}

// Name returns the registered full name for a label, or "" if the label is
// unknown (an unknown label still round-trips via its raw CBOR value — it is
// simply not assigned a typed parser).
func Name(l Label) string {
	if info, ok := registry[l]; ok {
		return info.name
	}
	return ""
}

// KindOf returns the expected value shape for a label, defaulting to
// KindRaw for unregistered labels.
func KindOf(l Label) ValueKind {
	if info, ok := registry[l]; ok {
		return info.kind
	}
	return KindRaw
}

// Known reports whether l is a registered attribute.
func Known(l Label) bool {
	_, ok := registry[l]
	return ok
}

// UnsupportedAttributeError is returned when strict mode rejects an unknown
// attribute (spec §7, UnknownAttribute).
type UnsupportedAttributeError struct {
	Label Label
}

func (e *UnsupportedAttributeError) Error() string {
	return fmt.Sprintf("headers: unsupported attribute label %d", e.Label)
}

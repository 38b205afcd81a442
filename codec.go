package cose

import "github.com/silvergate-labs/cose/internal/cborcodec"

// COSE message tags (IANA CBOR Tags registry, RFC 8152 Table 1).
const (
	TagEncrypt0 uint64 = 16
	TagMac0     uint64 = 17
	TagSign1    uint64 = 18
	TagEncrypt  uint64 = 96
	TagMac      uint64 = 97
	TagSign     uint64 = 98
)

// MessageType names a COSE message variant, used to steer Decode when
// input bytes arrive untagged (spec §4.8).
type MessageType int

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeSign1
	MessageTypeSign
	MessageTypeMac0
	MessageTypeMac
	MessageTypeEncrypt0
	MessageTypeEncrypt
)

// Decode parses COSE message bytes. If the input is wrapped in one of the
// standard tags (16/17/18/96/97/98), the variant is taken from the tag and
// expected is ignored; otherwise expected selects which array shape to
// parse. The returned value is one of *Sign1, *Sign, *Mac0, *Mac,
// *Encrypt0, *Encrypt.
func Decode(raw []byte, expected MessageType) (interface{}, error) {
	var tag cborcodec.RawTag
	if err := cborcodec.Unmarshal(raw, &tag); err == nil {
		switch tag.Number {
		case TagSign1:
			return ParseSign1(tag.Content)
		case TagSign:
			return ParseSign(tag.Content)
		case TagMac0:
			return ParseMac0(tag.Content)
		case TagMac:
			return ParseMac(tag.Content)
		case TagEncrypt0:
			return ParseEncrypt0(tag.Content)
		case TagEncrypt:
			return ParseEncrypt(tag.Content)
		default:
			return nil, newErr(KindMalformedMessage, "unrecognized COSE tag", nil)
		}
	}

	switch expected {
	case MessageTypeSign1:
		return ParseSign1(raw)
	case MessageTypeSign:
		return ParseSign(raw)
	case MessageTypeMac0:
		return ParseMac0(raw)
	case MessageTypeMac:
		return ParseMac(raw)
	case MessageTypeEncrypt0:
		return ParseEncrypt0(raw)
	case MessageTypeEncrypt:
		return ParseEncrypt(raw)
	default:
		return nil, newErr(KindMalformedMessage, "untagged message requires an expected MessageType", nil)
	}
}

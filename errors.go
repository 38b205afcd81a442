// Package cose implements the message/key/algorithm engine for COSE (RFC
// 8152): Sign1, Sign, Mac0, Mac, Encrypt0, and Encrypt messages, the
// header-bucket machinery, and the recipient tree with CEK derivation.
// Primitive cryptography, the CBOR codec itself, and transport are external
// collaborators — see internal/primitives, internal/cborcodec.
package cose

import (
	"errors"
	"fmt"
)

// Kind is a COSE core error kind (spec §7). It partitions failures into the
// categories a caller needs to branch on — e.g. treating
// DecryptionFailure/VerificationFailure as an expected, non-exceptional
// outcome while MalformedMessage indicates a caller bug or corrupted input.
type Kind int

const (
	KindUnspecified Kind = iota
	KindInvalidAlgorithm
	KindInvalidKey
	KindInvalidKeyFormat
	KindInvalidHeader
	KindInvalidCriticalValue
	KindMalformedMessage
	KindUnsupportedRecipient
	KindDecryptionFailure
	KindVerificationFailure
	KindCryptoBackend
	KindUnknownAttribute
)

func (k Kind) String() string {
	switch k {
	case KindInvalidAlgorithm:
		return "InvalidAlgorithm"
	case KindInvalidKey:
		return "InvalidKey"
	case KindInvalidKeyFormat:
		return "InvalidKeyFormat"
	case KindInvalidHeader:
		return "InvalidHeader"
	case KindInvalidCriticalValue:
		return "InvalidCriticalValue"
	case KindMalformedMessage:
		return "MalformedMessage"
	case KindUnsupportedRecipient:
		return "UnsupportedRecipient"
	case KindDecryptionFailure:
		return "DecryptionFailure"
	case KindVerificationFailure:
		return "VerificationFailure"
	case KindCryptoBackend:
		return "CryptoBackend"
	case KindUnknownAttribute:
		return "UnknownAttribute"
	default:
		return "Unspecified"
	}
}

// Error is the single exported error type for the core. Structural errors
// are raised at the encode/decode boundary without partial results;
// primitive failures are wrapped as KindCryptoBackend.
type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("cose: %s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("cose: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is(err, target) succeed when target is another *Error with
// the same Kind, whatever its message. A bare Kind is not an error value;
// use HasKind to test for one.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// HasKind reports whether err (or any error it wraps) is a *Error of the
// given Kind.
func HasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

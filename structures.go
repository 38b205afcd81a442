package cose

import (
	"github.com/silvergate-labs/cose/internal/cborcodec"
)

// context strings for the to-be-signed/MAC'd/encrypted structures (RFC 8152
// §4.4, §6.3, §5.3).
const (
	contextSignature  = "Signature"
	contextSignature1 = "Signature1"
	contextMAC        = "MAC"
	contextMAC0       = "MAC0"
	contextEncrypt    = "Encrypt"
	contextEncrypt0   = "Encrypt0"
	contextEncRecipient = "Enc_Recipient"
	contextMacRecipient = "Mac_Recipient"
	contextRecRecipient = "Rec_Recipient"
)

// sigStructure builds the Sig_structure for Sign1 (signProtected is nil) or
// for one signer of a COSE_Sign (signProtected is that signer's protected
// bucket bytes), per spec §4.5.
func sigStructure(context string, bodyProtected, signProtected, externalAAD, payload []byte) ([]byte, error) {
	if externalAAD == nil {
		externalAAD = []byte{}
	}
	arr := []interface{}{context, cborcodec.RawMessage(bodyProtected)}
	if signProtected != nil {
		arr = append(arr, cborcodec.RawMessage(signProtected))
	}
	arr = append(arr, externalAAD, payload)
	return cborcodec.Marshal(arr)
}

// macStructure builds the MAC_structure for Mac0/Mac, per spec §4.5.
func macStructure(context string, protected, externalAAD, payload []byte) ([]byte, error) {
	if externalAAD == nil {
		externalAAD = []byte{}
	}
	arr := []interface{}{context, cborcodec.RawMessage(protected), externalAAD, payload}
	return cborcodec.Marshal(arr)
}

// encStructure builds the Enc_structure for Encrypt0/Encrypt and for
// recipient key-wrap/key-agreement AAD, per spec §4.5.
func encStructure(context string, protected, externalAAD []byte) ([]byte, error) {
	if externalAAD == nil {
		externalAAD = []byte{}
	}
	arr := []interface{}{context, cborcodec.RawMessage(protected), externalAAD}
	return cborcodec.Marshal(arr)
}

// PartyInfo is one side (U or V) of a COSE_KDF_Context (RFC 8152 §11.2).
// All three fields are optional; absent fields encode as CBOR null.
type PartyInfo struct {
	Identity []byte
	Nonce    []byte
	Other    []byte
}

func (p PartyInfo) marshal() []interface{} {
	ident, nonce, other := interface{}(nil), interface{}(nil), interface{}(nil)
	if p.Identity != nil {
		ident = p.Identity
	}
	if p.Nonce != nil {
		nonce = p.Nonce
	}
	if p.Other != nil {
		other = p.Other
	}
	return []interface{}{ident, nonce, other}
}

// KDFContext is the COSE_KDF_Context used to derive a CEK or KEK from a
// shared secret (spec §4.7, RFC 8152 §11.2).
type KDFContext struct {
	AlgorithmID  int64
	PartyU       PartyInfo
	PartyV       PartyInfo
	KeyDataLen   int // in bits
	Protected    []byte
	Other        []byte
}

// Marshal encodes the KDF context to its canonical CBOR form, the `info`
// input to the HKDF (or single-step KDF) derivation.
func (c *KDFContext) Marshal() ([]byte, error) {
	suppPub := []interface{}{c.KeyDataLen, cborcodec.RawMessage(protectedOrEmpty(c.Protected))}
	if c.Other != nil {
		suppPub = append(suppPub, c.Other)
	}
	arr := []interface{}{
		c.AlgorithmID,
		c.PartyU.marshal(),
		c.PartyV.marshal(),
		suppPub,
	}
	return cborcodec.Marshal(arr)
}

func protectedOrEmpty(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

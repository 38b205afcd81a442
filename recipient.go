package cose

import (
	"crypto/ecdh"
	"io"
	"strings"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/cborcodec"
	"github.com/silvergate-labs/cose/internal/primitives"
	"github.com/silvergate-labs/cose/keys"
)

// Recipient is one node of the recipient tree (spec §4.7): header buckets,
// an encrypted-key ciphertext (empty for the Direct variants), and optional
// nested sub-recipients.
type Recipient struct {
	Headers    *headers.Bucket
	Ciphertext []byte
	Recipients []*Recipient
}

// NewRecipient returns an empty Recipient with initialized header buckets.
func NewRecipient() *Recipient {
	return &Recipient{Headers: headers.New(), Ciphertext: []byte{}}
}

// Variant classifies a recipient's CEK-derivation strategy, selected by its
// alg's Kind (spec §4.7).
type Variant int

const (
	VariantUnknown Variant = iota
	VariantDirect
	VariantDirectKeyAgreement
	VariantKeyWrap
	VariantKeyAgreementWithKeyWrap
)

func variantOf(alg *algorithm.Algorithm) (Variant, error) {
	switch alg.Kind {
	case algorithm.KindDirect:
		return VariantDirect, nil
	case algorithm.KindDirectKeyAgreement:
		return VariantDirectKeyAgreement, nil
	case algorithm.KindKeyWrap:
		return VariantKeyWrap, nil
	case algorithm.KindKeyAgreementWithKeyWrap:
		return VariantKeyAgreementWithKeyWrap, nil
	default:
		return VariantUnknown, newErr(KindUnsupportedRecipient, "recipient alg "+alg.Name+" is not a recipient variant", nil)
	}
}

// checkRecipientMix enforces spec §4.7/§8 invariant 7: Direct and
// DirectKeyAgreement recipients must be the message's only recipient, and
// must never be mixed with KeyWrap/KeyAgreementWithKeyWrap siblings.
func checkRecipientMix(recipients []*Recipient) error {
	if len(recipients) == 0 {
		return newErr(KindUnsupportedRecipient, "message requires at least one recipient", nil)
	}
	var sawDirect, sawOther bool
	for _, r := range recipients {
		alg, err := r.Headers.Alg()
		if err != nil {
			return newErr(KindInvalidAlgorithm, "recipient missing alg", err)
		}
		v, err := variantOf(alg)
		if err != nil {
			return err
		}
		switch v {
		case VariantDirect, VariantDirectKeyAgreement:
			sawDirect = true
		default:
			sawOther = true
		}
	}
	if sawDirect && (sawOther || len(recipients) > 1) {
		return newErr(KindUnsupportedRecipient, "Direct/DirectKeyAgreement recipients cannot be combined with other recipients", nil)
	}
	return nil
}

// rngReader adapts primitives.RNG to io.Reader for crypto/ecdh key
// generation.
type rngReader struct{ rng primitives.RNG }

func (r rngReader) Read(p []byte) (int, error) {
	if err := r.rng.Fill(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// GenerateCEK produces a fresh random content-encryption key sized for
// targetAlg, shared across every KeyWrap recipient of a message (spec
// §4.7).
func GenerateCEK(targetAlg *algorithm.Algorithm, rng primitives.RNG) ([]byte, error) {
	n := targetAlg.KeyLen
	if n == 0 {
		return nil, newErr(KindInvalidAlgorithm, "algorithm "+targetAlg.Name+" has no symmetric key length", nil)
	}
	cek := make([]byte, n)
	if err := rng.Fill(cek); err != nil {
		return nil, newErr(KindCryptoBackend, "generating CEK", err)
	}
	return cek, nil
}

func ecdhCurveOf(k keys.Key) (algorithm.Curve, error) {
	switch kk := k.(type) {
	case *keys.EC2Key:
		return kk.Crv, nil
	case *keys.OKPKey:
		return kk.Crv, nil
	default:
		return algorithm.CurveNone, newErr(KindInvalidKey, "key type has no ECDH curve", nil)
	}
}

func ecdhPub(k keys.Key) (*ecdh.PublicKey, error) {
	switch kk := k.(type) {
	case *keys.EC2Key:
		return kk.ECDHPublicKey()
	case *keys.OKPKey:
		return kk.ECDHPublicKey()
	default:
		return nil, newErr(KindInvalidKey, "key type has no ECDH public key", nil)
	}
}

func ecdhPriv(k keys.Key) (*ecdh.PrivateKey, error) {
	switch kk := k.(type) {
	case *keys.EC2Key:
		return kk.ECDHPrivateKey()
	case *keys.OKPKey:
		return kk.ECDHPrivateKey()
	default:
		return nil, newErr(KindInvalidKey, "key type has no ECDH private key", nil)
	}
}

func ecdhAgree(priv *ecdh.PrivateKey, pub *ecdh.PublicKey) ([]byte, error) {
	secret, err := primitives.NewX25519().Agree(nil, priv, pub)
	if err != nil {
		return nil, newErr(KindCryptoBackend, "ECDH agreement", err)
	}
	return secret, nil
}

// ephemeralKeyPairFor generates a fresh ephemeral key pair on the same curve
// as peer, returning it both as a keys.Key (to embed in the recipient's
// EphemeralKey header) and as an *ecdh.PrivateKey (to run the agreement).
func ephemeralKeyPairFor(peer keys.Key, rng primitives.RNG) (keys.Key, *ecdh.PrivateKey, error) {
	crv, err := ecdhCurveOf(peer)
	if err != nil {
		return nil, nil, err
	}
	ecdhCurve, ok := crv.ECDHCurve()
	if !ok {
		return nil, nil, newErr(KindInvalidKey, "curve has no ECDH binding", nil)
	}
	priv, err := ecdhCurve.GenerateKey(rngReader{rng})
	if err != nil {
		return nil, nil, newErr(KindCryptoBackend, "generating ephemeral key", err)
	}

	var pub keys.Key
	if _, isOKP := peer.(*keys.OKPKey); isOKP {
		pub, err = keys.NewOKPKey(crv, priv.PublicKey().Bytes(), nil)
	} else {
		raw := priv.PublicKey().Bytes() // uncompressed point: 0x04 || X || Y
		n := crv.CoordLen()
		if len(raw) != 1+2*n {
			return nil, nil, newErr(KindCryptoBackend, "unexpected ephemeral public key encoding", nil)
		}
		pub, err = keys.NewEC2Key(crv, raw[1:1+n], raw[1+n:], nil)
	}
	if err != nil {
		return nil, nil, newErr(KindCryptoBackend, "building ephemeral public key", err)
	}
	return pub, priv, nil
}

func decodePeerECDHKey(raw cborcodec.RawMessage, crv algorithm.Curve) (*ecdh.PublicKey, error) {
	k, err := keys.Decode(raw)
	if err != nil {
		return nil, newErr(KindInvalidKeyFormat, "decoding peer ECDH key", err)
	}
	return ecdhPub(k)
}

// SealOptions carries the optional sender/party context needed by
// DirectKeyAgreement and KeyAgreementWithKeyWrap recipients.
type SealOptions struct {
	// SenderKey is the sender's static key pair, required for ECDH-SS
	// variants. Ignored for ECDH-ES, which always generates an ephemeral
	// key pair instead.
	SenderKey keys.Key
	PartyU    PartyInfo
	PartyV    PartyInfo
}

// OpenOptions mirrors SealOptions for the decode/decrypt direction.
type OpenOptions struct {
	// SenderKey is the sender's static public key, required for ECDH-SS
	// variants.
	SenderKey keys.Key
	PartyU    PartyInfo
	PartyV    PartyInfo
}

func isStaticStatic(name string) bool { return strings.HasPrefix(name, "ECDH-SS") }

// Seal fills in r's headers and ciphertext for the encode/encrypt
// direction. receiverKey is the recipient's public (or symmetric) key.
// For KeyWrap and KeyAgreementWithKeyWrap, cek is the message's shared
// content key and must be non-nil; for Direct and DirectKeyAgreement, cek
// is ignored and the derived content key is returned instead.
func (r *Recipient) Seal(receiverKey keys.Key, targetAlg *algorithm.Algorithm, cek []byte, rng primitives.RNG, opts SealOptions) ([]byte, error) {
	alg, err := r.Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "recipient missing alg", err)
	}
	variant, err := variantOf(alg)
	if err != nil {
		return nil, err
	}

	switch variant {
	case VariantDirect:
		sym, ok := receiverKey.(*keys.SymmetricKey)
		if !ok {
			return nil, newErr(KindInvalidKey, "direct recipient requires a symmetric key", nil)
		}
		r.Ciphertext = []byte{}
		if alg.KDF() == nil {
			return sym.K, nil
		}
		return r.deriveDirectHKDF(alg, sym.K, targetAlg, opts)

	case VariantDirectKeyAgreement:
		secret, err := r.agreeSeal(alg, receiverKey, rng, opts)
		if err != nil {
			return nil, err
		}
		r.Ciphertext = []byte{}
		return r.deriveFromSecret(alg, secret, targetAlg.KeyLen*8, targetAlg.ID, opts)

	case VariantKeyWrap:
		if cek == nil {
			return nil, newErr(KindInvalidKey, "KeyWrap recipient requires a CEK", nil)
		}
		sym, ok := receiverKey.(*keys.SymmetricKey)
		if !ok {
			return nil, newErr(KindInvalidKey, "KeyWrap recipient requires a symmetric KEK", nil)
		}
		wrapped, err := alg.KeyWrap().Wrap(sym.K, cek)
		if err != nil {
			return nil, newErr(KindCryptoBackend, "AES key wrap", err)
		}
		r.Ciphertext = wrapped
		return cek, nil

	case VariantKeyAgreementWithKeyWrap:
		if cek == nil {
			return nil, newErr(KindInvalidKey, "KeyAgreementWithKeyWrap recipient requires a CEK", nil)
		}
		secret, err := r.agreeSeal(alg, receiverKey, rng, opts)
		if err != nil {
			return nil, err
		}
		kek, err := r.deriveFromSecret(alg, secret, alg.KeyLen*8, alg.ID, opts)
		if err != nil {
			return nil, err
		}
		wrapped, err := alg.KeyWrap().Wrap(kek, cek)
		if err != nil {
			return nil, newErr(KindCryptoBackend, "AES key wrap", err)
		}
		r.Ciphertext = wrapped
		return cek, nil

	default:
		return nil, newErr(KindUnsupportedRecipient, "unhandled recipient variant", nil)
	}
}

// agreeSeal performs the sender-side ECDH agreement: ephemeral-static for
// ECDH-ES (generating and embedding the ephemeral public key), or
// static-static for ECDH-SS (using opts.SenderKey).
func (r *Recipient) agreeSeal(alg *algorithm.Algorithm, receiverKey keys.Key, rng primitives.RNG, opts SealOptions) ([]byte, error) {
	receiverPub, err := ecdhPub(receiverKey)
	if err != nil {
		return nil, err
	}

	if isStaticStatic(alg.Name) {
		if opts.SenderKey == nil {
			return nil, newErr(KindInvalidKey, "ECDH-SS recipient requires a sender static key", nil)
		}
		senderPriv, err := ecdhPriv(opts.SenderKey)
		if err != nil {
			return nil, err
		}
		return ecdhAgree(senderPriv, receiverPub)
	}

	ephPub, ephPriv, err := ephemeralKeyPairFor(receiverKey, rng)
	if err != nil {
		return nil, err
	}
	encoded, err := ephPub.MarshalCBOR()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding ephemeral key", err)
	}
	r.Headers.SetUnprotected(headers.EphemeralKey, cborcodec.RawMessage(encoded))
	return ecdhAgree(ephPriv, receiverPub)
}

func (r *Recipient) deriveDirectHKDF(alg *algorithm.Algorithm, ikm []byte, targetAlg *algorithm.Algorithm, opts SealOptions) ([]byte, error) {
	return r.deriveFromSecret(alg, ikm, targetAlg.KeyLen*8, targetAlg.ID, opts)
}

func (r *Recipient) deriveFromSecret(alg *algorithm.Algorithm, secret []byte, keyDataLenBits int, algID int64, opts SealOptions) ([]byte, error) {
	protectedBytes, err := r.Headers.ProtectedBytes()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding recipient protected bucket", err)
	}
	ctx := &KDFContext{
		AlgorithmID: algID,
		PartyU:      opts.PartyU,
		PartyV:      opts.PartyV,
		KeyDataLen:  keyDataLenBits,
		Protected:   protectedBytes,
	}
	info, err := ctx.Marshal()
	if err != nil {
		return nil, newErr(KindCryptoBackend, "encoding KDF context", err)
	}
	var salt []byte
	if v, ok := r.Headers.Get(headers.Salt); ok {
		if b, ok := v.([]byte); ok {
			salt = b
		}
	}
	okm, err := alg.KDF().Derive(alg.HashID, secret, salt, info, keyDataLenBits/8)
	if err != nil {
		return nil, newErr(KindCryptoBackend, "HKDF expand", err)
	}
	return okm, nil
}

// Open recovers the content key this recipient carries, for the
// decode/decrypt direction. receiverKey is the caller's own private (or
// symmetric) key.
func (r *Recipient) Open(receiverKey keys.Key, targetAlg *algorithm.Algorithm, opts OpenOptions) ([]byte, error) {
	alg, err := r.Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "recipient missing alg", err)
	}
	variant, err := variantOf(alg)
	if err != nil {
		return nil, err
	}

	switch variant {
	case VariantDirect:
		sym, ok := receiverKey.(*keys.SymmetricKey)
		if !ok {
			return nil, newErr(KindInvalidKey, "direct recipient requires a symmetric key", nil)
		}
		if alg.KDF() == nil {
			return sym.K, nil
		}
		return r.deriveFromSecret(alg, sym.K, targetAlg.KeyLen*8, targetAlg.ID, SealOptions{PartyU: opts.PartyU, PartyV: opts.PartyV})

	case VariantDirectKeyAgreement:
		secret, err := r.agreeOpen(alg, receiverKey, opts)
		if err != nil {
			return nil, err
		}
		return r.deriveFromSecret(alg, secret, targetAlg.KeyLen*8, targetAlg.ID, SealOptions{PartyU: opts.PartyU, PartyV: opts.PartyV})

	case VariantKeyWrap:
		sym, ok := receiverKey.(*keys.SymmetricKey)
		if !ok {
			return nil, newErr(KindInvalidKey, "KeyWrap recipient requires a symmetric KEK", nil)
		}
		cek, err := alg.KeyWrap().Unwrap(sym.K, r.Ciphertext)
		if err != nil {
			return nil, newErr(KindDecryptionFailure, "AES key unwrap", err)
		}
		return cek, nil

	case VariantKeyAgreementWithKeyWrap:
		secret, err := r.agreeOpen(alg, receiverKey, opts)
		if err != nil {
			return nil, err
		}
		kek, err := r.deriveFromSecret(alg, secret, alg.KeyLen*8, alg.ID, SealOptions{PartyU: opts.PartyU, PartyV: opts.PartyV})
		if err != nil {
			return nil, err
		}
		cek, err := alg.KeyWrap().Unwrap(kek, r.Ciphertext)
		if err != nil {
			return nil, newErr(KindDecryptionFailure, "AES key unwrap", err)
		}
		return cek, nil

	default:
		return nil, newErr(KindUnsupportedRecipient, "unhandled recipient variant", nil)
	}
}

// agreeOpen performs the receiver-side ECDH agreement: against the
// recipient's embedded ephemeral public key for ECDH-ES, or against
// opts.SenderKey's static public key for ECDH-SS.
func (r *Recipient) agreeOpen(alg *algorithm.Algorithm, receiverKey keys.Key, opts OpenOptions) ([]byte, error) {
	receiverPriv, err := ecdhPriv(receiverKey)
	if err != nil {
		return nil, err
	}
	crv, err := ecdhCurveOf(receiverKey)
	if err != nil {
		return nil, err
	}

	if isStaticStatic(alg.Name) {
		if opts.SenderKey == nil {
			return nil, newErr(KindInvalidKey, "ECDH-SS recipient requires the sender's static public key", nil)
		}
		senderPub, err := ecdhPub(opts.SenderKey)
		if err != nil {
			return nil, err
		}
		return ecdhAgree(receiverPriv, senderPub)
	}

	v, ok := r.Headers.Get(headers.EphemeralKey)
	if !ok {
		return nil, newErr(KindInvalidHeader, "ECDH-ES recipient missing ephemeral key", nil)
	}
	raw, ok := v.(cborcodec.RawMessage)
	if !ok {
		return nil, newErr(KindInvalidHeader, "ephemeral key attribute has unexpected shape", nil)
	}
	senderPub, err := decodePeerECDHKey(raw, crv)
	if err != nil {
		return nil, err
	}
	return ecdhAgree(receiverPriv, senderPub)
}

// sealRecipients derives a message CEK across recipients per spec §4.7: a
// lone Direct/DirectKeyAgreement recipient derives the CEK itself; any
// other set shares one freshly generated CEK, individually wrapped.
func sealRecipients(recipients []*Recipient, recipientKeys []keys.Key, opts []SealOptions, targetAlg *algorithm.Algorithm, rng primitives.RNG) ([]byte, error) {
	alg0, err := recipients[0].Headers.Alg()
	if err != nil {
		return nil, newErr(KindInvalidAlgorithm, "recipient missing alg", err)
	}
	variant0, err := variantOf(alg0)
	if err != nil {
		return nil, err
	}

	if variant0 == VariantDirect || variant0 == VariantDirectKeyAgreement {
		return recipients[0].Seal(recipientKeys[0], targetAlg, nil, rng, opts[0])
	}

	cek, err := GenerateCEK(targetAlg, rng)
	if err != nil {
		return nil, err
	}
	for i, r := range recipients {
		if _, err := r.Seal(recipientKeys[i], targetAlg, cek, rng, opts[i]); err != nil {
			return nil, err
		}
	}
	return cek, nil
}

var _ io.Reader = rngReader{}

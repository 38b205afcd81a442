package cose

import (
	"crypto/subtle"

	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/internal/primitives"
)

// decodeBucket parses a received protected/unprotected header pair into a
// Bucket, retaining the protected bytes verbatim (spec §9 "Protected-bucket
// byte identity") and enforcing the overlap and crit invariants (spec §7,
// §8 invariant 8).
func decodeBucket(protectedRaw, unprotectedRaw []byte) (*headers.Bucket, error) {
	decodedProtected, err := headers.DecodeProtected(protectedRaw)
	if err != nil {
		return nil, newErr(KindMalformedMessage, "decoding protected header", err)
	}
	decodedUnprotected, err := headers.ParseMap(unprotectedRaw)
	if err != nil {
		return nil, newErr(KindMalformedMessage, "decoding unprotected header", err)
	}
	b := headers.New()
	b.SetProtectedBytes(protectedRaw, decodedProtected)
	b.Unprotected = decodedUnprotected
	if err := b.AssertNoOverlap(); err != nil {
		return nil, newErr(KindInvalidHeader, "attribute present in both buckets", err)
	}
	if err := b.ValidateCrit(); err != nil {
		return nil, newErr(KindInvalidCriticalValue, "crit validation", err)
	}
	return b, nil
}

func constantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}

// effectiveNonce resolves the AEAD nonce per spec §4.6: explicit IV wins;
// otherwise partial_IV XORed against the key's base_IV, left-padded to
// nonce length. Having both IV and partial_IV set is InvalidHeader.
func effectiveNonce(bucket *headers.Bucket, baseIV []byte, nonceLen int) ([]byte, error) {
	ivVal, hasIV := bucket.Get(headers.IV)
	partialVal, hasPartial := bucket.Get(headers.PartialIV)
	if hasIV && hasPartial {
		return nil, newErr(KindInvalidHeader, "IV and partial_IV both present", nil)
	}
	if hasIV {
		iv, ok := ivVal.([]byte)
		if !ok {
			return nil, newErr(KindInvalidHeader, "IV attribute is not a bstr", nil)
		}
		if len(iv) != nonceLen {
			return nil, newErr(KindInvalidHeader, "IV has wrong length for algorithm", nil)
		}
		return iv, nil
	}
	if hasPartial {
		partial, ok := partialVal.([]byte)
		if !ok {
			return nil, newErr(KindInvalidHeader, "partial_IV attribute is not a bstr", nil)
		}
		if len(baseIV) == 0 {
			return nil, newErr(KindInvalidHeader, "partial_IV present but key has no base_IV", nil)
		}
		if len(partial) > nonceLen {
			return nil, newErr(KindInvalidHeader, "partial_IV longer than nonce", nil)
		}
		padded := make([]byte, nonceLen)
		copy(padded[nonceLen-len(partial):], partial)
		nonce := make([]byte, nonceLen)
		for i := range nonce {
			bi := byte(0)
			if i < len(baseIV) {
				bi = baseIV[i]
			}
			nonce[i] = bi ^ padded[i]
		}
		return nonce, nil
	}
	return nil, newErr(KindInvalidHeader, "no IV or partial_IV present", nil)
}

// resolveOrGenerateNonce is effectiveNonce's encode-direction counterpart:
// if the caller has not already set IV or partial_IV, a fresh random nonce
// is generated with one RNG call and recorded as an unprotected IV.
func resolveOrGenerateNonce(bucket *headers.Bucket, baseIV []byte, nonceLen int, rng primitives.RNG) ([]byte, error) {
	_, hasIV := bucket.Get(headers.IV)
	_, hasPartial := bucket.Get(headers.PartialIV)
	if hasIV || hasPartial {
		return effectiveNonce(bucket, baseIV, nonceLen)
	}
	nonce := make([]byte, nonceLen)
	if err := rng.Fill(nonce); err != nil {
		return nil, newErr(KindCryptoBackend, "generating IV", err)
	}
	bucket.SetUnprotected(headers.IV, nonce)
	return nonce, nil
}

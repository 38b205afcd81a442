package primitives

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"math/big"
)

// ECDSASigner implements Signer over crypto/ecdsa, producing/consuming the
// fixed-length (r||s) signature encoding COSE requires (not ASN.1 DER).
type ECDSASigner struct {
	hash    crypto.Hash
	coordLn int
}

// NewECDSASigner returns an ECDSA signer binding for the given hash and
// per-coordinate byte length of the curve (32 for P-256, 48 for P-384, 66
// for P-521).
func NewECDSASigner(hash crypto.Hash, coordLen int) *ECDSASigner {
	return &ECDSASigner{hash: hash, coordLn: coordLen}
}

func (s *ECDSASigner) digest(msg []byte) []byte {
	switch s.hash {
	case crypto.SHA256:
		sum := sha256.Sum256(msg)
		return sum[:]
	case crypto.SHA384:
		sum := sha512.Sum384(msg)
		return sum[:]
	default:
		sum := sha512.Sum512(msg)
		return sum[:]
	}
}

func (s *ECDSASigner) Sign(key interface{}, msg []byte) ([]byte, error) {
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("primitives: ECDSA sign requires *ecdsa.PrivateKey")
	}
	r, sVal, err := ecdsa.Sign(rand.Reader, priv, s.digest(msg))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 2*s.coordLn)
	r.FillBytes(out[:s.coordLn])
	sVal.FillBytes(out[s.coordLn:])
	return out, nil
}

func (s *ECDSASigner) Verify(key interface{}, msg, sig []byte) (bool, error) {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("primitives: ECDSA verify requires *ecdsa.PublicKey")
	}
	if len(sig) != 2*s.coordLn {
		return false, nil
	}
	r := new(big.Int).SetBytes(sig[:s.coordLn])
	sVal := new(big.Int).SetBytes(sig[s.coordLn:])
	return ecdsa.Verify(pub, s.digest(msg), r, sVal), nil
}

// Ed25519Signer implements Signer over crypto/ed25519 (EdDSA with Ed25519).
type Ed25519Signer struct{}

// NewEd25519Signer returns the EdDSA/Ed25519 signer binding.
func NewEd25519Signer() *Ed25519Signer { return &Ed25519Signer{} }

func (s *Ed25519Signer) Sign(key interface{}, msg []byte) ([]byte, error) {
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("primitives: EdDSA sign requires ed25519.PrivateKey")
	}
	return ed25519.Sign(priv, msg), nil
}

func (s *Ed25519Signer) Verify(key interface{}, msg, sig []byte) (bool, error) {
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return false, fmt.Errorf("primitives: EdDSA verify requires ed25519.PublicKey")
	}
	return ed25519.Verify(pub, msg, sig), nil
}

// RSAPSSSigner implements Signer over RSA-PSS.
type RSAPSSSigner struct {
	hash       crypto.Hash
	saltLength int
}

// NewRSAPSSSigner returns an RSA-PSS signer binding for the given hash and
// PSS salt length.
func NewRSAPSSSigner(hash crypto.Hash, saltLength int) *RSAPSSSigner {
	return &RSAPSSSigner{hash: hash, saltLength: saltLength}
}

func (s *RSAPSSSigner) digest(msg []byte) []byte {
	h := s.hash.New()
	h.Write(msg)
	return h.Sum(nil)
}

func (s *RSAPSSSigner) Sign(key interface{}, msg []byte) ([]byte, error) {
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("primitives: RSA-PSS sign requires *rsa.PrivateKey")
	}
	opts := &rsa.PSSOptions{SaltLength: s.saltLength, Hash: s.hash}
	return rsa.SignPSS(rand.Reader, priv, s.hash, s.digest(msg), opts)
}

func (s *RSAPSSSigner) Verify(key interface{}, msg, sig []byte) (bool, error) {
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("primitives: RSA-PSS verify requires *rsa.PublicKey")
	}
	opts := &rsa.PSSOptions{SaltLength: s.saltLength, Hash: s.hash}
	err := rsa.VerifyPSS(pub, s.hash, s.digest(msg), sig, opts)
	return err == nil, nil
}

// RSAPKCS1Signer implements Signer over RSASSA-PKCS1-v1_5 (COSE's RS1/
// RS256/RS384/RS512).
type RSAPKCS1Signer struct {
	hash crypto.Hash
}

// NewRSAPKCS1Signer returns an RSASSA-PKCS1-v1_5 signer binding for the
// given hash.
func NewRSAPKCS1Signer(hash crypto.Hash) *RSAPKCS1Signer {
	return &RSAPKCS1Signer{hash: hash}
}

func (s *RSAPKCS1Signer) digest(msg []byte) []byte {
	h := s.hash.New()
	h.Write(msg)
	return h.Sum(nil)
}

func (s *RSAPKCS1Signer) Sign(key interface{}, msg []byte) ([]byte, error) {
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("primitives: RSA PKCS1v15 sign requires *rsa.PrivateKey")
	}
	return rsa.SignPKCS1v15(rand.Reader, priv, s.hash, s.digest(msg))
}

func (s *RSAPKCS1Signer) Verify(key interface{}, msg, sig []byte) (bool, error) {
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("primitives: RSA PKCS1v15 verify requires *rsa.PublicKey")
	}
	err := rsa.VerifyPKCS1v15(pub, s.hash, s.digest(msg), sig)
	return err == nil, nil
}

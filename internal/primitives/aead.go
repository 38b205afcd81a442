package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// AESGCM implements AEAD over AES-GCM, bound to a fixed key length. COSE's
// A128GCM/A192GCM/A256GCM all use a 96-bit nonce and a 128-bit tag.
type AESGCM struct {
	keyLen int
}

// NewAESGCM returns an AES-GCM AEAD binding for the given key length in
// bytes (16, 24, or 32).
func NewAESGCM(keyLen int) *AESGCM { return &AESGCM{keyLen: keyLen} }

func (a *AESGCM) KeyLen() int   { return a.keyLen }
func (a *AESGCM) NonceLen() int { return 12 }
func (a *AESGCM) TagLen() int   { return 16 }

func (a *AESGCM) gcm(key []byte) (cipher.AEAD, error) {
	if len(key) != a.keyLen {
		return nil, fmt.Errorf("primitives: AES-GCM key length %d, want %d", len(key), a.keyLen)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (a *AESGCM) Encrypt(key, nonce, aad, plaintext []byte) ([]byte, error) {
	gcm, err := a.gcm(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("primitives: AES-GCM nonce length %d, want %d", len(nonce), gcm.NonceSize())
	}
	return gcm.Seal(nil, nonce, plaintext, aad), nil
}

func (a *AESGCM) Decrypt(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	gcm, err := a.gcm(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("primitives: AES-GCM nonce length %d, want %d", len(nonce), gcm.NonceSize())
	}
	return gcm.Open(nil, nonce, ciphertext, aad)
}

// AESCCM implements AEAD over AES-CCM (RFC 3610) as registered by COSE's
// AES-CCM-{16,64}-{64,128}-{128,256} family: nonce length is either 13 or 7
// bytes, tag length either 8 or 16 bytes.
type AESCCM struct {
	keyLen   int
	nonceLen int
	tagLen   int
}

// NewAESCCM returns an AES-CCM AEAD binding for the given key/nonce/tag
// lengths in bytes.
func NewAESCCM(keyLen, nonceLen, tagLen int) *AESCCM {
	return &AESCCM{keyLen: keyLen, nonceLen: nonceLen, tagLen: tagLen}
}

func (a *AESCCM) KeyLen() int   { return a.keyLen }
func (a *AESCCM) NonceLen() int { return a.nonceLen }
func (a *AESCCM) TagLen() int   { return a.tagLen }

func (a *AESCCM) block(key []byte) (cipher.Block, error) {
	if len(key) != a.keyLen {
		return nil, fmt.Errorf("primitives: AES-CCM key length %d, want %d", len(key), a.keyLen)
	}
	return aes.NewCipher(key)
}

func (a *AESCCM) Encrypt(key, nonce, aad, plaintext []byte) ([]byte, error) {
	block, err := a.block(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != a.nonceLen {
		return nil, fmt.Errorf("primitives: AES-CCM nonce length %d, want %d", len(nonce), a.nonceLen)
	}
	return ccmSeal(block, nonce, plaintext, aad, a.tagLen)
}

func (a *AESCCM) Decrypt(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	block, err := a.block(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != a.nonceLen {
		return nil, fmt.Errorf("primitives: AES-CCM nonce length %d, want %d", len(nonce), a.nonceLen)
	}
	return ccmOpen(block, nonce, ciphertext, aad, a.tagLen)
}

// ChaCha20Poly1305 implements AEAD over ChaCha20-Poly1305 (RFC 8439), bound
// with a 256-bit key, 96-bit nonce, and 128-bit tag.
type ChaCha20Poly1305 struct{}

// NewChaCha20Poly1305 returns the ChaCha20-Poly1305 AEAD binding.
func NewChaCha20Poly1305() *ChaCha20Poly1305 { return &ChaCha20Poly1305{} }

func (c *ChaCha20Poly1305) KeyLen() int   { return chacha20poly1305.KeySize }
func (c *ChaCha20Poly1305) NonceLen() int { return chacha20poly1305.NonceSize }
func (c *ChaCha20Poly1305) TagLen() int   { return chacha20poly1305.Overhead }

func (c *ChaCha20Poly1305) aead(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}

func (c *ChaCha20Poly1305) Encrypt(key, nonce, aad, plaintext []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

func (c *ChaCha20Poly1305) Decrypt(key, nonce, aad, ciphertext []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}

package primitives

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

var kwDefaultIV = [8]byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

// AESKW implements KeyWrap over AES-KW (RFC 3394), used to wrap the CEK for
// KeyWrap and KeyAgreementWithKeyWrap recipients.
type AESKW struct {
	keyLen int
}

// NewAESKW returns an AES-KW binding for the given KEK length in bytes.
func NewAESKW(keyLen int) *AESKW { return &AESKW{keyLen: keyLen} }

func (w *AESKW) block(kek []byte) (cipher.Block, error) {
	if len(kek) != w.keyLen {
		return nil, fmt.Errorf("primitives: AES-KW KEK length %d, want %d", len(kek), w.keyLen)
	}
	return aes.NewCipher(kek)
}

// Wrap implements the RFC 3394 wrap algorithm.
func (w *AESKW) Wrap(kek, cek []byte) ([]byte, error) {
	block, err := w.block(kek)
	if err != nil {
		return nil, err
	}
	if len(cek)%8 != 0 || len(cek) < 16 {
		return nil, fmt.Errorf("primitives: AES-KW plaintext must be a multiple of 8 bytes, >= 16")
	}

	n := len(cek) / 8
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = append([]byte{}, cek[i*8:(i+1)*8]...)
	}

	a := append([]byte{}, kwDefaultIV[:]...)
	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], a)
			copy(buf[8:], r[i-1])
			block.Encrypt(buf, buf)

			t := uint64(n*j + i)
			tBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(tBytes, t)
			for k := range a {
				a[k] = buf[k] ^ tBytes[k]
			}
			r[i-1] = append([]byte{}, buf[8:]...)
		}
	}

	out := make([]byte, 8+len(cek))
	copy(out[:8], a)
	for i := 0; i < n; i++ {
		copy(out[8+i*8:], r[i])
	}
	return out, nil
}

// Unwrap implements the RFC 3394 unwrap algorithm and checks the integrity
// value in constant time.
func (w *AESKW) Unwrap(kek, wrapped []byte) ([]byte, error) {
	block, err := w.block(kek)
	if err != nil {
		return nil, err
	}
	if len(wrapped)%8 != 0 || len(wrapped) < 24 {
		return nil, fmt.Errorf("primitives: AES-KW ciphertext must be a multiple of 8 bytes, >= 24")
	}

	n := len(wrapped)/8 - 1
	a := append([]byte{}, wrapped[:8]...)
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = append([]byte{}, wrapped[8+i*8:8+(i+1)*8]...)
	}

	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			tBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(tBytes, t)

			xored := make([]byte, 8)
			for k := range a {
				xored[k] = a[k] ^ tBytes[k]
			}
			copy(buf[:8], xored)
			copy(buf[8:], r[i-1])
			block.Decrypt(buf, buf)

			a = append([]byte{}, buf[:8]...)
			r[i-1] = append([]byte{}, buf[8:]...)
		}
	}

	if subtle.ConstantTimeCompare(a, kwDefaultIV[:]) != 1 {
		return nil, fmt.Errorf("primitives: AES-KW integrity check failed")
	}

	out := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		out = append(out, r[i]...)
	}
	return out, nil
}

package primitives

import "crypto/rand"

// CryptoRand implements RNG over crypto/rand, the default random-byte source
// for fresh CEK and IV generation.
type CryptoRand struct{}

// NewCryptoRand returns the crypto/rand-backed RNG.
func NewCryptoRand() *CryptoRand { return &CryptoRand{} }

func (CryptoRand) Fill(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

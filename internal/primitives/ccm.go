package primitives

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

// ccmSeal and ccmOpen implement AES-CCM (RFC 3610) directly on top of a
// crypto/cipher.Block, since neither the standard library nor the wider
// example pack carries a ready-made CCM mode — CCM is itself a composition
// of CBC-MAC and CTR mode over the same block cipher, the way crypto/cipher
// composes GCM from a Block.
const ccmBlockSize = 16

func ccmNonceAndL(nonceLen int) (l int, err error) {
	// L is the length of the message-length field, in bytes; RFC 3610
	// ties it to the nonce length via L = 15 - nonceLen.
	l = 15 - nonceLen
	if l < 2 || l > 8 {
		return 0, fmt.Errorf("primitives: CCM nonce length %d out of range", nonceLen)
	}
	return l, nil
}

func ccmFormatB0(nonce, aad []byte, tagLen, l, msgLen int) []byte {
	b0 := make([]byte, ccmBlockSize)
	flags := byte(0)
	if len(aad) > 0 {
		flags |= 0x40
	}
	flags |= byte((tagLen-2)/2) << 3
	flags |= byte(l - 1)
	b0[0] = flags
	copy(b0[1:1+len(nonce)], nonce)
	putLengthField(b0[1+len(nonce):], l, msgLen)
	return b0
}

func putLengthField(dst []byte, l, value int) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(value))
	copy(dst[:l], buf[8-l:])
}

func ccmFormatAAD(aad []byte) []byte {
	if len(aad) == 0 {
		return nil
	}
	var header []byte
	switch {
	case len(aad) < 0xFF00:
		header = make([]byte, 2)
		binary.BigEndian.PutUint16(header, uint16(len(aad)))
	case len(aad) <= 0xFFFFFFFF:
		header = make([]byte, 6)
		header[0], header[1] = 0xFF, 0xFE
		binary.BigEndian.PutUint32(header[2:], uint32(len(aad)))
	default:
		header = make([]byte, 10)
		header[0], header[1] = 0xFF, 0xFF
		binary.BigEndian.PutUint64(header[2:], uint64(len(aad)))
	}
	block := append(header, aad...)
	if pad := len(block) % ccmBlockSize; pad != 0 {
		block = append(block, make([]byte, ccmBlockSize-pad)...)
	}
	return block
}

func ccmCBCMAC(block cipher.Block, nonce, aad, plaintext []byte, tagLen, l int) []byte {
	mac := make([]byte, ccmBlockSize)
	b0 := ccmFormatB0(nonce, aad, tagLen, l, len(plaintext))
	block.Encrypt(mac, b0)

	xorBlock := func(chunk []byte) {
		buf := make([]byte, ccmBlockSize)
		copy(buf, chunk)
		for i := range mac {
			mac[i] ^= buf[i]
		}
		block.Encrypt(mac, mac)
	}

	for _, chunk := range chunks(ccmFormatAAD(aad), ccmBlockSize) {
		xorBlock(chunk)
	}

	padded := make([]byte, len(plaintext))
	copy(padded, plaintext)
	if pad := len(padded) % ccmBlockSize; pad != 0 {
		padded = append(padded, make([]byte, ccmBlockSize-pad)...)
	}
	for _, chunk := range chunks(padded, ccmBlockSize) {
		xorBlock(chunk)
	}

	return mac[:tagLen]
}

func chunks(data []byte, size int) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		out = append(out, data[:n])
		data = data[n:]
	}
	return out
}

// ccmCounterBlock builds the CTR-mode counter block A_i for counter value i,
// per RFC 3610 section 2.3: same flags byte scheme as B0 but with the
// message-length field replaced by the counter, and the "adata present" bit
// cleared.
func ccmCounterBlock(nonce []byte, l, counter int) []byte {
	a := make([]byte, ccmBlockSize)
	a[0] = byte(l - 1)
	copy(a[1:1+len(nonce)], nonce)
	putLengthField(a[1+len(nonce):], l, counter)
	return a
}

func ccmCTR(block cipher.Block, nonce []byte, l int, startCounter int, data []byte) []byte {
	out := make([]byte, len(data))
	keystream := make([]byte, ccmBlockSize)
	counter := startCounter
	for off := 0; off < len(data); off += ccmBlockSize {
		a := ccmCounterBlock(nonce, l, counter)
		block.Encrypt(keystream, a)
		end := off + ccmBlockSize
		if end > len(data) {
			end = len(data)
		}
		for i := off; i < end; i++ {
			out[i] = data[i] ^ keystream[i-off]
		}
		counter++
	}
	return out
}

func ccmSeal(block cipher.Block, nonce, plaintext, aad []byte, tagLen int) ([]byte, error) {
	l, err := ccmNonceAndL(len(nonce))
	if err != nil {
		return nil, err
	}

	mac := ccmCBCMAC(block, nonce, aad, plaintext, tagLen, l)
	encMac := ccmCTR(block, nonce, l, 0, mac)

	ciphertext := ccmCTR(block, nonce, l, 1, plaintext)
	return append(ciphertext, encMac...), nil
}

func ccmOpen(block cipher.Block, nonce, ciphertextAndTag, aad []byte, tagLen int) ([]byte, error) {
	if len(ciphertextAndTag) < tagLen {
		return nil, fmt.Errorf("primitives: CCM ciphertext shorter than tag")
	}
	l, err := ccmNonceAndL(len(nonce))
	if err != nil {
		return nil, err
	}

	ciphertext := ciphertextAndTag[:len(ciphertextAndTag)-tagLen]
	tag := ciphertextAndTag[len(ciphertextAndTag)-tagLen:]

	plaintext := ccmCTR(block, nonce, l, 1, ciphertext)
	encMac := ccmCTR(block, nonce, l, 0, tag)
	mac := ccmCBCMAC(block, nonce, aad, plaintext, tagLen, l)

	if subtle.ConstantTimeCompare(mac, encMac) != 1 {
		return nil, fmt.Errorf("primitives: CCM authentication failed")
	}
	return plaintext, nil
}

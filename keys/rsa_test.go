package keys

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"testing"
)

func bigEndianTrim(n int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	i := 0
	for i < len(buf)-1 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

func TestRSAKeyMarshalDecodeRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	priv.Precompute()

	k, err := NewRSAKey(priv.N.Bytes(), bigEndianTrim(priv.E))
	if err != nil {
		t.Fatal(err)
	}
	k.D = priv.D.Bytes()
	k.P = priv.Primes[0].Bytes()
	k.Q = priv.Primes[1].Bytes()
	k.DP = priv.Precomputed.Dp.Bytes()
	k.DQ = priv.Precomputed.Dq.Bytes()
	k.QInv = priv.Precomputed.Qinv.Bytes()

	raw, err := k.MarshalCBOR()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	rk, ok := decoded.(*RSAKey)
	if !ok {
		t.Fatalf("Decode returned %T, want *RSAKey", decoded)
	}

	recovered, err := rk.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey: %v", err)
	}
	if recovered.D.Cmp(priv.D) != 0 {
		t.Error("decoded private exponent does not match the original")
	}
	if !bytes.Equal(rk.N, priv.N.Bytes()) {
		t.Error("decoded modulus does not match the original")
	}
}

func TestNewRSAKeyRequiresNAndE(t *testing.T) {
	if _, err := NewRSAKey(nil, []byte{1, 0, 1}); err == nil {
		t.Fatal("expected error for missing n")
	}
	if _, err := NewRSAKey([]byte{1, 2, 3}, nil); err == nil {
		t.Fatal("expected error for missing e")
	}
}

func TestRSAKeyPublicOnlyHasNoPrivateKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	k, err := NewRSAKey(priv.N.Bytes(), bigEndianTrim(priv.E))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.PrivateKey(); err == nil {
		t.Error("expected error calling PrivateKey on a public-only RSA key")
	}
}

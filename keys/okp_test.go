package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/silvergate-labs/cose/algorithm"
)

func TestOKPKeyEd25519RoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	privKey, err := NewOKPKey(algorithm.CurveEd25519, []byte(pub), priv.Seed())
	if err != nil {
		t.Fatal(err)
	}

	raw, err := privKey.MarshalCBOR()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	okp, ok := decoded.(*OKPKey)
	if !ok {
		t.Fatalf("Decode returned %T, want *OKPKey", decoded)
	}

	recoveredPriv, err := okp.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey: %v", err)
	}
	if !recoveredPriv.Equal(priv) {
		t.Error("decoded private key does not match the original")
	}

	recoveredPub, err := okp.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	if !bytes.Equal(recoveredPub, pub) {
		t.Error("decoded public key does not match the original")
	}
}

func TestOKPKeyRejectsWrongCurveConversion(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	k, err := NewOKPKey(algorithm.CurveEd25519, []byte(pub), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.ECDHPublicKey(); err == nil {
		t.Error("expected an Ed25519 key to be rejected for ECDH conversion")
	}
}

func TestNewOKPKeyValidatesLength(t *testing.T) {
	_, err := NewOKPKey(algorithm.CurveEd25519, []byte("too short"), nil)
	if err == nil {
		t.Fatal("expected error for wrong-length x")
	}
}

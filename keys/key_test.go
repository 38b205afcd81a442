package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/silvergate-labs/cose/algorithm"
)

func mustEC2(t *testing.T) (*EC2Key, *EC2Key) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	n := algorithm.CurveP256.CoordLen()
	x := leftPad(priv.X.Bytes(), n)
	y := leftPad(priv.Y.Bytes(), n)
	d := leftPad(priv.D.Bytes(), n)
	privKey, err := NewEC2Key(algorithm.CurveP256, x, y, d)
	if err != nil {
		t.Fatal(err)
	}
	pubKey, err := NewEC2Key(algorithm.CurveP256, x, y, nil)
	if err != nil {
		t.Fatal(err)
	}
	return privKey, pubKey
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func TestNewSymmetricKeyRejectsEmpty(t *testing.T) {
	if _, err := NewSymmetricKey(nil); err == nil {
		t.Fatal("expected error for empty symmetric key")
	}
	k, err := NewSymmetricKey([]byte("a valid shared secret"))
	if err != nil {
		t.Fatal(err)
	}
	if k.Type() != algorithm.KeyTypeSymmetric {
		t.Errorf("Type() = %v, want KeyTypeSymmetric", k.Type())
	}
}

func TestNewEC2KeyValidatesCoordinateLength(t *testing.T) {
	_, err := NewEC2Key(algorithm.CurveP256, []byte("too short"), nil, nil)
	if err == nil {
		t.Fatal("expected error for wrong-length x")
	}
	if _, ok := err.(*InvalidKeyFormatError); !ok {
		t.Errorf("expected *InvalidKeyFormatError, got %T", err)
	}
}

func TestEC2KeyMarshalDecodeRoundTrip(t *testing.T) {
	priv, _ := mustEC2(t)
	raw, err := priv.MarshalCBOR()
	if err != nil {
		t.Fatalf("MarshalCBOR: %v", err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ec2, ok := decoded.(*EC2Key)
	if !ok {
		t.Fatalf("Decode returned %T, want *EC2Key", decoded)
	}
	if !bytes.Equal(ec2.X, priv.X) || !bytes.Equal(ec2.Y, priv.Y) || !bytes.Equal(ec2.D, priv.D) {
		t.Error("decoded EC2 key does not match the original")
	}
	if ec2.Crv != algorithm.CurveP256 {
		t.Errorf("decoded Crv = %v, want CurveP256", ec2.Crv)
	}
}

func TestSymmetricKeyMarshalDecodeRoundTrip(t *testing.T) {
	k, err := NewSymmetricKey([]byte("0123456789abcdef"), func(c *Common) {
		c.Kid = []byte("key-1")
	})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := k.MarshalCBOR()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	sk, ok := decoded.(*SymmetricKey)
	if !ok {
		t.Fatalf("Decode returned %T, want *SymmetricKey", decoded)
	}
	if !bytes.Equal(sk.K, k.K) {
		t.Error("decoded symmetric key bytes mismatch")
	}
	if !bytes.Equal(sk.Kid, []byte("key-1")) {
		t.Errorf("decoded kid = %q, want %q", sk.Kid, "key-1")
	}
}

func TestCheckRejectsWrongKeyType(t *testing.T) {
	es256, _ := algorithm.LookupName("ES256")
	sym, err := NewSymmetricKey([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	if err := Check(sym, OpVerify, es256); err == nil {
		t.Fatal("expected Check to reject a symmetric key for an EC2-only algorithm")
	}
}

func TestCheckRejectsDisallowedOp(t *testing.T) {
	es256, _ := algorithm.LookupName("ES256")
	_, pub := mustEC2(t)
	pub.KeyOps = []Op{OpSign}

	if err := Check(pub, OpVerify, es256); err == nil {
		t.Fatal("expected Check to reject an op not listed in key_ops")
	}
}

func TestCheckRejectsMismatchedBoundAlgorithm(t *testing.T) {
	es256, _ := algorithm.LookupName("ES256")
	es384, _ := algorithm.LookupName("ES384")
	priv, _ := mustEC2(t)
	priv.Alg = es256

	if err := Check(priv, OpSign, es384); err == nil {
		t.Fatal("expected Check to reject a key bound to a different algorithm")
	}
	if err := Check(priv, OpSign, es256); err != nil {
		t.Errorf("Check should accept the algorithm the key is bound to, got %v", err)
	}
}

func TestCheckEmptyKeyOpsPermitsAnyOp(t *testing.T) {
	es256, _ := algorithm.LookupName("ES256")
	_, pub := mustEC2(t)
	if err := Check(pub, OpVerify, es256); err != nil {
		t.Errorf("empty key_ops should permit any operation, got %v", err)
	}
}

func TestDecodeRejectsMissingKty(t *testing.T) {
	if _, err := Decode([]byte{0xa0}); err == nil {
		t.Fatal("expected error decoding a key with no kty")
	}
}

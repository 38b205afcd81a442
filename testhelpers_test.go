package cose

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/internal/primitives"
	"github.com/silvergate-labs/cose/keys"
)

func testRNG() primitives.RNG { return primitives.NewCryptoRand() }

func mustEC2Key(t testingT, crv algorithm.Curve, curve elliptic.Curve) (*keys.EC2Key, *keys.EC2Key) {
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("generating EC2 key: %v", err)
	}
	n := crv.CoordLen()
	x := leftPad(priv.X.Bytes(), n)
	y := leftPad(priv.Y.Bytes(), n)
	d := leftPad(priv.D.Bytes(), n)

	privKey, err := keys.NewEC2Key(crv, x, y, d)
	if err != nil {
		t.Fatalf("building private EC2 key: %v", err)
	}
	pubKey, err := keys.NewEC2Key(crv, x, y, nil)
	if err != nil {
		t.Fatalf("building public EC2 key: %v", err)
	}
	return privKey, pubKey
}

func mustOKPKey(t testingT) (*keys.OKPKey, *keys.OKPKey) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating OKP key: %v", err)
	}
	privKey, err := keys.NewOKPKey(algorithm.CurveEd25519, []byte(pub), priv.Seed())
	if err != nil {
		t.Fatalf("building private OKP key: %v", err)
	}
	pubKey, err := keys.NewOKPKey(algorithm.CurveEd25519, []byte(pub), nil)
	if err != nil {
		t.Fatalf("building public OKP key: %v", err)
	}
	return privKey, pubKey
}

func mustSymmetricKey(t testingT, n int) *keys.SymmetricKey {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("generating symmetric key: %v", err)
	}
	k, err := keys.NewSymmetricKey(buf)
	if err != nil {
		t.Fatalf("building symmetric key: %v", err)
	}
	return k
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

// testingT is the subset of *testing.T used by the helpers above, so they
// can be called from any _test.go file without importing "testing" twice.
type testingT interface {
	Fatalf(format string, args ...interface{})
}

package algorithm

import "testing"

func TestLookupKnownIdentifiers(t *testing.T) {
	cases := []struct {
		name string
		id   int64
	}{
		{"ES256", -7},
		{"EdDSA", -8},
		{"A128GCM", 1},
		{"HMAC 256/256", 5},
		{"A128KW", -3},
		{"direct", -6},
		{"ECDH-ES+A128KW", -29},
	}
	for _, c := range cases {
		byName, err := LookupName(c.name)
		if err != nil {
			t.Errorf("LookupName(%q): %v", c.name, err)
			continue
		}
		if byName.ID != c.id {
			t.Errorf("LookupName(%q).ID = %d, want %d", c.name, byName.ID, c.id)
		}
		byID, err := Lookup(c.id)
		if err != nil {
			t.Errorf("Lookup(%d): %v", c.id, err)
			continue
		}
		if byID.Name != c.name {
			t.Errorf("Lookup(%d).Name = %q, want %q", c.id, byID.Name, c.name)
		}
	}
}

func TestLookupUnknownReturnsTypedError(t *testing.T) {
	if _, err := Lookup(999999); err == nil {
		t.Fatal("expected error for unknown id")
	} else if _, ok := err.(*UnknownAlgorithmError); !ok {
		t.Errorf("expected *UnknownAlgorithmError, got %T", err)
	}

	if _, err := LookupName("not-a-real-algorithm"); err == nil {
		t.Fatal("expected error for unknown name")
	} else if _, ok := err.(*UnknownAlgorithmError); !ok {
		t.Errorf("expected *UnknownAlgorithmError, got %T", err)
	}
}

func TestCurveCoordLen(t *testing.T) {
	cases := []struct {
		c    Curve
		want int
	}{
		{CurveP256, 32},
		{CurveP384, 48},
		{CurveP521, 66},
		{CurveEd25519, 32},
		{CurveX25519, 32},
		{CurveEd448, 57},
		{CurveX448, 57},
		{CurveNone, 0},
	}
	for _, c := range cases {
		if got := c.c.CoordLen(); got != c.want {
			t.Errorf("Curve(%d).CoordLen() = %d, want %d", c.c, got, c.want)
		}
	}
}

func TestCurveECDHCurve(t *testing.T) {
	if _, ok := CurveP256.ECDHCurve(); !ok {
		t.Error("P-256 should have an ECDH binding")
	}
	if _, ok := CurveEd25519.ECDHCurve(); ok {
		t.Error("Ed25519 (signature-only OKP curve) should have no ECDH binding")
	}
	if _, ok := CurveX25519.ECDHCurve(); !ok {
		t.Error("X25519 should have an ECDH binding")
	}
}

func TestRegistryKindsBoundToPrimitives(t *testing.T) {
	es256, err := LookupName("ES256")
	if err != nil {
		t.Fatal(err)
	}
	if es256.Kind != KindSignature || es256.Signer() == nil {
		t.Error("ES256 should be a KindSignature algorithm with a bound Signer")
	}

	a128gcm, err := LookupName("A128GCM")
	if err != nil {
		t.Fatal(err)
	}
	if a128gcm.Kind != KindAEAD || a128gcm.AEAD() == nil {
		t.Error("A128GCM should be a KindAEAD algorithm with a bound AEAD")
	}

	a128kw, err := LookupName("A128KW")
	if err != nil {
		t.Fatal(err)
	}
	if a128kw.Kind != KindKeyWrap || a128kw.KeyWrap() == nil {
		t.Error("A128KW should be a KindKeyWrap algorithm with a bound KeyWrap")
	}

	hkdf, err := LookupName("direct+HKDF-SHA-256")
	if err != nil {
		t.Fatal(err)
	}
	if hkdf.KDF() == nil {
		t.Error("direct+HKDF-SHA-256 should have a bound KDF")
	}
}

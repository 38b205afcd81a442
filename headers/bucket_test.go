package headers

import (
	"testing"

	"github.com/silvergate-labs/cose/internal/cborcodec"
)

func TestBucketOverlapDetection(t *testing.T) {
	b := New()
	b.SetProtected(Kid, []byte("a"))
	if err := b.AssertNoOverlap(); err != nil {
		t.Fatalf("no overlap expected: %v", err)
	}

	b.SetUnprotected(Kid, []byte("a"))
	err := b.AssertNoOverlap()
	if err == nil {
		t.Fatal("expected an OverlapError")
	}
	overlapErr, ok := err.(*OverlapError)
	if !ok {
		t.Fatalf("expected *OverlapError, got %T", err)
	}
	if overlapErr.Label != Kid {
		t.Errorf("OverlapError.Label = %d, want %d", overlapErr.Label, Kid)
	}
}

func TestBucketGetPrefersProtected(t *testing.T) {
	b := New()
	b.SetUnprotected(ContentType, "application/unprotected")
	b.SetProtected(ContentType, "application/protected")

	v, ok := b.Get(ContentType)
	if !ok {
		t.Fatal("expected ContentType to be found")
	}
	if v.(string) != "application/protected" {
		t.Errorf("Get returned %q, want the protected value", v)
	}
}

func TestBucketValidateCrit(t *testing.T) {
	b := New()
	b.SetProtected(ContentType, "text/plain")
	b.SetProtected(Crit, []Label{ContentType})
	if err := b.ValidateCrit(); err != nil {
		t.Errorf("valid crit should pass, got %v", err)
	}

	// Naming an attribute not present in protected is an error.
	b2 := New()
	b2.SetProtected(Crit, []Label{ContentType})
	err := b2.ValidateCrit()
	if _, ok := err.(*CriticalValueError); !ok {
		t.Errorf("expected *CriticalValueError, got %v (%T)", err, err)
	}

	// Naming an unregistered label is also an error, even if present.
	b3 := New()
	b3.SetProtected(Label(1000), []byte("x"))
	b3.SetProtected(Crit, []Label{Label(1000)})
	err = b3.ValidateCrit()
	if _, ok := err.(*CriticalValueError); !ok {
		t.Errorf("expected *CriticalValueError for unregistered label, got %v (%T)", err, err)
	}
}

func TestBucketProtectedBytesRoundTrip(t *testing.T) {
	b := New()
	b.SetProtected(ContentType, "application/cose")

	encoded, err := b.ProtectedBytes()
	if err != nil {
		t.Fatalf("ProtectedBytes: %v", err)
	}
	if len(encoded) == 0 {
		t.Fatal("expected non-empty encoding for a non-empty protected map")
	}

	decoded, err := DecodeProtected(encoded)
	if err != nil {
		t.Fatalf("DecodeProtected: %v", err)
	}
	b2 := New()
	b2.SetProtectedBytes(encoded, decoded)

	reEncoded, err := b2.ProtectedBytes()
	if err != nil {
		t.Fatalf("ProtectedBytes after SetProtectedBytes: %v", err)
	}
	if !cborcodec.EncodedMapEqual(encoded, reEncoded) {
		t.Error("SetProtectedBytes must preserve the original bytes verbatim")
	}
}

func TestBucketEmptyProtectedEncodesToZeroLength(t *testing.T) {
	b := New()
	encoded, err := b.ProtectedBytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) != 0 {
		t.Errorf("empty protected bucket should encode to a zero-length bstr, got %d bytes", len(encoded))
	}
}

func TestParseMapRoundTripsUnknownAttribute(t *testing.T) {
	raw, err := cborcodec.Marshal(map[int64]int64{1000: 42})
	if err != nil {
		t.Fatal(err)
	}
	m, err := ParseMap(raw)
	if err != nil {
		t.Fatalf("ParseMap: %v", err)
	}
	v, ok := m[Label(1000)]
	if !ok {
		t.Fatal("expected unknown label 1000 to be present")
	}
	// An unknown attribute keeps its raw CBOR value rather than being parsed.
	if _, ok := v.(cborcodec.RawMessage); !ok {
		t.Errorf("expected unknown attribute to decode as RawMessage, got %T", v)
	}
}

func TestParseMapDecodesAlgByIntAndText(t *testing.T) {
	raw, err := cborcodec.Marshal(map[int64]int64{int64(Alg): -7})
	if err != nil {
		t.Fatal(err)
	}
	m, err := ParseMap(raw)
	if err != nil {
		t.Fatalf("ParseMap: %v", err)
	}
	if m[Alg] == nil {
		t.Fatal("expected alg to be resolved")
	}

	raw, err = cborcodec.Marshal(map[int64]string{int64(Alg): "ES256"})
	if err != nil {
		t.Fatal(err)
	}
	m, err = ParseMap(raw)
	if err != nil {
		t.Fatalf("ParseMap with text alg: %v", err)
	}
	if m[Alg] == nil {
		t.Fatal("expected text alg to be resolved")
	}
}

func TestKnownAndName(t *testing.T) {
	if !Known(Alg) {
		t.Error("Alg should be a known attribute")
	}
	if Known(Label(1000)) {
		t.Error("label 1000 should not be known")
	}
	if Name(Kid) != "kid" {
		t.Errorf("Name(Kid) = %q, want \"kid\"", Name(Kid))
	}
	if Name(Label(1000)) != "" {
		t.Errorf("Name of an unknown label should be empty, got %q", Name(Label(1000)))
	}
}

package cose

import (
	"bytes"
	"crypto/elliptic"
	"testing"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
)

func TestSignMultipleSignersRoundTrip(t *testing.T) {
	es256Priv, es256Pub := mustEC2Key(t, algorithm.CurveP256, elliptic.P256())
	es512Priv, es512Pub := mustEC2Key(t, algorithm.CurveP521, elliptic.P521())
	es256, _ := algorithm.LookupName("ES256")
	es512, _ := algorithm.LookupName("ES512")

	payload := []byte("signed by two parties")

	msg := NewSign()
	msg.Payload = payload

	signer1 := NewSigner()
	signer1.Headers.SetProtected(headers.Alg, es256.ID)
	signer1.Headers.SetUnprotected(headers.Kid, []byte("signer-256"))
	if err := msg.AddSigner(signer1, es256Priv, nil); err != nil {
		t.Fatalf("AddSigner es256: %v", err)
	}

	signer2 := NewSigner()
	signer2.Headers.SetProtected(headers.Alg, es512.ID)
	signer2.Headers.SetUnprotected(headers.Kid, []byte("signer-512"))
	if err := msg.AddSigner(signer2, es512Priv, nil); err != nil {
		t.Fatalf("AddSigner es512: %v", err)
	}

	raw, err := msg.Marshal(true)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := Decode(raw, MessageTypeUnknown)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.(*Sign)
	if !ok {
		t.Fatalf("Decode returned %T, want *Sign", decoded)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("payload mismatch")
	}
	if len(got.Signers) != 2 {
		t.Fatalf("expected 2 signers, got %d", len(got.Signers))
	}

	if ok, err := got.VerifySigner(0, es256Pub, nil); err != nil || !ok {
		t.Errorf("VerifySigner(0) = %v, %v", ok, err)
	}
	if ok, err := got.VerifySigner(1, es512Pub, nil); err != nil || !ok {
		t.Errorf("VerifySigner(1) = %v, %v", ok, err)
	}

	// Cross-checking signer 0's signature against signer 1's key must fail.
	if ok, _ := got.VerifySigner(0, es512Pub, nil); ok {
		t.Error("VerifySigner(0) unexpectedly succeeded against the wrong key")
	}
}

func TestSignRequiresPayloadBeforeSigners(t *testing.T) {
	priv, _ := mustEC2Key(t, algorithm.CurveP256, elliptic.P256())
	es256, _ := algorithm.LookupName("ES256")

	msg := NewSign()
	signer := NewSigner()
	signer.Headers.SetProtected(headers.Alg, es256.ID)
	err := msg.AddSigner(signer, priv, nil)
	if !HasKind(err, KindMalformedMessage) {
		t.Errorf("expected KindMalformedMessage, got %v", err)
	}
}

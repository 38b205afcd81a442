package cose

import (
	"bytes"
	"testing"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
)

func TestMac0RoundTrip(t *testing.T) {
	key := mustSymmetricKey(t, 32)
	alg, err := algorithm.LookupName("HMAC 256/64")
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("authenticate me")

	msg := NewMac0()
	msg.Headers.SetProtected(headers.Alg, alg.ID)
	if err := msg.ComputeTag(key, payload, nil); err != nil {
		t.Fatalf("ComputeTag: %v", err)
	}

	raw, err := msg.Marshal(true)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(raw, MessageTypeUnknown)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := decoded.(*Mac0)
	if !ok {
		t.Fatalf("Decode returned %T, want *Mac0", decoded)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Error("payload mismatch")
	}

	ok2, err := got.VerifyTag(key, nil)
	if err != nil || !ok2 {
		t.Errorf("VerifyTag = %v, %v", ok2, err)
	}
}

func TestMac0TamperedTagFails(t *testing.T) {
	key := mustSymmetricKey(t, 32)
	alg, _ := algorithm.LookupName("HMAC 256/64")

	msg := NewMac0()
	msg.Headers.SetProtected(headers.Alg, alg.ID)
	if err := msg.ComputeTag(key, []byte("data"), nil); err != nil {
		t.Fatal(err)
	}
	msg.Tag[0] ^= 0xFF

	ok, err := msg.VerifyTag(key, nil)
	if ok {
		t.Error("VerifyTag should reject a tampered tag")
	}
	if !HasKind(err, KindVerificationFailure) {
		t.Errorf("expected KindVerificationFailure, got %v", err)
	}
}

func TestMac0WrongKeyFails(t *testing.T) {
	key := mustSymmetricKey(t, 32)
	wrongKey := mustSymmetricKey(t, 32)
	alg, _ := algorithm.LookupName("HMAC 256/64")

	msg := NewMac0()
	msg.Headers.SetProtected(headers.Alg, alg.ID)
	if err := msg.ComputeTag(key, []byte("data"), nil); err != nil {
		t.Fatal(err)
	}

	ok, _ := msg.VerifyTag(wrongKey, nil)
	if ok {
		t.Error("VerifyTag should reject the wrong key")
	}
}

package cose

import (
	"bytes"
	"testing"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
)

func TestEncrypt0RoundTrip(t *testing.T) {
	alg, err := algorithm.LookupName("AES-CCM-16-64-128")
	if err != nil {
		t.Fatal(err)
	}
	key := mustSymmetricKey(t, alg.KeyLen)
	payload := []byte("confidential payload")

	msg := NewEncrypt0()
	msg.Headers.SetProtected(headers.Alg, alg.ID)
	if err := msg.Encrypt(key, payload, nil, testRNG()); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, err := msg.Marshal(true)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(raw, MessageTypeUnknown)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := decoded.(*Encrypt0)
	if !ok {
		t.Fatalf("Decode returned %T, want *Encrypt0", decoded)
	}

	pt, err := got.Decrypt(key, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, payload) {
		t.Errorf("plaintext mismatch: got %q want %q", pt, payload)
	}
}

func TestEncrypt0TamperedCiphertextFails(t *testing.T) {
	alg, _ := algorithm.LookupName("A128GCM")
	key := mustSymmetricKey(t, alg.KeyLen)

	msg := NewEncrypt0()
	msg.Headers.SetProtected(headers.Alg, alg.ID)
	if err := msg.Encrypt(key, []byte("secret"), nil, testRNG()); err != nil {
		t.Fatal(err)
	}
	msg.Ciphertext[0] ^= 0xFF

	_, err := msg.Decrypt(key, nil)
	if !HasKind(err, KindDecryptionFailure) {
		t.Errorf("expected KindDecryptionFailure, got %v", err)
	}
}

func TestEncrypt0ExplicitIVRejectsWrongLength(t *testing.T) {
	alg, _ := algorithm.LookupName("A128GCM")
	key := mustSymmetricKey(t, alg.KeyLen)

	msg := NewEncrypt0()
	msg.Headers.SetProtected(headers.Alg, alg.ID)
	msg.Headers.SetUnprotected(headers.IV, []byte("too-short"))

	err := msg.Encrypt(key, []byte("x"), nil, testRNG())
	if !HasKind(err, KindInvalidHeader) {
		t.Errorf("expected KindInvalidHeader, got %v", err)
	}
}

func TestEncrypt0RejectsNonAEADAlg(t *testing.T) {
	alg, _ := algorithm.LookupName("ES256")
	key := mustSymmetricKey(t, 16)

	msg := NewEncrypt0()
	msg.Headers.SetProtected(headers.Alg, alg.ID)
	err := msg.Encrypt(key, []byte("x"), nil, testRNG())
	if !HasKind(err, KindInvalidAlgorithm) {
		t.Errorf("expected KindInvalidAlgorithm, got %v", err)
	}
}

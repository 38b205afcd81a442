package cose

import (
	"bytes"
	"crypto/elliptic"
	"testing"

	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/keys"
)

func TestEncryptECDHESKeyWrapRoundTrip(t *testing.T) {
	aeadAlg, _ := algorithm.LookupName("A128GCM")
	recipientAlg, _ := algorithm.LookupName("ECDH-ES+A128KW")

	receiverPriv, receiverPub := mustEC2Key(t, algorithm.CurveP256, elliptic.P256())
	payload := []byte("message for one ECDH recipient")

	msg := NewEncrypt()
	msg.Headers.SetProtected(headers.Alg, aeadAlg.ID)

	r := NewRecipient()
	r.Headers.SetProtected(headers.Alg, recipientAlg.ID)

	cek, err := msg.Protect([]*Recipient{r}, []keys.Key{receiverPub}, []SealOptions{{}}, payload, nil, testRNG())
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}

	raw, err := msg.Marshal(true)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(raw, MessageTypeUnknown)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := decoded.(*Encrypt)
	if !ok {
		t.Fatalf("Decode returned %T, want *Encrypt", decoded)
	}

	recoveredCEK, err := got.Unprotect(0, receiverPriv, OpenOptions{})
	if err != nil {
		t.Fatalf("Unprotect: %v", err)
	}
	if !bytes.Equal(recoveredCEK, cek) {
		t.Error("recovered CEK does not match the sealed CEK")
	}

	pt, err := got.Decrypt(recoveredCEK, nil)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, payload) {
		t.Errorf("plaintext mismatch: got %q want %q", pt, payload)
	}
}

func TestEncryptECDHSSRequiresSenderKey(t *testing.T) {
	aeadAlg, _ := algorithm.LookupName("A128GCM")
	recipientAlg, _ := algorithm.LookupName("ECDH-SS+A128KW")
	_, receiverPub := mustEC2Key(t, algorithm.CurveP256, elliptic.P256())

	msg := NewEncrypt()
	msg.Headers.SetProtected(headers.Alg, aeadAlg.ID)

	r := NewRecipient()
	r.Headers.SetProtected(headers.Alg, recipientAlg.ID)

	_, err := msg.Protect([]*Recipient{r}, []keys.Key{receiverPub}, []SealOptions{{}}, []byte("x"), nil, testRNG())
	if !HasKind(err, KindInvalidKey) {
		t.Errorf("expected KindInvalidKey for missing sender key, got %v", err)
	}
}

func TestEncryptECDHSSRoundTrip(t *testing.T) {
	aeadAlg, _ := algorithm.LookupName("A128GCM")
	recipientAlg, _ := algorithm.LookupName("ECDH-SS+A128KW")

	senderPriv, senderPub := mustEC2Key(t, algorithm.CurveP256, elliptic.P256())
	receiverPriv, receiverPub := mustEC2Key(t, algorithm.CurveP256, elliptic.P256())
	payload := []byte("static-static agreement")

	msg := NewEncrypt()
	msg.Headers.SetProtected(headers.Alg, aeadAlg.ID)

	r := NewRecipient()
	r.Headers.SetProtected(headers.Alg, recipientAlg.ID)

	cek, err := msg.Protect(
		[]*Recipient{r},
		[]keys.Key{receiverPub},
		[]SealOptions{{SenderKey: senderPriv}},
		payload, nil, testRNG(),
	)
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}

	recoveredCEK, err := msg.Unprotect(0, receiverPriv, OpenOptions{SenderKey: senderPub})
	if err != nil {
		t.Fatalf("Unprotect: %v", err)
	}
	if !bytes.Equal(recoveredCEK, cek) {
		t.Error("recovered CEK does not match the sealed CEK")
	}
}

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"

	"github.com/google/uuid"
)

// fakeContextManager is an in-memory ContextManager stand-in, enough to
// exercise IdentityHandler/CoseSigner without a real database.
type fakeContextManager struct {
	algorithms map[uuid.UUID]string
	privKeys   map[uuid.UUID][]byte
	pubKeys    map[uuid.UUID][]byte
	authTokens map[uuid.UUID]string
}

func newFakeContextManager() *fakeContextManager {
	return &fakeContextManager{
		algorithms: map[uuid.UUID]string{},
		privKeys:   map[uuid.UUID][]byte{},
		pubKeys:    map[uuid.UUID][]byte{},
		authTokens: map[uuid.UUID]string{},
	}
}

func (f *fakeContextManager) StartTransaction(ctx context.Context) (interface{}, error) { return f, nil }
func (f *fakeContextManager) CloseTransaction(tx interface{}, commit bool) error         { return nil }

func (f *fakeContextManager) StoreNewIdentity(tx interface{}, id Identity) error {
	if _, exists := f.privKeys[id.Uid]; exists {
		return ErrExists
	}
	f.algorithms[id.Uid] = id.Algorithm
	f.privKeys[id.Uid] = id.PrivateKey
	f.pubKeys[id.Uid] = id.PublicKey
	f.authTokens[id.Uid] = id.AuthToken
	return nil
}

func (f *fakeContextManager) ExistsPrivateKey(uid uuid.UUID) (bool, error) {
	_, ok := f.privKeys[uid]
	return ok, nil
}

func (f *fakeContextManager) GetPrivateKey(uid uuid.UUID) ([]byte, error) {
	k, ok := f.privKeys[uid]
	if !ok {
		return nil, ErrNotExist
	}
	return k, nil
}

func (f *fakeContextManager) ExistsPublicKey(uid uuid.UUID) (bool, error) {
	_, ok := f.pubKeys[uid]
	return ok, nil
}

func (f *fakeContextManager) GetPublicKey(uid uuid.UUID) ([]byte, error) {
	k, ok := f.pubKeys[uid]
	if !ok {
		return nil, ErrNotExist
	}
	return k, nil
}

func (f *fakeContextManager) GetPrivateKeyAndAlgorithm(uid uuid.UUID) (string, []byte, error) {
	a, ok := f.algorithms[uid]
	if !ok {
		return "", nil, ErrNotExist
	}
	k, ok := f.privKeys[uid]
	if !ok {
		return "", nil, ErrNotExist
	}
	return a, k, nil
}

func (f *fakeContextManager) GetAuthToken(uid uuid.UUID) (string, error) {
	tok, ok := f.authTokens[uid]
	if !ok {
		return "", ErrNotExist
	}
	return tok, nil
}

func (f *fakeContextManager) SetAuthToken(tx interface{}, uid uuid.UUID, authToken string) error {
	f.authTokens[uid] = authToken
	return nil
}

func (f *fakeContextManager) ExistsUuidForPublicKey(pubKey []byte) (bool, error) {
	for id, k := range f.pubKeys {
		if bytes.Equal(k, pubKey) {
			_ = id
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContextManager) GetUuidForPublicKey(pubKey []byte) (uuid.UUID, error) {
	for id, k := range f.pubKeys {
		if bytes.Equal(k, pubKey) {
			return id, nil
		}
	}
	return uuid.Nil, ErrNotExist
}

func newTestSigner(t *testing.T, algName string) (*CoseSigner, *IdentityHandler, uuid.UUID) {
	t.Helper()
	secret := make([]byte, secretLength)
	if _, err := rand.Read(secret); err != nil {
		t.Fatal(err)
	}
	enc, err := NewKeyEncrypter(secret)
	if err != nil {
		t.Fatal(err)
	}
	handler := &IdentityHandler{
		ctxManager: newFakeContextManager(),
		encrypter:  enc,
		defaultAlg: algName,
	}

	uid := uuid.New()
	if _, err := handler.initIdentity(uid, "test-token"); err != nil {
		t.Fatalf("initIdentity: %v", err)
	}

	return NewCoseSigner(handler), handler, uid
}

func TestCoseSignerSignAndVerifyRoundTrip(t *testing.T) {
	signer, _, uid := newTestSigner(t, "ES256")
	payload := []byte("a payload signed by the registered identity")

	raw, algName, err := signer.Sign(uid, payload)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if algName != "ES256" {
		t.Errorf("Sign returned algName %q, want %q", algName, "ES256")
	}

	got, verifiedUID, verifiedAlg, err := signer.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verifiedUID != uid {
		t.Errorf("Verify returned uid %s, want %s", verifiedUID, uid)
	}
	if verifiedAlg != "ES256" {
		t.Errorf("Verify returned algName %q, want %q", verifiedAlg, "ES256")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Verify returned payload %q, want %q", got, payload)
	}
}

func TestCoseSignerVerifyRejectsUnknownIdentity(t *testing.T) {
	signer, _, uid := newTestSigner(t, "ES256")
	raw, _, err := signer.Sign(uid, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	otherSigner, _, _ := newTestSigner(t, "ES256")
	if _, _, _, err := otherSigner.Verify(raw); err == nil {
		t.Error("expected Verify to fail against a context manager without the signing identity's public key")
	}
}

func TestCoseSignerRejectsUnknownUID(t *testing.T) {
	signer, _, _ := newTestSigner(t, "ES256")
	if _, _, err := signer.Sign(uuid.New(), []byte("x")); err == nil {
		t.Error("expected Sign to fail for a UID with no registered identity")
	}
}

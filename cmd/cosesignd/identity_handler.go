// Copyright (c) 2019-2020 ubirch GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	log "github.com/sirupsen/logrus"
)

// IdentityHandler creates and registers new signing identities: a COSE key
// pair stored (private half encrypted) under a UUID key ID.
type IdentityHandler struct {
	ctxManager ContextManager
	encrypter  *KeyEncrypter
	defaultAlg string
}

// Identity is one registered key ID: its COSE key material and the auth
// token required to use it.
type Identity struct {
	Uid        uuid.UUID `json:"uuid"`
	Algorithm  string    `json:"algorithm"`
	PrivateKey []byte    `json:"privKey"` // secretbox-sealed CBOR COSE_Key
	PublicKey  []byte    `json:"pubKey"`  // CBOR COSE_Key
	AuthToken  string    `json:"token"`
}

func (h *IdentityHandler) initIdentity(uid uuid.UUID, authToken string) (*Identity, error) {
	if len(authToken) == 0 {
		return nil, fmt.Errorf("missing auth token for identity %s", uid)
	}

	log.Infof("initializing new identity %s", uid)

	algName := h.defaultAlg
	priv, pub, err := GenerateIdentityKey(algName)
	if err != nil {
		return nil, fmt.Errorf("generating new key for UUID %s failed: %v", uid, err)
	}

	privCBOR, err := priv.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encoding private key for UUID %s failed: %v", uid, err)
	}
	pubCBOR, err := pub.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encoding public key for UUID %s failed: %v", uid, err)
	}

	sealedPriv, err := h.encrypter.Encrypt(privCBOR)
	if err != nil {
		return nil, fmt.Errorf("sealing private key for UUID %s failed: %v", uid, err)
	}

	id := Identity{
		Uid:        uid,
		Algorithm:  algName,
		PrivateKey: sealedPriv,
		PublicKey:  pubCBOR,
		AuthToken:  authToken,
	}

	tx, err := h.ctxManager.StartTransaction(context.Background())
	if err != nil {
		return nil, err
	}
	if err := h.ctxManager.StoreNewIdentity(tx, id); err != nil {
		_ = h.ctxManager.CloseTransaction(tx, Rollback)
		return nil, err
	}
	if err := h.ctxManager.CloseTransaction(tx, Commit); err != nil {
		return nil, err
	}

	return &id, nil
}

// loadSigningKey fetches and decrypts the identity's private key, returning
// the identity's algorithm name and the decrypted CBOR-encoded COSE_Key
// bytes (not yet decoded into a keys.Key).
func (h *IdentityHandler) loadSigningKey(uid uuid.UUID) (algName string, priv []byte, err error) {
	algName, sealed, err := h.ctxManager.GetPrivateKeyAndAlgorithm(uid)
	if err != nil {
		return "", nil, err
	}

	priv, err = h.encrypter.Decrypt(sealed)
	if err != nil {
		return "", nil, err
	}

	return algName, priv, nil
}

// Copyright (c) 2021 ubirch GmbH
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
	"fmt"

	"github.com/google/uuid"

	"github.com/silvergate-labs/cose"
	"github.com/silvergate-labs/cose/algorithm"
	"github.com/silvergate-labs/cose/headers"
	"github.com/silvergate-labs/cose/keys"
)

// CoseSigner creates and verifies COSE_Sign1 messages on behalf of
// registered identities, resolving keys through an IdentityHandler.
type CoseSigner struct {
	identities *IdentityHandler
}

func NewCoseSigner(identities *IdentityHandler) *CoseSigner {
	return &CoseSigner{identities: identities}
}

// Sign creates a tagged COSE_Sign1 over payload, keyed by the identity
// registered under uid, with kid set to the identity's UUID bytes. It also
// returns the COSE algorithm name used, so callers can break down metrics
// (signing latency varies widely between, say, ES256 and PS512) without a
// second lookup against the identity store.
func (s *CoseSigner) Sign(uid uuid.UUID, payload []byte) (coseBytes []byte, algName string, err error) {
	algName, privCBOR, err := s.identities.loadSigningKey(uid)
	if err != nil {
		return nil, "", fmt.Errorf("loading signing key for %s: %v", uid, err)
	}

	alg, err := algorithm.LookupName(algName)
	if err != nil {
		return nil, "", err
	}

	key, err := keys.Decode(privCBOR)
	if err != nil {
		return nil, "", fmt.Errorf("decoding stored private key: %v", err)
	}

	msg := cose.NewSign1()
	msg.Headers.SetProtected(headers.Alg, alg.ID)
	msg.Headers.SetUnprotected(headers.Kid, []byte(uid[:]))

	if err := msg.Sign(key, payload, nil); err != nil {
		return nil, "", fmt.Errorf("signing failed for %s: %v", uid, err)
	}

	coseBytes, err = msg.Marshal(true)
	if err != nil {
		return nil, "", err
	}
	return coseBytes, algName, nil
}

// Verify checks a tagged COSE_Sign1 message against the identity named by
// its kid header, returning the verified payload and the algorithm the
// message carried (read back off the wire, not the store, since a verifier
// has no identity of its own to consult ahead of decoding the message).
func (s *CoseSigner) Verify(raw []byte) (payload []byte, uid uuid.UUID, algName string, err error) {
	decoded, err := cose.Decode(raw, cose.MessageTypeSign1)
	if err != nil {
		return nil, uuid.Nil, "", err
	}
	msg, ok := decoded.(*cose.Sign1)
	if !ok {
		return nil, uuid.Nil, "", fmt.Errorf("decoded message is not a COSE_Sign1")
	}

	if alg, aerr := msg.Headers.Alg(); aerr == nil {
		algName = alg.Name
	}

	kidBytes, ok := msg.Headers.Kid()
	if !ok {
		return nil, uuid.Nil, algName, fmt.Errorf("message has no kid header")
	}
	uid, err = uuid.FromBytes(kidBytes)
	if err != nil {
		return nil, uuid.Nil, algName, fmt.Errorf("kid is not a UUID: %v", err)
	}

	pubCBOR, err := s.identities.ctxManager.GetPublicKey(uid)
	if err != nil {
		return nil, uuid.Nil, algName, err
	}
	key, err := keys.Decode(pubCBOR)
	if err != nil {
		return nil, uuid.Nil, algName, fmt.Errorf("decoding stored public key: %v", err)
	}

	ok, err = msg.Verify(key, nil)
	if err != nil {
		return nil, uuid.Nil, algName, err
	}
	if !ok {
		return nil, uuid.Nil, algName, fmt.Errorf("signature verification failed")
	}

	return msg.Payload, uid, algName, nil
}

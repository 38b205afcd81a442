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
	"io/ioutil"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	log "github.com/sirupsen/logrus"
)

const (
	AuthHeader = "X-Auth-Token"

	UUIDKey = "uuid"

	BinType = "application/octet-stream"
)

var UUIDPath = fmt.Sprintf("/{%s}", UUIDKey)

// COSEService exposes the signing daemon's HTTP surface: register an
// identity, sign a payload under it, and verify a COSE_Sign1 message.
type COSEService struct {
	*CoseSigner
	identities    *IdentityHandler
	registerAuth string
}

func (s *COSEService) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := getUUID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		if r.Header.Get(AuthHeader) != s.registerAuth {
			http.Error(w, "invalid registration auth token", http.StatusUnauthorized)
			return
		}

		id, err := s.identities.initIdentity(uid, uuid.New().String())
		if err != nil {
			log.Errorf("%s: %v", uid, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", BinType)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(id.PublicKey)
	}
}

func (s *COSEService) sign() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := getUUID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		if err := s.checkAuth(uid, r); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		payload, err := readBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		coseBytes, algName, err := s.Sign(uid, payload)
		if algName == "" {
			algName = unknownAlg
		}
		SignatureCreationDuration.WithLabelValues(algName).Observe(time.Since(start).Seconds())
		if err != nil {
			log.Errorf("%s: %v", uid, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		SignatureCreationCounter.WithLabelValues(algName).Inc()

		w.Header().Set("Content-Type", "application/cbor")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(coseBytes)
	}
}

func (s *COSEService) verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := readBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()
		payload, uid, algName, err := s.Verify(raw)
		if algName == "" {
			algName = unknownAlg
		}
		SignatureVerificationDuration.WithLabelValues(algName).Observe(time.Since(start).Seconds())
		if err != nil {
			SignatureVerificationFailureCounter.WithLabelValues(algName).Inc()
			log.Warnf("verification failed: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		SignatureVerificationCounter.WithLabelValues(algName).Inc()

		log.Debugf("%s: verified payload: %x", uid, payload)
		w.Header().Set("Content-Type", BinType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}
}

func (s *COSEService) checkAuth(uid uuid.UUID, r *http.Request) error {
	expected, err := s.identities.ctxManager.GetAuthToken(uid)
	if err != nil {
		return fmt.Errorf("unknown identity %s", uid)
	}
	if r.Header.Get(AuthHeader) != expected {
		return fmt.Errorf("invalid auth token")
	}
	return nil
}

func getUUID(r *http.Request) (uuid.UUID, error) {
	uuidParam := chi.URLParam(r, UUIDKey)
	uid, err := uuid.Parse(uuidParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: \"%s\": %v", uuidParam, err)
	}
	return uid, nil
}

func readBody(r *http.Request) ([]byte, error) {
	rBody, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read request body: %v", err)
	}
	return rBody, nil
}

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
	"context"
	"os"
	"os/signal"
	"path"
	"syscall"

	"golang.org/x/sync/errgroup"

	log "github.com/sirupsen/logrus"
)

// handle graceful shutdown
func shutdown(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	// block until we receive a SIGINT or SIGTERM
	sig := <-signals
	log.Infof("shutting down after receiving: %v", sig)

	cancel()
}

var (
	// Version will be replaced with the tagged version during build time
	Version = "local build"
	// Revision will be replaced with the commit hash during build time
	Revision = "unknown"
)

func main() {
	const (
		serviceName = "cose-signd"
		configFile  = "config.json"
	)

	var configDir string
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	log.SetFormatter(&log.JSONFormatter{})
	log.Printf("COSE signing daemon (version=%s, revision=%s)", Version, Revision)

	conf := &Config{}
	if err := conf.Load(configDir, configFile); err != nil {
		log.Fatalf("ERROR: unable to load configuration: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	go shutdown(cancel)

	router := NewRouter(conf.DefaultAlgorithm)
	httpServer := &HTTPServer{
		router:   router,
		addr:     conf.TCP_addr,
		TLS:      conf.TLS,
		certFile: conf.TLS_CertFile,
		keyFile:  conf.TLS_KeyFile,
	}

	g.Go(func() error {
		return httpServer.Serve(ctx)
	})

	ctxManager, err := GetCtxManager(conf)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if dm, ok := ctxManager.(*DatabaseManager); ok {
			dm.Close()
		}
	}()

	dm, _ := ctxManager.(*DatabaseManager)
	InitPromMetrics(router, dm)

	encrypter, err := NewKeyEncrypter(conf.secretBytes)
	if err != nil {
		log.Fatal(err)
	}

	identities := &IdentityHandler{
		ctxManager: ctxManager,
		encrypter:  encrypter,
		defaultAlg: conf.DefaultAlgorithm,
	}

	signer := NewCoseSigner(identities)

	service := &COSEService{
		CoseSigner:   signer,
		identities:   identities,
		registerAuth: conf.RegisterAuth,
	}

	router.Put("/register"+UUIDPath, service.register())

	signEndpoint := path.Join(UUIDPath, "/sign")
	router.Post(signEndpoint, service.sign())

	router.Post("/verify", service.verify())

	router.Get("/healthz", Health(serviceName))
	router.Get("/readiness", Health(serviceName))

	log.Info("ready")

	if err = g.Wait(); err != nil {
		log.Error(err)
	}

	log.Debug("shut down")
}

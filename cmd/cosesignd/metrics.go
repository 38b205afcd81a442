package main

import (
	"net/http"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// All five metrics below are labeled by "alg" (the IANA COSE algorithm
// name, e.g. "ES256" or "PS512"): signing and verification cost differ by
// an order of magnitude across the algorithms the daemon now supports, so
// a single unlabeled counter/histogram would blend a fast EdDSA identity's
// latency into a slow RSA one's and make neither legible.
var (
	SignatureCreationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cose_signature_creation_count",
		Help: "Number of COSE_Sign1 messages created, by algorithm.",
	}, []string{"alg"})
	SignatureVerificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cose_signature_verification_count",
		Help: "Number of COSE_Sign1 messages verified, by algorithm.",
	}, []string{"alg"})
	SignatureVerificationFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cose_signature_verification_failure_count",
		Help: "Number of COSE_Sign1 verifications that failed, by algorithm.",
	}, []string{"alg"})
	SignatureCreationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "cose_signature_creation_duration_seconds",
		Help: "Time taken to create a COSE_Sign1 message, by algorithm.",
	}, []string{"alg"})
	SignatureVerificationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "cose_signature_verification_duration_seconds",
		Help: "Time taken to verify a COSE_Sign1 message, by algorithm.",
	}, []string{"alg"})
)

// unknownAlg labels a verification metric when the message failed to
// decode far enough to recover its alg header at all.
const unknownAlg = "unknown"

// InitPromMetrics registers the service's metrics and mounts /metrics on
// router, plus a sqlstats collector over the identity store's connection
// pool.
func InitPromMetrics(router *chi.Mux, db *DatabaseManager) {
	prometheus.MustRegister(
		SignatureCreationCounter,
		SignatureVerificationCounter,
		SignatureVerificationFailureCounter,
		SignatureCreationDuration,
		SignatureVerificationDuration,
	)
	if db != nil {
		prometheus.MustRegister(sqlstats.NewStatsCollector(PostgreSqlIdentityTableName, db.db))
	}
	router.Handle("/metrics", promhttp.Handler())
}

// Health reports service liveliness/readiness for the given identifier.
func Health(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(id))
	}
}

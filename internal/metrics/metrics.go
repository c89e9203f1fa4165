// Package metrics exposes Prometheus collectors for the entitlement flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vaultdrop"

var (
	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_total",
		Help:      "Checkout session attempts by tier and outcome.",
	}, []string{"tier", "outcome"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Payment notifications by outcome.",
	}, []string{"outcome"})

	PurchasesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchases_recorded_total",
		Help:      "Purchases newly written to the entitlement store.",
	}, []string{"tier"})

	URLCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signed_url_cache_lookups_total",
		Help:      "Signed URL cache lookups by result.",
	}, []string{"result"})

	SignedURLsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signed_urls_issued_total",
		Help:      "Signed URLs minted by the object store.",
	})

	RevealsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reveals_recorded_total",
		Help:      "Reveal records created by tier.",
	}, []string{"tier"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Outcome labels shared by the counters above.
const (
	OutcomeCreated          = "created"
	OutcomeRejected         = "rejected"
	OutcomeAlreadyPurchased = "already_purchased"
	OutcomeFailed           = "failed"
	OutcomeRecorded         = "recorded"
	OutcomeDuplicate        = "duplicate"
	OutcomeIgnored          = "ignored"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeMalformed        = "malformed"

	ResultHit  = "hit"
	ResultMiss = "miss"
)

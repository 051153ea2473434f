package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MintAttempts mint submissions by final outcome
	MintAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mint_attempts_total",
		Help: "Mint attempts by outcome",
	}, []string{"outcome"})

	// GasClamps times the estimated gas hit the configured ceiling
	GasClamps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mint_gas_clamps_total",
		Help: "Gas estimates clamped to the configured ceiling",
	})

	// OrdersRecorded orders written, by which store took the write
	OrdersRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_recorded_total",
		Help: "Orders recorded by store",
	}, []string{"store"})

	// FallbackFlushes orders migrated from the fallback store to the primary
	FallbackFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_fallback_flushes_total",
		Help: "Orders flushed from the fallback store to the primary",
	})

	// GatewayRequests order gateway requests by HTTP status
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_gateway_requests_total",
		Help: "Order gateway requests by status code",
	}, []string{"method", "status"})

	// RateLimited requests rejected by the sliding window limiter
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	// EligibilityResolutions eligibility lookups by outcome
	EligibilityResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eligibility_resolutions_total",
		Help: "Eligibility resolutions by outcome",
	}, []string{"outcome"})
)

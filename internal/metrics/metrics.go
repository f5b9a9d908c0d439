// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Limiter label values for QuotaDecisions
const (
	LimiterDaily  = "daily_exercise"
	LimiterTokens = "token"
	LimiterUnlock = "unlock"
)

// Outcome label values
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hoctap_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"route", "method", "status"},
	)

	QuotaDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoctap_quota_decisions_total",
			Help: "Quota checks by limiter and outcome",
		},
		[]string{"limiter", "outcome"},
	)

	OTPEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoctap_otp_events_total",
			Help: "OTP lifecycle events by purpose",
		},
		[]string{"purpose", "event"},
	)

	UnlockAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoctap_unlock_attempts_total",
			Help: "Unlock-code verification attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// OTP event label values
const (
	OTPIssued        = "issued"
	OTPThrottled     = "throttled"
	OTPDispatchError = "dispatch_failed"
	OTPVerified      = "verified"
	OTPMismatch      = "mismatch"
	OTPExpired       = "expired"
	OTPExhausted     = "exhausted"
	OTPNotFound      = "not_found"
)

// Package metrics provides Prometheus metrics for the webhook layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsReceived counts inbound notifications per provider.
	NotificationsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "webhook",
			Name:      "notifications_received_total",
			Help:      "Total number of inbound webhook notifications",
		},
		[]string{"provider"},
	)

	// NotificationsVerified counts notifications matched to a connection.
	NotificationsVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "webhook",
			Name:      "notifications_verified_total",
			Help:      "Total number of notifications verified against a connection",
		},
		[]string{"provider"},
	)

	// NotificationsUnattributed counts notifications no candidate could verify.
	NotificationsUnattributed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "webhook",
			Name:      "notifications_unattributed_total",
			Help:      "Total number of notifications no active connection could verify",
		},
		[]string{"provider"},
	)

	// NotificationsMalformed counts structurally invalid requests rejected
	// before any verification attempt.
	NotificationsMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "webhook",
			Name:      "notifications_malformed_total",
			Help:      "Total number of structurally invalid webhook requests",
		},
		[]string{"provider"},
	)

	// VerificationInconclusive counts delegated verification calls that failed
	// without yielding a verdict.
	VerificationInconclusive = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "webhook",
			Name:      "verification_inconclusive_total",
			Help:      "Total number of candidates whose delegated verification could not run",
		},
		[]string{"provider"},
	)

	// VerificationDuration tracks time spent matching a notification.
	VerificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "payments",
			Subsystem: "webhook",
			Name:      "verification_duration_seconds",
			Help:      "Duration of the candidate verification loop",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	// EventsRecorded counts persisted integration events by status.
	EventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payments",
			Subsystem: "webhook",
			Name:      "events_recorded_total",
			Help:      "Total number of integration events persisted",
		},
		[]string{"provider", "status"},
	)
)

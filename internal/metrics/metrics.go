// Package metrics declares the Prometheus collectors exported by the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "safeguardian"

var (
	// AlertMessages counts created alert messages by urgency.
	AlertMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_messages_total",
			Help:      "Alert messages created, by urgency tier.",
		},
		[]string{"urgency"},
	)

	// AlertBatches counts dispatches by urgency, including empty ones.
	AlertBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_batches_total",
			Help:      "Dispatch batches, by urgency tier.",
		},
		[]string{"urgency"},
	)

	// StatusTransitions counts delivery status changes by target status.
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_status_transitions_total",
			Help:      "Alert message delivery status transitions, by target status.",
		},
		[]string{"status"},
	)

	// TransportFailures counts messages the outbound transport rejected.
	TransportFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_transport_failures_total",
			Help:      "Alert messages the outbound transport failed to accept.",
		},
	)

	// SOSTransitions counts SOS state machine transitions by entered state.
	SOSTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sos_transitions_total",
			Help:      "SOS state machine transitions, by entered state.",
		},
		[]string{"state"},
	)

	// CheckinsEnabled is 1 while the auto check-in timer is live.
	CheckinsEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "checkin_enabled",
			Help:      "Whether the auto check-in schedule is enabled.",
		},
	)

	// Contacts is the current directory size.
	Contacts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contacts",
			Help:      "Number of contacts in the directory.",
		},
	)

	// DetectionEvents counts external danger signals received.
	DetectionEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_events_total",
			Help:      "External danger detection events received.",
		},
	)
)

// Package metrics exposes Prometheus counters for the publish/apply pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesPublished counts intents handed to the bus, per channel.
	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_messages_published_total",
		Help: "Mutation intents published to the message bus.",
	}, []string{"channel"})

	// PublishFailures counts publishes rejected by the bus.
	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_publish_failures_total",
		Help: "Mutation intents that failed to publish.",
	}, []string{"channel"})

	// IntentsApplied counts apply outcomes, per intent kind and outcome
	// (applied, noop).
	IntentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_intents_applied_total",
		Help: "Mutation intents processed by the apply engine.",
	}, []string{"kind", "outcome"})

	// DecodeFailures counts malformed payloads dropped at apply time.
	DecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_decode_failures_total",
		Help: "Messages that could not be decoded into a mutation intent.",
	}, []string{"channel"})

	// DeadLettered counts messages routed to the dead-letter queue.
	DeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expense_dead_lettered_total",
		Help: "Messages routed to the dead-letter queue.",
	}, []string{"reason"})
)

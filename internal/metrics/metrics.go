package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collabdoc_connected_clients",
		Help: "Websocket clients currently connected to the hub.",
	})

	MessagesBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collabdoc_messages_broadcast_total",
		Help: "Messages fanned out by the hub, by message type.",
	}, []string{"type"})

	DocumentFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collabdoc_document_flushes_total",
		Help: "Debounced persist+broadcast flushes, by outcome.",
	}, []string{"outcome"})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "tidewire"
)

const (
	OutcomeRegistered = "registered"
	OutcomeExisting   = "existing"
	OutcomeConflict   = "conflict"
	OutcomeError      = "error"

	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// Connector Metrics
	ConnectorsDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connectors_discovered",
		Help:      "Number of connectors loaded by the last discovery pass.",
	})

	ConnectorRegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connector_registrations_total",
		Help:      "Count of connector registration attempts by outcome.",
	}, []string{"outcome"})

	// Repository Metrics
	RepositoryTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repository_transactions_total",
		Help:      "Count of finished repository transactions by outcome.",
	}, []string{"outcome"})

	// Configuration Metrics
	ConfigRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "config_refreshes_total",
		Help:      "Count of configuration refreshes by status.",
	}, []string{"status"})
)

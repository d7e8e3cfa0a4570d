package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usecase_updates_total",
			Help: "Total number of use case update attempts by outcome.",
		},
		[]string{"outcome"},
	)

	reconciliationGapsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "usecase_reconciliation_gaps_total",
			Help: "Updates whose engine side effects succeeded but whose final persistence failed.",
		},
	)
)

func init() {
	prometheus.MustRegister(updatesTotal)
	prometheus.MustRegister(reconciliationGapsTotal)
}

package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voter_registrations_total",
			Help: "Voter registration attempts by result",
		},
		[]string{"result"},
	)

	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voter_decisions_total",
			Help: "Admin verification decisions by outcome",
		},
		[]string{"outcome"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voter_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voter_side_effect_failures_total",
			Help: "Side-effect writes that failed after a committed change, by sink",
		},
		[]string{"sink"},
	)
)

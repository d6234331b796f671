package rest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	assessmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cte_assessments_total",
		Help: "Completed clinic risk assessments by resulting risk level.",
	}, []string{"risk_level"})

	behaviorVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cte_behavior_verdicts_total",
		Help: "Behavior classifications by verdict.",
	}, []string{"verdict"})

	modelReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cte_model_reloads_total",
		Help: "Model bundle reload attempts by model and outcome.",
	}, []string{"model", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cte_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)

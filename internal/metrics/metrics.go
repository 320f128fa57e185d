// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FormsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "formcheck_forms_loaded",
			Help: "Number of form definitions currently held by the registry.",
		})

	Validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formcheck_validations_total",
			Help: "Validation runs by form and outcome (valid, invalid, malformed).",
		}, []string{"form", "outcome"})

	RuleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formcheck_rule_failures_total",
			Help: "Blocking rule failures by form, field, and rule.",
		}, []string{"form", "field", "rule"})

	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formcheck_submissions_total",
			Help: "Submissions by form and final state.",
		}, []string{"form", "state"})

	ActionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formcheck_action_errors_total",
			Help: "Post-submit action failures by action type.",
		}, []string{"action"})

	RegistryReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formcheck_registry_reloads_total",
			Help: "Form directory reloads by result (ok, error).",
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		FormsLoaded,
		Validations,
		RuleFailures,
		Submissions,
		ActionErrors,
		RegistryReloads,
	)
}

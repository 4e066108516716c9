// Package metrics provides Prometheus instrumentation for modshield:
// counters for update routing, classifier verdicts and failures, remediation
// step outcomes, and callback resolutions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UpdatesTotal counts inbound webhook updates by routed kind:
	// "message", "callback", "command", "ignored".
	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modshield_updates_total",
		Help: "Inbound Telegram updates by routed kind",
	}, []string{"kind"})

	// ClassificationsTotal counts classifier verdicts by label.
	ClassificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modshield_classifications_total",
		Help: "Classifier verdicts by label",
	}, []string{"label"})

	// ClassifierFailures counts classifier calls that failed open.
	ClassifierFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "modshield_classifier_failures_total",
		Help: "Classifier calls that failed and were treated as not_spam",
	})

	// RemediationStepFailures counts failed remediation steps by step name.
	RemediationStepFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modshield_remediation_step_failures_total",
		Help: "Failed spam remediation steps by step",
	}, []string{"step"})

	// CallbacksTotal counts dismiss/kick resolutions by action and outcome
	// ("ok", "denied", "error").
	CallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modshield_callbacks_total",
		Help: "Moderation card button presses by action and outcome",
	}, []string{"action", "outcome"})

	// TrustedSkips counts messages skipped because the author was trusted.
	TrustedSkips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "modshield_trusted_skips_total",
		Help: "Messages that bypassed classification via trust",
	})
)

func init() {
	prometheus.MustRegister(
		UpdatesTotal,
		ClassificationsTotal,
		ClassifierFailures,
		RemediationStepFailures,
		CallbacksTotal,
		TrustedSkips,
	)
}

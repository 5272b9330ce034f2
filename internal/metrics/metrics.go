// Package metrics holds the Prometheus collectors the orchestrator updates while it runs.
//
//   - ccorch_clicks_total{result}              clicks by result (ok|error)
//   - ccorch_cases_opened_total                cases opened
//   - ccorch_cases_purchased_total             cases bought to cover a batch
//   - ccorch_items_sold_total{source}          items sold (auto|bulk)
//   - ccorch_remote_retries_total{method}      rate-limit retries scheduled
//   - ccorch_remote_errors_total{status}       non-success remote responses surfaced to callers
//   - ccorch_loop_failures_total{phase}        failed engine iterations
//   - ccorch_phase_transitions_total{to}       committed phase transitions
//   - ccorch_account_phase                     current persisted phase (4 = complete)
//
// All methods are safe on a nil *Metrics so components can run without a registry.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector
type Metrics struct {
	clicks           *prometheus.CounterVec
	casesOpened      prometheus.Counter
	casesPurchased   prometheus.Counter
	itemsSold        *prometheus.CounterVec
	remoteRetries    *prometheus.CounterVec
	remoteErrors     *prometheus.CounterVec
	loopFailures     *prometheus.CounterVec
	phaseTransitions *prometheus.CounterVec
	accountPhase     prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		clicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccorch_clicks_total",
				Help: "Clicks issued during the click freeze window",
			},
			[]string{"result"},
		),
		casesOpened: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ccorch_cases_opened_total",
				Help: "Cases opened",
			},
		),
		casesPurchased: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ccorch_cases_purchased_total",
				Help: "Cases purchased to cover a batch",
			},
		),
		itemsSold: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccorch_items_sold_total",
				Help: "Items sold, split by auto-sell during open and bulk sell",
			},
			[]string{"source"},
		),
		remoteRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccorch_remote_retries_total",
				Help: "Rate-limit retries scheduled by the remote client",
			},
			[]string{"method"},
		),
		remoteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccorch_remote_errors_total",
				Help: "Non-success remote responses returned to callers",
			},
			[]string{"status"},
		),
		loopFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccorch_loop_failures_total",
				Help: "Engine iterations that failed",
			},
			[]string{"phase"},
		),
		phaseTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccorch_phase_transitions_total",
				Help: "Committed phase transitions",
			},
			[]string{"to"},
		),
		accountPhase: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ccorch_account_phase",
				Help: "Persisted phase of the running account (4 once complete)",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.clicks,
			m.casesOpened,
			m.casesPurchased,
			m.itemsSold,
			m.remoteRetries,
			m.remoteErrors,
			m.loopFailures,
			m.phaseTransitions,
			m.accountPhase,
		)
	}
	return m
}

func (m *Metrics) Click(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.clicks.WithLabelValues(result).Inc()
}

func (m *Metrics) CasesOpened(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.casesOpened.Add(float64(n))
}

func (m *Metrics) CasesPurchased(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.casesPurchased.Add(float64(n))
}

// ItemsSold counts items sold; source is "auto" or "bulk"
func (m *Metrics) ItemsSold(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsSold.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) RemoteRetry(method string) {
	if m == nil {
		return
	}
	m.remoteRetries.WithLabelValues(method).Inc()
}

func (m *Metrics) RemoteError(status int) {
	if m == nil {
		return
	}
	m.remoteErrors.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) LoopFailure(phase string) {
	if m == nil {
		return
	}
	m.loopFailures.WithLabelValues(phase).Inc()
}

func (m *Metrics) PhaseTransition(to string) {
	if m == nil {
		return
	}
	m.phaseTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) SetPhase(phase int) {
	if m == nil {
		return
	}
	m.accountPhase.Set(float64(phase))
}

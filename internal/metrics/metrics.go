// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics holds the Prometheus collectors of the registration flow.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "regdesk"

type Metrics struct {
	registrations        *prometheus.CounterVec
	otpIssued            prometheus.Counter
	otpVerifications     *prometheus.CounterVec
	regNumbersAllocated  *prometheus.CounterVec
	approvals            *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	prunedAccounts       prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Completed registrations by account kind",
		}, []string{"kind"}),
		otpIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_issued_total",
			Help:      "OTP codes issued",
		}),
		otpVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verifications_total",
			Help:      "OTP verification attempts by result",
		}, []string{"result"}),
		regNumbersAllocated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regnumbers_allocated_total",
			Help:      "Registration numbers allocated by scope",
		}, []string{"scope"}),
		approvals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approvals_total",
			Help:      "Approval decisions by outcome",
		}, []string{"decision"}),
		notificationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Mails that could not be delivered by template",
		}, []string{"template"}),
		prunedAccounts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_accounts_total",
			Help:      "Unverified accounts removed by housekeeping",
		}),
	}
}

func (m *Metrics) Registration(kind string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(kind).Inc()
}

func (m *Metrics) OTPIssued() {
	if m == nil {
		return
	}
	m.otpIssued.Inc()
}

func (m *Metrics) OTPVerification(result string) {
	if m == nil {
		return
	}
	m.otpVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) RegNumberAllocated(scope string) {
	if m == nil {
		return
	}
	m.regNumbersAllocated.WithLabelValues(scope).Inc()
}

func (m *Metrics) Approval(decision string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(decision).Inc()
}

func (m *Metrics) NotificationFailed(template string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(template).Inc()
}

func (m *Metrics) AccountsPruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.prunedAccounts.Add(float64(n))
}

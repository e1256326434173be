// Package metrics содержит счётчики Prometheus для решений о доступе,
// списаний кредитов и обработки вебхуков.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор счётчиков сервиса.
type Metrics struct {
	Decisions *prometheus.CounterVec
	Credits   *prometheus.CounterVec
	Webhooks  *prometheus.CounterVec
	Payments  *prometheus.CounterVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortsos",
			Name:      "entitlement_decisions_total",
			Help:      "Entitlement decisions by feature and outcome.",
		}, []string{"feature", "outcome"}),
		Credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortsos",
			Name:      "credits_spent_total",
			Help:      "Credits deducted from free accounts by feature.",
		}, []string{"feature"}),
		Webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortsos",
			Name:      "webhook_events_total",
			Help:      "Payment provider webhook events by provider, type and result.",
		}, []string{"provider", "type", "result"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortsos",
			Name:      "payments_applied_total",
			Help:      "Payments applied to accounts by provider and plan.",
		}, []string{"provider", "plan"}),
	}
	reg.MustRegister(m.Decisions, m.Credits, m.Webhooks, m.Payments)
	return m
}

// Decision учитывает решение о доступе. nil-получатель ничего не делает.
func (m *Metrics) Decision(feature string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.Decisions.WithLabelValues(feature, outcome).Inc()
}

// CreditsSpent учитывает списанные кредиты.
func (m *Metrics) CreditsSpent(feature string, amount int) {
	if m == nil || amount <= 0 {
		return
	}
	m.Credits.WithLabelValues(feature).Add(float64(amount))
}

// Webhook учитывает обработанное событие провайдера.
func (m *Metrics) Webhook(provider, eventType, result string) {
	if m == nil {
		return
	}
	m.Webhooks.WithLabelValues(provider, eventType, result).Inc()
}

// PaymentApplied учитывает платёж, изменивший план.
func (m *Metrics) PaymentApplied(provider, plan string) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(provider, plan).Inc()
}

package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pharmacrm_auth_failures_total",
		Help: "Failed authentication attempts.",
	})

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pharmacrm_audit_write_failures_total",
		Help: "Audit events that could not be persisted.",
	})

	CredentialResets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pharmacrm_credential_resets_total",
		Help: "Admin-issued credential resets.",
	})
)

// Регистрация метрик в default-регистре. Вызывается один раз из main.
func Init() {
	prometheus.MustRegister(AuthFailures, AuditWriteFailures, CredentialResets)
}

// Хэндлер Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

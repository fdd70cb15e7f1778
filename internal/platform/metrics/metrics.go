package metrics

import "github.com/prometheus/client_golang/prometheus"

// Auth counts session store outcomes. A nil *Auth is a no-op.
type Auth struct {
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	sessions      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Auth {
	a := &Auth{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amadvs",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amadvs",
			Name:      "registrations_total",
			Help:      "Registrations by role and outcome.",
		}, []string{"role", "outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "amadvs",
			Name:      "sessions_active",
			Help:      "Open session contexts.",
		}),
	}
	reg.MustRegister(a.logins, a.registrations, a.sessions)
	return a
}

func (a *Auth) Login(outcome string) {
	if a == nil {
		return
	}
	a.logins.WithLabelValues(outcome).Inc()
}

func (a *Auth) Registration(role, outcome string) {
	if a == nil {
		return
	}
	a.registrations.WithLabelValues(role, outcome).Inc()
}

func (a *Auth) SessionOpened() {
	if a == nil {
		return
	}
	a.sessions.Inc()
}

func (a *Auth) SessionClosed() {
	if a == nil {
		return
	}
	a.sessions.Dec()
}

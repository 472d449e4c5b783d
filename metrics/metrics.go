package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auth "github.com/tokenestate/go-estate-auth"
)

const namespace = "estate"

// Collectors groups the access layer metrics.
type Collectors struct {
	guardDecisions   *prometheus.CounterVec
	authTransitions  *prometheus.CounterVec
	roleGrants       *prometheus.CounterVec
	roleSyncs        *prometheus.CounterVec
	roleSyncDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Collectors {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collectors{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Guard evaluations by guard name and decision.",
		}, []string{"guard", "decision"}),
		authTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_transitions_total",
			Help:      "Auth state phase transitions.",
		}, []string{"from", "to"}),
		roleGrants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_grants_total",
			Help:      "On-chain role grant attempts by role and result.",
		}, []string{"role", "result"}),
		roleSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_sync_runs_total",
			Help:      "Role synchronizer runs by final status.",
		}, []string{"status"}),
		roleSyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "role_sync_duration_seconds",
			Help:      "Role synchronizer run latency in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of portal HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Portal HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.guardDecisions,
		c.authTransitions,
		c.roleGrants,
		c.roleSyncs,
		c.roleSyncDuration,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

// ObserveGuard counts one guard decision.
func (c *Collectors) ObserveGuard(guard, decision string) {
	c.guardDecisions.WithLabelValues(guard, decision).Inc()
}

// ObserveGrant implements rolesync.Observer.
func (c *Collectors) ObserveGrant(role string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.roleGrants.WithLabelValues(role, result).Inc()
}

// ObserveSync implements rolesync.Observer.
func (c *Collectors) ObserveSync(status string, duration time.Duration) {
	c.roleSyncs.WithLabelValues(status).Inc()
	c.roleSyncDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// TransitionHook counts auth state transitions.
func (c *Collectors) TransitionHook() auth.TransitionHook {
	return func(from, to auth.AuthPhase) {
		c.authTransitions.WithLabelValues(string(from), string(to)).Inc()
	}
}

// ObserveHTTP records one portal request.
func (c *Collectors) ObserveHTTP(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	c.httpRequests.WithLabelValues(method, route, code).Inc()
	c.httpDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

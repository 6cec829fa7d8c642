// Package metrics exposes Prometheus counters for the SDK's HTTP traffic,
// logins and settle-checks.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	prometheus.MustRegister(requests)
	prometheus.MustRegister(logins)
	prometheus.MustRegister(pollAttempts)
}

// Login outcomes.
const (
	LoginSuccess  = "success"
	LoginRejected = "rejected"
	LoginFailed   = "failed"
)

var requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cloudsdk",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP exchanges completed, by method and status code.",
	},
	[]string{"method", "code"},
)

var logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cloudsdk",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

var pollAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cloudsdk",
		Subsystem: "poll",
		Name:      "attempts_total",
		Help:      "Number of settle-checks made while waiting on a resource.",
	},
	[]string{"resource"},
)

// ObserveRequest counts one completed HTTP exchange.
func ObserveRequest(method string, code int) {
	requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ObserveLogin counts one login attempt.
func ObserveLogin(outcome string) {
	logins.WithLabelValues(outcome).Inc()
}

// ObservePoll counts one settle-check on the given resource kind.
func ObservePoll(resource string) {
	pollAttempts.WithLabelValues(resource).Inc()
}

// Package resilience wraps an http.RoundTripper with a per-provider circuit
// breaker, adapted from the teacher's per-target gobreaker.CircuitBreaker in
// pkg/proxy/loadbalancer.go. Adapters never retry internally (spec.md §4.1);
// the breaker only stops hammering a provider that is already failing.
package resilience

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Transport decorates an http.RoundTripper with a circuit breaker. A tripped
// breaker surfaces gobreaker.ErrOpenState to the caller, which adapters
// translate into errs.TransportError.
type Transport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker
}

// NewTransport wraps next with a circuit breaker named for the provider.
// The breaker trips after 5 consecutive failures and half-opens after 30s,
// matching the thresholds the teacher uses per load-balancer target.
func NewTransport(providerName string, next http.RoundTripper) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "provider-" + providerName,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	return &Transport{next: next, breaker: cb}
}

// errUpstream5xx marks a 5xx response as a breaker failure while still
// letting the caller read the response itself.
var errUpstream5xx = errors.New("resilience: upstream 5xx")

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var captured *http.Response
	_, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		captured = resp
		if resp.StatusCode >= 500 {
			return nil, errUpstream5xx
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, errUpstream5xx) {
			return captured, nil
		}
		return nil, err
	}
	return captured, nil
}

// State reports the breaker's current state, useful for the doctor CLI
// command and health checks.
func (t *Transport) State() gobreaker.State {
	return t.breaker.State()
}

// Package errs defines the sentinel and typed errors shared across the
// engine's components, per the error-handling design in SPEC_FULL.md §7.
package errs

import "fmt"

// Sentinel errors. Use errors.Is to match these across package boundaries.
var (
	// ErrConfigurationMissing indicates no credentials are present for the
	// selected provider.
	ErrConfigurationMissing = fmt.Errorf("ultra-mcp: no credentials configured for provider")

	// ErrPricingUnavailable indicates both the remote fetch and the stale
	// disk cache failed to produce a pricing catalog.
	ErrPricingUnavailable = fmt.Errorf("ultra-mcp: pricing catalog unavailable")

	// ErrUnknownModel indicates the pricing service has no entry for a model.
	ErrUnknownModel = fmt.Errorf("ultra-mcp: unknown model")

	// ErrCancelled indicates the caller aborted an in-flight request.
	ErrCancelled = fmt.Errorf("ultra-mcp: canceled")

	// ErrNoProviderConfigured indicates the registry has no configured
	// provider to select a default from.
	ErrNoProviderConfigured = fmt.Errorf("ultra-mcp: no provider configured")

	// ErrNotFound indicates a lookup by id found no matching row.
	ErrNotFound = fmt.Errorf("ultra-mcp: not found")
)

// UpstreamError wraps a non-2xx response from a provider's HTTP API.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	body := e.Body
	if len(body) > 500 {
		body = body[:500] + "...(truncated)"
	}
	return fmt.Sprintf("ultra-mcp: upstream error from %s: status %d: %s", e.Provider, e.Status, body)
}

// TransportError wraps a network-level failure (DNS, TLS, connection reset,
// circuit breaker open) reaching a provider.
type TransportError struct {
	Provider string
	Cause    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ultra-mcp: transport error reaching %s: %v", e.Provider, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ParseError wraps a malformed streaming chunk. Callers should skip the
// chunk and continue, per spec.md §7 — it is never fatal to a stream.
type ParseError struct {
	Provider string
	Fragment string
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ultra-mcp: parse error from %s: %v (fragment: %q)", e.Provider, e.Cause, e.Fragment)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// DatabaseError wraps a persistence failure. Every memory/tracker operation
// except updateBudgetUsage propagates it; updateBudgetUsage logs and
// swallows it (best-effort budget tracking, per spec.md §4.4).
type DatabaseError struct {
	Op    string
	Cause error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("ultra-mcp: database error during %s: %v", e.Op, e.Cause)
}

func (e *DatabaseError) Unwrap() error { return e.Cause }

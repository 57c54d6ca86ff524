// Package metrics defines the instrumentation contract for the payment
// pipeline. A Prometheus implementation and a no-op default are provided.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event and operation names recorded by the pipeline.
const (
	EventParseOK            = "parse_ok"
	EventParseFailed        = "parse_failed"
	EventResolveCacheHit    = "resolve_cache_hit"
	EventResolveOK          = "resolve_ok"
	EventResolveFailed      = "resolve_failed"
	EventBalanceCacheHit    = "balance_cache_hit"
	EventBalanceLookup      = "balance_lookup"
	EventBalanceError       = "balance_error"
	EventInsufficientFunds  = "insufficient_funds"
	EventGasFallback        = "gas_fallback"
	EventPaymentPrepared    = "payment_prepared"
	EventPaymentFailed      = "payment_failed"
	EventSuspiciousFlagged  = "suspicious_flagged"
	OperationParse          = "parse"
	OperationResolve        = "resolve"
	OperationBalance        = "balance"
	OperationBuild          = "build"
	OperationHandleRequest  = "handle_request"
)

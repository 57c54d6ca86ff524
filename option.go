package enspay

import (
	"time"

	"github.com/vitwit/enspay/enhance"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/metrics"
	"github.com/vitwit/enspay/oracle"
	"github.com/vitwit/enspay/registry"
)

// Option customises Agent assembly.
type Option func(*Agent)

func WithLogger(l logger.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(a *Agent) {
		if r != nil {
			a.metrics = r
		}
	}
}

func WithTimeout(t time.Duration) Option {
	return func(a *Agent) {
		if t > 0 {
			a.timeout = t
		}
	}
}

// WithOracle overrides the language oracle; it takes precedence over the
// API key in the config.
func WithOracle(o oracle.Oracle) Option {
	return func(a *Agent) {
		a.oracle = o
	}
}

func WithEnhancer(e enhance.IntentEnhancer) Option {
	return func(a *Agent) {
		if e != nil {
			a.enhancer = e
		}
	}
}

// WithRiskScorer installs an external risk assessment service consulted
// after a payment is prepared. Advisory only.
func WithRiskScorer(s enhance.RiskScorer) Option {
	return func(a *Agent) {
		if s != nil {
			a.scorer = s
		}
	}
}

// WithDialer overrides how chain clients are constructed. Used by tests
// to substitute fakes for real RPC connections.
func WithDialer(d registry.Dialer) Option {
	return func(a *Agent) {
		if d != nil {
			a.dialer = d
		}
	}
}

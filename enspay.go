// Package enspay turns natural-language payment instructions into
// prepared, unsigned ERC-20 transfer transactions. It resolves ENS
// aliases, checks balances, and assembles calldata for a wallet to
// sign, recording every step in an in-memory fact store.
package enspay

import (
	"context"
	"time"

	"github.com/vitwit/enspay/balance"
	"github.com/vitwit/enspay/chat"
	"github.com/vitwit/enspay/enhance"
	"github.com/vitwit/enspay/intent"
	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/metrics"
	"github.com/vitwit/enspay/oracle"
	"github.com/vitwit/enspay/payment"
	"github.com/vitwit/enspay/registry"
	"github.com/vitwit/enspay/resolver"
	"github.com/vitwit/enspay/txbuilder"
	"github.com/vitwit/enspay/types"
)

// Agent is the assembled payment pipeline with all its services wired.
type Agent struct {
	store        *knowledge.Store
	registry     *registry.Registry
	orchestrator *payment.Orchestrator
	chat         *chat.Handler
	checker      *balance.Checker

	config types.AgentConfig

	// Wiring knobs, settable through options before assembly.
	log      logger.Logger
	metrics  metrics.Recorder
	oracle   oracle.Oracle
	enhancer enhance.IntentEnhancer
	scorer   enhance.RiskScorer
	dialer   registry.Dialer
	timeout  time.Duration
}

// New assembles an Agent from config. Zero-value fields fall back to
// defaults: the built-in chain table, Sepolia as default chain, a no-op
// logger and recorder, and no language oracle.
func New(config types.AgentConfig, opts ...Option) *Agent {
	a := &Agent{
		config:   config,
		log:      logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
		enhancer: enhance.NoopEnhancer{},
		scorer:   enhance.NoopScorer{},
		dialer:   registry.DefaultDialer,
		timeout:  30 * time.Second,
	}
	if config.DefaultTimeout > 0 {
		a.timeout = config.DefaultTimeout
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.oracle == nil && config.OracleAPIKey != "" {
		oracleOpts := []oracle.ASI1Option{}
		if config.OracleBaseURL != "" {
			oracleOpts = append(oracleOpts, oracle.WithBaseURL(config.OracleBaseURL))
		}
		a.oracle = oracle.NewASI1Client(config.OracleAPIKey, oracleOpts...)
	}

	chains := config.Chains
	if len(chains) == 0 {
		chains = types.DefaultChains()
	}
	defaultChain := config.DefaultChainID
	if defaultChain == 0 {
		defaultChain = types.ChainSepolia
	}

	a.store = knowledge.NewStore()
	a.registry = registry.New(chains, defaultChain, a.dialer)

	res := resolver.New(a.store, a.registry, a.log)
	a.checker = balance.New(a.store, a.registry, a.log, a.metrics)
	builder := txbuilder.New(a.registry, a.log, a.metrics)
	parser := intent.New(a.store, a.oracle, a.enhancer, a.log)

	a.orchestrator = payment.New(parser, res, a.checker, builder, a.store, a.scorer, a.log, a.metrics)
	a.chat = chat.New(a.orchestrator, a.checker, a.store, a.oracle, defaultChain, a.log)

	return a
}

// ProcessPayment runs the full pipeline for one prompt. The returned
// result is always non-nil; failures are reported inside it.
func (a *Agent) ProcessPayment(ctx context.Context, prompt, userAddress string, chainID int64) *types.PaymentResult {
	if chainID == 0 {
		chainID = a.registry.DefaultChainID()
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.orchestrator.HandlePaymentRequest(ctx, prompt, userAddress, chainID)
}

// Chat dispatches a conversational message.
func (a *Agent) Chat(ctx context.Context, msg types.ChatMessage) types.ChatReply {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.chat.HandleMessage(ctx, msg)
}

// Balance returns the user's token balance on chainID, served from the
// cache when possible.
func (a *Agent) Balance(ctx context.Context, userAddress string, chainID int64) (string, error) {
	if chainID == 0 {
		chainID = a.registry.DefaultChainID()
	}
	bal, err := a.checker.BalanceOf(ctx, userAddress, chainID)
	if err != nil {
		return "", err
	}
	return bal.String(), nil
}

// Knowledge exposes the fact store for introspection surfaces.
func (a *Agent) Knowledge() *knowledge.Store { return a.store }

// Orchestrator exposes the payment pipeline for transport layers.
func (a *Agent) Orchestrator() *payment.Orchestrator { return a.orchestrator }

// ChatHandler exposes the conversational front-end for transport layers.
func (a *Agent) ChatHandler() *chat.Handler { return a.chat }

// DefaultChainID returns the chain used when a request does not name one.
func (a *Agent) DefaultChainID() int64 { return a.registry.DefaultChainID() }

// Close releases all dialed chain clients.
func (a *Agent) Close() {
	a.registry.Close()
}

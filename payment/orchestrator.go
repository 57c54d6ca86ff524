// Package payment composes the parse → resolve → balance-check → build
// pipeline into the end-to-end request handler. Each stage gates the
// next; the first failure terminates the run with a structured result,
// and every decision the pipeline makes corresponds to a recorded fact.
package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitwit/enspay/balance"
	"github.com/vitwit/enspay/enhance"
	"github.com/vitwit/enspay/intent"
	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/metrics"
	"github.com/vitwit/enspay/resolver"
	"github.com/vitwit/enspay/txbuilder"
	"github.com/vitwit/enspay/types"
)

// Confidence bump applied when the recipient was already in the alias
// cache before this request.
const ensCacheBoost = 0.1

// Scores at or above this mark the prepared payment as high risk. The
// scorer is advisory; a high score annotates the result, never blocks it.
const highRiskScore = 0.7

// factTrail sizes returned with results, failure paths carrying a
// shorter tail.
const (
	successTrail = 10
	failureTrail = 5
)

type Orchestrator struct {
	parser   *intent.Parser
	resolver *resolver.Resolver
	checker  *balance.Checker
	builder  *txbuilder.Builder
	store    *knowledge.Store
	scorer   enhance.RiskScorer
	log      logger.Logger
	metrics  metrics.Recorder
}

func New(
	parser *intent.Parser,
	res *resolver.Resolver,
	checker *balance.Checker,
	builder *txbuilder.Builder,
	store *knowledge.Store,
	scorer enhance.RiskScorer,
	log logger.Logger,
	rec metrics.Recorder,
) *Orchestrator {
	if scorer == nil {
		scorer = enhance.NoopScorer{}
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Orchestrator{
		parser:   parser,
		resolver: res,
		checker:  checker,
		builder:  builder,
		store:    store,
		scorer:   scorer,
		log:      log,
		metrics:  rec,
	}
}

// HandlePaymentRequest runs the full pipeline for one request. It never
// returns an error: every exit, including a panic in a stage, becomes a
// structured PaymentResult with a user-displayable message and the fact
// trail that led there.
func (o *Orchestrator) HandlePaymentRequest(ctx context.Context, prompt, userAddress string, chainID int64) (result *types.PaymentResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("payment pipeline panic", map[string]any{"panic": fmt.Sprint(r)})
			result = o.failure(fmt.Sprintf("internal error: %v", r))
		}
		o.metrics.ObserveLatency(metrics.OperationHandleRequest, time.Since(start), nil)
	}()

	o.store.RecordUserActivity(userAddress, knowledge.UserActivity{
		LastRequest: prompt,
		ChainID:     chainID,
		AgeDays:     o.userAgeDays(userAddress),
	})

	// PARSE
	parseStart := time.Now()
	parsed := o.parser.Parse(ctx, prompt, intent.Context{UserID: userAddress, ChainID: chainID})
	o.metrics.ObserveLatency(metrics.OperationParse, time.Since(parseStart), nil)
	if !parsed.Success {
		o.metrics.IncCounter(metrics.EventParseFailed, nil)
		return o.failureWithIntent(parsed.Error, &parsed)
	}
	o.metrics.IncCounter(metrics.EventParseOK, nil)

	// RESOLVE
	var confidenceBoost float64
	if _, cached := o.store.CachedAlias(parsed.Recipient); cached {
		confidenceBoost = ensCacheBoost
		o.metrics.IncCounter(metrics.EventResolveCacheHit, nil)
	}
	o.store.Query(fmt.Sprintf("(query (resolve-ens %s))", parsed.Recipient))

	resolveStart := time.Now()
	recipientAddress, ok := o.resolver.Resolve(ctx, parsed.Recipient)
	o.metrics.ObserveLatency(metrics.OperationResolve, time.Since(resolveStart), nil)
	if !ok {
		o.store.AddFact(fmt.Sprintf("(ens-resolution-failed %s)", parsed.Recipient))
		o.metrics.IncCounter(metrics.EventResolveFailed, nil)
		return o.failureWithIntent(fmt.Sprintf("Could not resolve ENS name: %s", parsed.Recipient), &parsed)
	}
	o.metrics.IncCounter(metrics.EventResolveOK, nil)

	// CHECK_BALANCE
	balanceStart := time.Now()
	userBalance, err := o.checker.BalanceOf(ctx, userAddress, chainID)
	o.metrics.ObserveLatency(metrics.OperationBalance, time.Since(balanceStart), nil)
	if err != nil {
		return o.failureWithIntent(err.Error(), &parsed)
	}

	// The sufficiency decision goes through a derived fact query so the
	// trail records it, not a bare comparison.
	canPay := o.store.Query(fmt.Sprintf("(query (can-pay %s %s))", userAddress, parsed.Amount.String()))
	if containsMarker(canPay, "insufficient-balance") {
		o.metrics.IncCounter(metrics.EventInsufficientFunds, nil)
		res := o.failureWithIntent(
			fmt.Sprintf("Insufficient balance. You have %s USDC, need %s USDC",
				userBalance.StringFixed(2), parsed.Amount.String()),
			&parsed,
		)
		res.UserBalance = userBalance
		return res
	}

	// Advisory only: a flagged pattern annotates the result, never
	// blocks it.
	suspicious := o.store.Query(fmt.Sprintf("(query (suspicious-pattern %s %s))", userAddress, parsed.Amount.String()))
	warning := ""
	if containsMarker(suspicious, "suspicious-pattern") {
		warning = "Unusual payment pattern detected. Please verify recipient."
		o.metrics.IncCounter(metrics.EventSuspiciousFlagged, nil)
	}

	// BUILD
	buildStart := time.Now()
	tx, err := o.builder.BuildTransfer(ctx, userAddress, recipientAddress, parsed.Amount, chainID)
	o.metrics.ObserveLatency(metrics.OperationBuild, time.Since(buildStart), nil)
	if err != nil {
		o.store.AddFact(fmt.Sprintf("(payment-failed %s %s)", userAddress, err.Error()))
		o.metrics.IncCounter(metrics.EventPaymentFailed, nil)
		return o.failureWithIntent(err.Error(), &parsed)
	}

	if w := o.scoreRisk(ctx, tx, &parsed, userAddress); w != "" && warning == "" {
		warning = w
	}

	o.store.AddFact(fmt.Sprintf("(payment-prepared %s %s %s)", userAddress, parsed.Amount.String(), parsed.Recipient))
	o.metrics.IncCounter(metrics.EventPaymentPrepared, nil)

	confidence := parsed.Confidence + confidenceBoost
	if confidence > 1.0 {
		confidence = 1.0
	}

	return &types.PaymentResult{
		Success:          true,
		Intent:           &parsed,
		RecipientAddress: recipientAddress,
		UserBalance:      userBalance,
		Transaction:      tx,
		Summary:          Summary(parsed.Amount, parsed.Token, parsed.Recipient, recipientAddress),
		Confidence:       confidence,
		Warning:          warning,
		FactsConsulted:   o.store.Recent(successTrail),
	}
}

// Summary renders the deterministic human-readable line for a prepared
// payment: "Send 5 USDC to alice.eth (0x4675...a263)".
func Summary(amount decimal.Decimal, token, alias, address string) string {
	short := address
	if len(address) > 10 {
		short = address[:6] + "..." + address[len(address)-4:]
	}
	return fmt.Sprintf("Send %s %s to %s (%s)", amount.String(), token, alias, short)
}

// scoreRisk consults the injected risk scorer on the prepared payload.
// Scorer errors are logged and swallowed; only a high score produces a
// warning for the result.
func (o *Orchestrator) scoreRisk(ctx context.Context, tx *types.TransactionPayload, parsed *types.PaymentIntent, userAddress string) string {
	score, err := o.scorer.ScoreTransaction(ctx, tx, parsed.Amount, parsed.Recipient)
	if err != nil {
		o.log.Debug("risk scoring skipped", map[string]any{"error": err.Error()})
		return ""
	}

	o.store.AddFact(fmt.Sprintf("(risk-score %s %s %.2f)", userAddress, parsed.Amount.String(), score))
	if score >= highRiskScore {
		o.metrics.IncCounter(metrics.EventSuspiciousFlagged, nil)
		return "Transaction flagged as high risk. Please verify recipient."
	}
	return ""
}

func (o *Orchestrator) failure(msg string) *types.PaymentResult {
	return &types.PaymentResult{
		Success:        false,
		Error:          msg,
		FactsConsulted: o.store.Recent(failureTrail),
	}
}

func (o *Orchestrator) failureWithIntent(msg string, parsed *types.PaymentIntent) *types.PaymentResult {
	res := o.failure(msg)
	res.Intent = parsed
	return res
}

// userAgeDays returns the known account age for the suspicion
// heuristic. A never-seen address counts as a brand-new user.
func (o *Orchestrator) userAgeDays(user string) int {
	if activity, ok := o.store.UserActivity(user); ok {
		return activity.AgeDays
	}
	return 0
}

func containsMarker(results []string, marker string) bool {
	for _, r := range results {
		if strings.Contains(r, marker) {
			return true
		}
	}
	return false
}

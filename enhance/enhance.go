// Package enhance defines optional AI capability interfaces the pipeline
// can consult: an intent enhancer that may sharpen parsing confidence and
// a risk scorer for prepared transactions. Both are advisory; errors and
// absent implementations never block a payment.
package enhance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vitwit/enspay/types"
)

// Enhancement is the enhancer's verdict on a parsed intent.
type Enhancement struct {
	// ConfidenceBoost is added to the intent's confidence, capped at 1.0.
	ConfidenceBoost float64 `json:"confidenceBoost"`

	// RiskScore in [0,1]; advisory only.
	RiskScore float64 `json:"riskScore"`

	Reasoning []string `json:"reasoning,omitempty"`
}

type IntentEnhancer interface {
	EnhanceIntent(ctx context.Context, prompt string, intent types.PaymentIntent) (Enhancement, error)
}

type RiskScorer interface {
	ScoreTransaction(ctx context.Context, tx *types.TransactionPayload, amount decimal.Decimal, recipient string) (float64, error)
}

// NoopEnhancer is the default when no external enhancement service is
// configured.
type NoopEnhancer struct{}

func (NoopEnhancer) EnhanceIntent(context.Context, string, types.PaymentIntent) (Enhancement, error) {
	return Enhancement{}, nil
}

// NoopScorer reports zero risk for every transaction.
type NoopScorer struct{}

func (NoopScorer) ScoreTransaction(context.Context, *types.TransactionPayload, decimal.Decimal, string) (float64, error) {
	return 0, nil
}

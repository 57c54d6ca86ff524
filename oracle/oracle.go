// Package oracle wraps the external natural-language completion service
// used as the primary intent parser. The Oracle interface lets the intent
// parser and chat handler take any implementation, including fakes.
package oracle

import (
	"context"

	"github.com/vitwit/enspay/types"
)

// Context is the knowledge-side context handed to the oracle with each
// request so it can parse against known names and recent observations.
type Context struct {
	KnownAliases []string
	RecentFacts  []string
}

type Oracle interface {
	// ParsePaymentIntent extracts a structured payment intent from free
	// text. A returned error means the oracle itself was unavailable or
	// unusable; the caller falls back to pattern parsing.
	ParsePaymentIntent(ctx context.Context, prompt string, octx Context) (types.PaymentIntent, error)

	// ChatResponse generates a conversational reply for traffic that is
	// not a payment instruction.
	ChatResponse(ctx context.Context, message string, octx Context) (string, error)
}

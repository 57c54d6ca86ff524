// Package intent converts free text into a structured payment intent.
// The external language oracle is the primary path; an ordered list of
// phrase patterns is the fallback when the oracle is unavailable.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vitwit/enspay/enhance"
	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/oracle"
	"github.com/vitwit/enspay/types"
)

// Amount invariants: strictly positive and capped.
var (
	maxAmount = decimal.NewFromInt(10000)

	errAmountNotPositive = "Amount must be greater than 0"
	errAmountTooLarge    = "Amount too large (max 10,000 USDC)"
	errInvalidENS        = "Invalid ENS name format"
	errUnparseable       = "Could not parse payment command. Try: 'Send 5 USDC to vitalik.eth'"
)

var ensNameRe = regexp.MustCompile(`^[a-zA-Z0-9-]+\.eth$`)

// fallbackConfidence is the baseline for pattern-derived intents. It must
// stay below every oracle-derived confidence so downstream logic can tell
// which parsing method produced an intent.
const (
	fallbackConfidence = 0.6
	similarityBoost    = 0.1
)

// Ordered fallback patterns; the first match wins. Recipients are
// captured loosely so a malformed alias still matches and gets the
// precise format error from validation. The "give" form has the alias
// before the amount.
var fallbackPatterns = []struct {
	re      *regexp.Regexp
	swapped bool
}{
	{regexp.MustCompile(`send\s+(\d+(?:\.\d+)?)\s+usdc\s+to\s+(\S+)`), false},
	{regexp.MustCompile(`pay\s+(\d+(?:\.\d+)?)\s+usdc\s+to\s+(\S+)`), false},
	{regexp.MustCompile(`transfer\s+(\d+(?:\.\d+)?)\s+usdc\s+to\s+(\S+)`), false},
	{regexp.MustCompile(`give\s+(\S+)\s+(\d+(?:\.\d+)?)\s+usdc`), true},
}

// Context carries request-scoped hints into a parse.
type Context struct {
	UserID  string
	ChainID int64
}

type Parser struct {
	oracle   oracle.Oracle // nil disables the oracle path
	enhancer enhance.IntentEnhancer
	store    *knowledge.Store
	log      logger.Logger
}

func New(store *knowledge.Store, orc oracle.Oracle, enh enhance.IntentEnhancer, log logger.Logger) *Parser {
	if enh == nil {
		enh = enhance.NoopEnhancer{}
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Parser{
		oracle:   orc,
		enhancer: enh,
		store:    store,
		log:      log,
	}
}

// Parse produces a PaymentIntent for prompt. Every attempt, success or
// failure, is recorded as a fact.
func (p *Parser) Parse(ctx context.Context, prompt string, pctx Context) types.PaymentIntent {
	if p.oracle != nil {
		octx := oracle.Context{
			KnownAliases: p.store.AliasNames(),
			RecentFacts:  p.store.Recent(5),
		}
		parsed, err := p.oracle.ParsePaymentIntent(ctx, prompt, octx)
		if err == nil {
			intent := p.validate(parsed)
			if intent.Success {
				intent = p.enhanceIntent(ctx, prompt, intent)
				p.store.AddFact(fmt.Sprintf("(asi1-parsed %q %s %s %.2f)", prompt, intent.Amount.String(), intent.Recipient, intent.Confidence))
			} else {
				p.store.AddFact(fmt.Sprintf("(parse-failed %q)", prompt))
			}
			return intent
		}
		p.log.Warn("oracle parsing failed, using fallback", map[string]any{"error": err.Error()})
	}

	return p.fallbackParse(prompt)
}

// fallbackParse applies the phrase patterns case-insensitively.
func (p *Parser) fallbackParse(prompt string) types.PaymentIntent {
	lower := strings.ToLower(strings.TrimSpace(prompt))

	for _, pattern := range fallbackPatterns {
		match := pattern.re.FindStringSubmatch(lower)
		if match == nil {
			continue
		}

		amountStr, recipient := match[1], match[2]
		if pattern.swapped {
			amountStr, recipient = match[2], match[1]
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			continue
		}

		intent := p.validate(types.PaymentIntent{
			Success:    true,
			Amount:     amount,
			Recipient:  recipient,
			Token:      "USDC",
			Confidence: fallbackConfidence + p.patternBoost(lower),
			Method:     types.ParseMethodPatterns,
		})
		if intent.Success {
			p.store.AddFact(fmt.Sprintf("(regex-parsed %q %s %s %.2f)", prompt, intent.Amount.String(), intent.Recipient, intent.Confidence))
		}
		return intent
	}

	p.store.AddFact(fmt.Sprintf("(parse-failed %q)", prompt))
	return types.PaymentIntent{
		Success: false,
		Error:   errUnparseable,
		Method:  types.ParseMethodPatterns,
	}
}

// validate enforces the amount and alias invariants on a success intent.
func (p *Parser) validate(intent types.PaymentIntent) types.PaymentIntent {
	if !intent.Success {
		return intent
	}

	if !intent.Amount.IsPositive() {
		return types.PaymentIntent{Success: false, Error: errAmountNotPositive, Method: intent.Method}
	}
	if intent.Amount.GreaterThan(maxAmount) {
		return types.PaymentIntent{Success: false, Error: errAmountTooLarge, Method: intent.Method}
	}
	if !ensNameRe.MatchString(intent.Recipient) {
		return types.PaymentIntent{Success: false, Error: errInvalidENS, Method: intent.Method}
	}

	intent.Recipient = strings.ToLower(intent.Recipient)
	if intent.Token == "" {
		intent.Token = "USDC"
	}
	return intent
}

// patternBoost adds a small confidence bump when the store has seen
// similar parses before.
func (p *Parser) patternBoost(prompt string) float64 {
	words := strings.Fields(prompt)
	for _, fact := range p.store.Recent(50) {
		if !strings.Contains(fact, "parsed") {
			continue
		}
		for _, w := range words {
			if strings.Contains(fact, w) {
				return similarityBoost
			}
		}
	}
	return 0
}

// enhanceIntent consults the optional enhancer. Advisory only: its errors
// are logged and ignored, and the boost is capped.
func (p *Parser) enhanceIntent(ctx context.Context, prompt string, intent types.PaymentIntent) types.PaymentIntent {
	enh, err := p.enhancer.EnhanceIntent(ctx, prompt, intent)
	if err != nil {
		p.log.Debug("intent enhancement skipped", map[string]any{"error": err.Error()})
		return intent
	}
	intent.Confidence += enh.ConfidenceBoost
	if intent.Confidence > 1.0 {
		intent.Confidence = 1.0
	}
	return intent
}

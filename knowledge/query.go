package knowledge

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel results returned for query shapes the store does not recognize.
// Malformed input is reported through these, never through an error.
const (
	SentinelInvalidFormat = "(invalid-query-format)"
)

// Query evaluates a mini-language expression such as
//
//	(query (can-pay 0xabc 5))
//	(query (resolve-ens vitalik.eth))
//	(query (payment-safe 0xabc 5 vitalik.eth))
//	(query (suspicious-pattern 0xabc 2000))
//
// against the caches, appends a fact recording the derived conclusion and
// returns it. Unrecognized shapes yield an (unknown-query ...) sentinel.
func (s *Store) Query(query string) []string {
	switch {
	case strings.Contains(query, "can-pay"):
		return s.queryCanPay(query)
	case strings.Contains(query, "resolve-ens"):
		return s.queryResolveENS(query)
	case strings.Contains(query, "payment-safe"):
		return s.queryPaymentSafe(query)
	case strings.Contains(query, "suspicious-pattern"):
		return s.querySuspiciousPattern(query)
	default:
		return []string{fmt.Sprintf("(unknown-query %s)", query)}
	}
}

// tokens strips parentheses and splits on whitespace, so
// "(query (can-pay user 5))" becomes ["query" "can-pay" "user" "5"].
func tokens(query string) []string {
	stripped := strings.NewReplacer("(", " ", ")", " ").Replace(query)
	return strings.Fields(stripped)
}

func (s *Store) queryCanPay(query string) []string {
	parts := tokens(query)
	if len(parts) < 4 {
		return []string{SentinelInvalidFormat}
	}
	user := parts[2]
	amount, err := decimal.NewFromString(parts[3])
	if err != nil {
		return []string{SentinelInvalidFormat}
	}

	balance, _ := s.CachedBalance(user)

	var result string
	if balance.GreaterThanOrEqual(amount) {
		result = fmt.Sprintf("(can-pay %s %s)", user, amount.String())
	} else {
		result = fmt.Sprintf("(insufficient-balance %s %s %s)", user, amount.String(), balance.String())
	}
	s.AddFact(result)
	return []string{result}
}

func (s *Store) queryResolveENS(query string) []string {
	parts := tokens(query)
	if len(parts) < 3 {
		return []string{SentinelInvalidFormat}
	}
	name := parts[2]
	address, ok := s.CachedAlias(name)
	if !ok {
		return []string{fmt.Sprintf("(ens-unknown %s)", name)}
	}
	result := fmt.Sprintf("(ens-address %s %s)", name, address)
	s.AddFact(result)
	return []string{result}
}

func (s *Store) queryPaymentSafe(query string) []string {
	parts := tokens(query)
	if len(parts) < 5 {
		return []string{SentinelInvalidFormat}
	}
	user := parts[2]
	amount, err := decimal.NewFromString(parts[3])
	if err != nil {
		return []string{SentinelInvalidFormat}
	}
	name := parts[4]

	balance, _ := s.CachedBalance(user)
	canPay := balance.GreaterThanOrEqual(amount)
	validENS := strings.HasSuffix(name, ".eth")

	var result string
	if canPay && validENS {
		result = fmt.Sprintf("(payment-safe %s %s %s)", user, amount.String(), name)
	} else {
		issues := make([]string, 0, 2)
		if !canPay {
			issues = append(issues, "insufficient-balance")
		}
		if !validENS {
			issues = append(issues, "invalid-ens")
		}
		result = fmt.Sprintf("(payment-unsafe %s %s %s %s)", user, amount.String(), name, strings.Join(issues, " "))
	}
	s.AddFact(result)
	return []string{result}
}

func (s *Store) querySuspiciousPattern(query string) []string {
	parts := tokens(query)
	if len(parts) < 4 {
		return []string{SentinelInvalidFormat}
	}
	user := parts[2]
	amount, err := decimal.NewFromString(parts[3])
	if err != nil {
		return []string{SentinelInvalidFormat}
	}

	isLarge := amount.GreaterThan(decimal.NewFromInt(1000))
	activity, known := s.UserActivity(user)
	isNewUser := !known || activity.AgeDays < 1

	var result string
	if isLarge && isNewUser {
		result = fmt.Sprintf("(suspicious-pattern %s %s large-payment new-user)", user, amount.String())
	} else {
		result = fmt.Sprintf("(normal-pattern %s %s)", user, amount.String())
	}
	s.AddFact(result)
	return []string{result}
}

package knowledge_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/enspay/knowledge"
)

func TestAddFact_Dedup(t *testing.T) {
	s := knowledge.NewStore()

	s.AddFact("(balance 0xabc 5)")
	s.AddFact("(balance 0xabc 5)")

	count := 0
	for _, f := range s.Facts() {
		if f == "(balance 0xabc 5)" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAddFact_PreservesInsertionOrder(t *testing.T) {
	s := knowledge.NewStore()

	s.AddFact("first")
	s.AddFact("second")
	s.AddFact("third")

	facts := s.Facts()
	require.Len(t, facts, 3)
	assert.Equal(t, []string{"first", "second", "third"}, facts)
}

func TestAddFact_RingEviction(t *testing.T) {
	s := knowledge.NewStore()

	for i := 0; i < knowledge.DefaultMaxFacts+10; i++ {
		s.AddFact(fmt.Sprintf("(fact %d)", i))
	}

	facts := s.Facts()
	require.Len(t, facts, knowledge.DefaultMaxFacts)
	assert.Equal(t, "(fact 10)", facts[0])

	// An evicted fact may be re-added.
	s.AddFact("(fact 0)")
	facts = s.Facts()
	assert.Equal(t, "(fact 0)", facts[len(facts)-1])
}

func TestCacheAlias_OverwriteAndLowercase(t *testing.T) {
	s := knowledge.NewStore()

	s.CacheAlias("Alice.ETH", "0x1111")
	addr, ok := s.CachedAlias("alice.eth")
	require.True(t, ok)
	assert.Equal(t, "0x1111", addr)

	s.CacheAlias("alice.eth", "0x2222")
	addr, ok = s.CachedAlias("ALICE.eth")
	require.True(t, ok)
	assert.Equal(t, "0x2222", addr)
}

func TestCachedBalance_ZeroIsPresent(t *testing.T) {
	s := knowledge.NewStore()

	_, ok := s.CachedBalance("0xabc")
	assert.False(t, ok)

	s.CacheBalance("0xabc", decimal.Zero)
	bal, ok := s.CachedBalance("0xabc")
	require.True(t, ok)
	assert.True(t, bal.IsZero())
}

func TestQuery_CanPay(t *testing.T) {
	s := knowledge.NewStore()
	s.CacheBalance("0xabc", decimal.NewFromInt(10))

	results := s.Query("(query (can-pay 0xabc 5))")
	require.Len(t, results, 1)
	assert.Equal(t, "(can-pay 0xabc 5)", results[0])
	assert.Contains(t, s.Facts(), "(can-pay 0xabc 5)")
}

func TestQuery_CanPay_Insufficient(t *testing.T) {
	s := knowledge.NewStore()
	s.CacheBalance("0xabc", decimal.NewFromInt(3))

	results := s.Query("(query (can-pay 0xabc 5))")
	require.Len(t, results, 1)
	assert.Equal(t, "(insufficient-balance 0xabc 5 3)", results[0])
}

func TestQuery_CanPay_UncachedUserIsInsufficient(t *testing.T) {
	s := knowledge.NewStore()

	results := s.Query("(query (can-pay 0xnever 1))")
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "insufficient-balance")
}

func TestQuery_ResolveENS(t *testing.T) {
	s := knowledge.NewStore()
	s.CacheAlias("vitalik.eth", "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")

	results := s.Query("(query (resolve-ens vitalik.eth))")
	require.Len(t, results, 1)
	assert.Equal(t, "(ens-address vitalik.eth 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045)", results[0])

	results = s.Query("(query (resolve-ens unknown.eth))")
	require.Len(t, results, 1)
	assert.Equal(t, "(ens-unknown unknown.eth)", results[0])
}

func TestQuery_PaymentSafe(t *testing.T) {
	s := knowledge.NewStore()
	s.CacheBalance("0xabc", decimal.NewFromInt(100))

	results := s.Query("(query (payment-safe 0xabc 5 vitalik.eth))")
	require.Len(t, results, 1)
	assert.Equal(t, "(payment-safe 0xabc 5 vitalik.eth)", results[0])

	results = s.Query("(query (payment-safe 0xabc 500 notanens))")
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "payment-unsafe")
	assert.Contains(t, results[0], "insufficient-balance")
	assert.Contains(t, results[0], "invalid-ens")
}

func TestQuery_SuspiciousPattern(t *testing.T) {
	s := knowledge.NewStore()
	s.RecordUserActivity("0xnew", knowledge.UserActivity{AgeDays: 0})
	s.RecordUserActivity("0xold", knowledge.UserActivity{AgeDays: 30})

	results := s.Query("(query (suspicious-pattern 0xnew 2000))")
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "suspicious-pattern")

	results = s.Query("(query (suspicious-pattern 0xold 2000))")
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "normal-pattern")

	results = s.Query("(query (suspicious-pattern 0xnew 5))")
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "normal-pattern")
}

func TestQuery_Sentinels(t *testing.T) {
	s := knowledge.NewStore()

	results := s.Query("(query (what-is-this thing))")
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "unknown-query")

	results = s.Query("(query (can-pay))")
	require.Len(t, results, 1)
	assert.Equal(t, knowledge.SentinelInvalidFormat, results[0])

	results = s.Query("(query (can-pay 0xabc notanumber))")
	require.Len(t, results, 1)
	assert.Equal(t, knowledge.SentinelInvalidFormat, results[0])
}

func TestStats(t *testing.T) {
	s := knowledge.NewStore()
	s.AddFact("(hello)")
	s.CacheAlias("a.eth", "0x1")
	s.CacheBalance("0x1", decimal.NewFromInt(1))

	stats := s.Stats()
	assert.Equal(t, 3, stats.Facts) // hello + ens-address + balance
	assert.Equal(t, 6, stats.Rules)
	assert.Equal(t, 1, stats.Aliases)
	assert.Equal(t, 1, stats.Balances)
}

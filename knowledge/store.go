// Package knowledge implements the agent's fact store: an append-only,
// duplicate-suppressing log of short textual assertions, plus keyed caches
// for ENS resolutions and token balances and a per-user activity map.
//
// Facts are deliberately opaque strings in a parenthesized mini-language,
// which keeps the store trivially auditable and exportable. Query parses
// them back out at the boundary; see query.go.
package knowledge

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultMaxFacts bounds the fact log. When the cap is exceeded the oldest
// fact is evicted from both the log and the dedup set, so a fact that was
// evicted may be re-added later.
const DefaultMaxFacts = 1024

// UserActivity is per-user metadata consulted by the suspicion heuristics.
type UserActivity struct {
	LastRequest string
	ChainID     int64
	AgeDays     int
}

// Stats summarizes store contents for health reporting.
type Stats struct {
	Facts    int `json:"facts"`
	Rules    int `json:"rules"`
	Aliases  int `json:"ens_cached"`
	Balances int `json:"balances_cached"`
}

// Store holds all shared mutable agent state. Every method takes the
// single coarse mutex; concurrent pipeline runs see last-write-wins cache
// semantics, which is fine because cache entries are best-effort hints.
type Store struct {
	mu       sync.Mutex
	facts    []string
	factSet  map[string]struct{}
	rules    []string
	aliases  map[string]string
	balances map[string]decimal.Decimal
	users    map[string]UserActivity
	maxFacts int
}

// foundational rules seeded into every store
var baseRules = []string{
	`(= (valid-ens ?name) (ends-with ?name ".eth"))`,
	`(= (can-pay ?user ?amount) (>= (balance ?user) ?amount))`,
	`(= (payment-safe ?user ?amount ?ens) (and (can-pay ?user ?amount) (valid-ens ?ens)))`,
	`(= (large-payment ?amount) (> ?amount 1000))`,
	`(= (suspicious-pattern ?user ?amount) (and (large-payment ?amount) (new-user ?user)))`,
	`(= (new-user ?user) (< (user-age-days ?user) 1))`,
}

func NewStore() *Store {
	s := &Store{
		factSet:  make(map[string]struct{}),
		aliases:  make(map[string]string),
		balances: make(map[string]decimal.Decimal),
		users:    make(map[string]UserActivity),
		maxFacts: DefaultMaxFacts,
	}
	s.rules = append(s.rules, baseRules...)
	return s
}

// AddFact appends text to the fact log unless an identical fact is already
// present. Insertion order is preserved; no fact is ever mutated.
func (s *Store) AddFact(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFactLocked(text)
}

func (s *Store) addFactLocked(text string) {
	if _, dup := s.factSet[text]; dup {
		return
	}
	if len(s.facts) >= s.maxFacts {
		oldest := s.facts[0]
		s.facts = s.facts[1:]
		delete(s.factSet, oldest)
	}
	s.facts = append(s.facts, text)
	s.factSet[text] = struct{}{}
}

// Facts returns a copy of the full fact log in insertion order.
func (s *Store) Facts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.facts))
	copy(out, s.facts)
	return out
}

// Recent returns the newest n facts in insertion order.
func (s *Store) Recent(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.facts) {
		n = len(s.facts)
	}
	out := make([]string, n)
	copy(out, s.facts[len(s.facts)-n:])
	return out
}

// Rules returns the seeded reasoning rules.
func (s *Store) Rules() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.rules))
	copy(out, s.rules)
	return out
}

// CacheAlias records a resolved ENS name. Re-resolution overwrites the
// cache entry; the associated fact stays in the log.
func (s *Store) CacheAlias(alias, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alias = strings.ToLower(alias)
	s.aliases[alias] = address
	s.addFactLocked(fmt.Sprintf("(ens-address %s %s)", alias, address))
}

// CachedAlias returns the cached address for alias, if any.
func (s *Store) CachedAlias(alias string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr, ok := s.aliases[strings.ToLower(alias)]
	return addr, ok
}

// AliasNames returns the set of cached ENS names.
func (s *Store) AliasNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.aliases))
	for name := range s.aliases {
		out = append(out, name)
	}
	return out
}

// CacheBalance records an observed balance, including an exact zero.
func (s *Store) CacheBalance(account string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] = balance
	s.addFactLocked(fmt.Sprintf("(balance %s %s)", account, balance.String()))
}

// CachedBalance returns the cached balance for account. The second return
// distinguishes "checked and zero" from "never checked".
func (s *Store) CachedBalance(account string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[account]
	return bal, ok
}

// RecordUserActivity overwrites the per-user activity entry.
func (s *Store) RecordUserActivity(user string, activity UserActivity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user] = activity
	s.addFactLocked(fmt.Sprintf("(user-age-days %s %d)", user, activity.AgeDays))
}

// UserActivity returns the recorded activity for user, if any.
func (s *Store) UserActivity(user string) (UserActivity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[user]
	return a, ok
}

// Aliases returns a copy of the alias cache for introspection endpoints.
func (s *Store) Aliases() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

// Balances returns a copy of the balance cache for introspection endpoints.
func (s *Store) Balances() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(s.balances))
	for k, v := range s.balances {
		out[k] = v
	}
	return out
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Facts:    len(s.facts),
		Rules:    len(s.rules),
		Aliases:  len(s.aliases),
		Balances: len(s.balances),
	}
}

// Package resolver resolves ENS names to addresses, consulting the fact
// store cache before any network lookup and writing successful
// resolutions back into it.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/registry"
	"github.com/vitwit/enspay/types"
)

var ensNameRe = regexp.MustCompile(`^[a-zA-Z0-9-]+\.eth$`)

// wellKnown covers a handful of names so the agent works without a
// mainnet connection. On-chain resolution takes over for everything else.
var wellKnown = map[string]string{
	"vitalik.eth": "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
	"nick.eth":    "0xb8c2C29ee19D8307cb7255e1Cd9CbDE883A267d5",
	"ens.eth":     "0xFe89cc7aBB2C4183683ab71653C4cdc9B02D44b7",
	"alice.eth":   "0x4675C7e5BaAFBFFbca748158bEcBA61ef3b0a263",
	"test.eth":    "0x1234567890123456789012345678901234567890",
}

// wellKnownReverse is the inverse of wellKnown minus the test entry.
var wellKnownReverse = func() map[string]string {
	m := make(map[string]string, len(wellKnown))
	for name, addr := range wellKnown {
		if name == "test.eth" {
			continue
		}
		m[strings.ToLower(addr)] = name
	}
	return m
}()

type Resolver struct {
	store    *knowledge.Store
	registry *registry.Registry
	log      logger.Logger
}

func New(store *knowledge.Store, reg *registry.Registry, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Resolver{store: store, registry: reg, log: log}
}

// ValidFormat reports whether name matches the ENS alias grammar. Used as
// a pre-filter before any network resolution is attempted.
func ValidFormat(name string) bool {
	return ensNameRe.MatchString(name)
}

// Resolve resolves an ENS name to an address. A false return means the
// name could not be resolved; that is a normal outcome, never an error.
// Successful resolutions are written back to the cache, so the second
// Resolve for a name performs no external lookup.
func (r *Resolver) Resolve(ctx context.Context, alias string) (string, bool) {
	alias = strings.ToLower(alias)

	if addr, ok := r.store.CachedAlias(alias); ok {
		return addr, true
	}

	if !ValidFormat(alias) {
		return "", false
	}

	if addr, ok := wellKnown[alias]; ok {
		r.store.CacheAlias(alias, addr)
		return addr, true
	}

	client, err := r.registry.ClientFor(r.resolutionChain())
	if err != nil {
		r.log.Warn("no resolution client available", map[string]any{"alias": alias, "error": err.Error()})
		return "", false
	}

	addr, err := client.ResolveName(ctx, alias)
	if err != nil {
		r.log.Warn("ens resolution failed", map[string]any{"alias": alias, "error": err.Error()})
		return "", false
	}
	if addr == (common.Address{}) {
		return "", false
	}

	resolved := addr.Hex()
	r.store.CacheAlias(alias, resolved)
	return resolved, true
}

// ReverseResolve finds the primary ENS name for an address. Best effort;
// absence is not an error.
func (r *Resolver) ReverseResolve(ctx context.Context, address string) (string, bool) {
	if name, ok := wellKnownReverse[strings.ToLower(address)]; ok {
		return name, true
	}

	client, err := r.registry.ClientFor(r.resolutionChain())
	if err != nil {
		return "", false
	}
	name, err := client.ReverseResolve(ctx, common.HexToAddress(address))
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

// resolutionChain picks the chain ENS lookups run on: Ethereum mainnet
// when configured, otherwise the registry default.
func (r *Resolver) resolutionChain() int64 {
	if _, err := r.registry.ConfigFor(types.ChainEthereum); err == nil {
		return types.ChainEthereum
	}
	return r.registry.DefaultChainID()
}

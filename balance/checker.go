// Package balance queries token balances, cache first, with a fail-safe
// zero on network errors: blocking a payment on stale data is preferable
// to approving one.
package balance

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/metrics"
	"github.com/vitwit/enspay/registry"
)

type Checker struct {
	store    *knowledge.Store
	registry *registry.Registry
	log      logger.Logger
	metrics  metrics.Recorder
}

func New(store *knowledge.Store, reg *registry.Registry, log logger.Logger, rec metrics.Recorder) *Checker {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Checker{store: store, registry: reg, log: log, metrics: rec}
}

// BalanceOf returns the account's token balance in display units. An
// unsupported chain is a hard error, never a silent zero. A cached value,
// including an exact zero, short-circuits the network. RPC and contract
// failures degrade to zero with the failure recorded as a fact.
func (c *Checker) BalanceOf(ctx context.Context, account string, chainID int64) (decimal.Decimal, error) {
	cfg, err := c.registry.ConfigFor(chainID)
	if err != nil {
		return decimal.Zero, err
	}

	chainLabel := map[string]string{"chain": cfg.Name}

	if cached, ok := c.store.CachedBalance(account); ok {
		c.metrics.IncCounter(metrics.EventBalanceCacheHit, chainLabel)
		return cached, nil
	}

	client, err := c.registry.ClientFor(chainID)
	if err != nil {
		return c.failSafe(account, chainLabel, err), nil
	}

	token := common.HexToAddress(cfg.USDCAddress)
	raw, err := client.TokenBalance(ctx, token, common.HexToAddress(account))
	if err != nil {
		return c.failSafe(account, chainLabel, err), nil
	}

	decimals, err := client.TokenDecimals(ctx, token)
	if err != nil {
		return c.failSafe(account, chainLabel, err), nil
	}

	bal := decimal.NewFromBigInt(raw, -int32(decimals))
	c.store.CacheBalance(account, bal)
	c.metrics.IncCounter(metrics.EventBalanceLookup, chainLabel)
	return bal, nil
}

func (c *Checker) failSafe(account string, labels map[string]string, err error) decimal.Decimal {
	c.log.Warn("balance check failed, treating as zero", map[string]any{
		"account": account,
		"error":   err.Error(),
	})
	c.store.AddFact(fmt.Sprintf("(balance-check-failed %s)", account))
	c.metrics.IncCounter(metrics.EventBalanceError, labels)
	return decimal.Zero
}

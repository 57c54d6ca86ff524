// Package txbuilder assembles unsigned ERC-20 transfer payloads: the
// transfer selector plus ABI-padded recipient and amount, with a gas
// estimate that degrades to a fixed fallback instead of failing the
// build.
package txbuilder

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/vitwit/enspay/clients"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/metrics"
	"github.com/vitwit/enspay/registry"
	"github.com/vitwit/enspay/types"
)

const (
	// transfer(address,uint256)
	transferSelector = "a9059cbb"

	// USDC has 6 decimals on every supported chain.
	tokenDecimals = 6

	// Used when the estimate call fails; enough for any ERC-20 transfer.
	fallbackGasLimit = 100000
)

type Builder struct {
	registry *registry.Registry
	log      logger.Logger
	metrics  metrics.Recorder
}

func New(reg *registry.Registry, log logger.Logger, rec metrics.Recorder) *Builder {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Builder{registry: reg, log: log, metrics: rec}
}

// BuildTransfer prepares an unsigned USDC transfer of amount (display
// units) from from to to on chainID. Estimation failure falls back to a
// fixed gas limit; anything else unrecoverable surfaces as a
// TX_PREPARATION_FAILED error wrapping the cause.
func (b *Builder) BuildTransfer(ctx context.Context, from, to string, amount decimal.Decimal, chainID int64) (*types.TransactionPayload, error) {
	cfg, err := b.registry.ConfigFor(chainID)
	if err != nil {
		return nil, err
	}

	data, err := EncodeTransfer(common.HexToAddress(to), amount)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrTxPreparationFailed,
			Message: "transaction preparation failed",
			Err:     err,
		}
	}

	client, err := b.registry.ClientFor(chainID)
	if err != nil {
		return nil, &types.Error{
			Code:    types.ErrTxPreparationFailed,
			Message: "transaction preparation failed",
			Err:     err,
		}
	}

	token := common.HexToAddress(cfg.USDCAddress)
	gasLimit, err := client.EstimateGas(ctx, common.HexToAddress(from), token, data)
	if err != nil {
		b.log.Debug("gas estimation failed, using fallback", map[string]any{
			"chain": cfg.Name,
			"error": err.Error(),
		})
		b.metrics.IncCounter(metrics.EventGasFallback, map[string]string{"chain": cfg.Name})
		gasLimit = fallbackGasLimit
	}

	return &types.TransactionPayload{
		To:       cfg.USDCAddress,
		Data:     "0x" + hex.EncodeToString(data),
		Value:    "0x0",
		GasLimit: hexutil.EncodeUint64(gasLimit),
		ChainID:  hexutil.EncodeUint64(uint64(chainID)),
	}, nil
}

// EncodeTransfer packs transfer(to, amount) calldata: 4-byte selector,
// recipient left-padded to 32 bytes, amount as a big-endian 32-byte
// integer in the token's atomic units.
func EncodeTransfer(to common.Address, amount decimal.Decimal) ([]byte, error) {
	atomic := amount.Shift(tokenDecimals).Truncate(0)
	if atomic.IsNegative() {
		return nil, fmt.Errorf("transfer amount must not be negative")
	}
	amountWord := clients.LeftPadBig(atomic.BigInt(), 32)
	if len(amountWord) > 32 {
		return nil, fmt.Errorf("transfer amount overflows uint256")
	}

	selector, err := hex.DecodeString(transferSelector)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 4+32+32)
	data = append(data, selector...)
	data = append(data, clients.LeftPadAddress(to)...)
	data = append(data, amountWord...)
	return data, nil
}

// Package clients provides the chain access layer: a narrow ChainClient
// interface consumed by the resolver, balance checker and transaction
// builder, and an EVM implementation backed by go-ethereum.
package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainClient is the read-only view of a chain the pipeline needs. All
// calls suspend on the network and honor ctx cancellation; callers are
// expected to wrap them in bounded timeouts.
type ChainClient interface {
	// TokenBalance returns the raw balanceOf(account) value on token.
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)

	// TokenDecimals returns the token's decimals() value.
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)

	// EstimateGas estimates execution cost for a call with the given
	// calldata sent from from to to.
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)

	// ResolveName resolves an ENS name through the on-chain registry.
	// An unregistered name yields the zero address and no error.
	ResolveName(ctx context.Context, name string) (common.Address, error)

	// ReverseResolve looks up the primary ENS name for addr. Absence is
	// reported as an empty string, not an error.
	ReverseResolve(ctx context.Context, addr common.Address) (string, error)

	Close()
}

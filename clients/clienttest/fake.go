// Package clienttest provides a configurable in-memory ChainClient for
// tests that must not touch a network.
package clienttest

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/enspay/clients"
)

var _ clients.ChainClient = (*FakeClient)(nil)

// FakeClient serves canned balances, decimals, gas estimates and ENS
// records and counts how often each call is made.
type FakeClient struct {
	mu sync.Mutex

	Balances map[common.Address]*big.Int
	Decimals uint8
	Gas      uint64
	Names    map[string]common.Address
	Reverse  map[common.Address]string

	// Errors returned on the corresponding call when set.
	BalanceErr  error
	DecimalsErr error
	GasErr      error
	ResolveErr  error

	BalanceCalls  int
	DecimalsCalls int
	GasCalls      int
	ResolveCalls  int
	Closed        bool
}

func New() *FakeClient {
	return &FakeClient{
		Balances: make(map[common.Address]*big.Int),
		Decimals: 6,
		Gas:      52000,
		Names:    make(map[string]common.Address),
		Reverse:  make(map[common.Address]string),
	}
}

func (f *FakeClient) TokenBalance(_ context.Context, _, account common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BalanceCalls++
	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}
	bal, ok := f.Balances[account]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

func (f *FakeClient) TokenDecimals(context.Context, common.Address) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DecimalsCalls++
	if f.DecimalsErr != nil {
		return 0, f.DecimalsErr
	}
	return f.Decimals, nil
}

func (f *FakeClient) EstimateGas(context.Context, common.Address, common.Address, []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GasCalls++
	if f.GasErr != nil {
		return 0, f.GasErr
	}
	return f.Gas, nil
}

func (f *FakeClient) ResolveName(_ context.Context, name string) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResolveCalls++
	if f.ResolveErr != nil {
		return common.Address{}, f.ResolveErr
	}
	return f.Names[strings.ToLower(name)], nil
}

func (f *FakeClient) ReverseResolve(_ context.Context, addr common.Address) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reverse[addr], nil
}

func (f *FakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

// ErrUnreachable is a convenience network error for failure-path tests.
var ErrUnreachable = errors.New("connection refused")

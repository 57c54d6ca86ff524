package balance_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/enspay/balance"
	"github.com/vitwit/enspay/clients"
	"github.com/vitwit/enspay/clients/clienttest"
	"github.com/vitwit/enspay/knowledge"
	"github.com/vitwit/enspay/registry"
	"github.com/vitwit/enspay/types"
)

const account = "0x4675C7e5BaAFBFFbca748158bEcBA61ef3b0a263"

func newChecker(fake *clienttest.FakeClient) (*balance.Checker, *knowledge.Store) {
	store := knowledge.NewStore()
	chains := []types.ChainConfig{
		{ChainID: types.ChainSepolia, Name: "Sepolia", RPCURL: "http://test", USDCAddress: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"},
	}
	reg := registry.New(chains, 0, func(string) (clients.ChainClient, error) {
		return fake, nil
	})
	return balance.New(store, reg, nil, nil), store
}

func TestBalanceOf_OnChainAndCacheWriteBack(t *testing.T) {
	fake := clienttest.New()
	// 100.5 USDC at 6 decimals
	fake.Balances[common.HexToAddress(account)] = big.NewInt(100500000)
	c, store := newChecker(fake)

	bal, err := c.BalanceOf(context.Background(), account, types.ChainSepolia)
	require.NoError(t, err)
	assert.Equal(t, "100.5", bal.String())

	cached, ok := store.CachedBalance(account)
	require.True(t, ok)
	assert.True(t, cached.Equal(bal))
}

func TestBalanceOf_CacheHitSkipsRPC(t *testing.T) {
	fake := clienttest.New()
	c, store := newChecker(fake)
	store.CacheBalance(account, decimal.NewFromFloat(42.5))

	bal, err := c.BalanceOf(context.Background(), account, types.ChainSepolia)
	require.NoError(t, err)
	assert.Equal(t, "42.5", bal.String())
	assert.Zero(t, fake.BalanceCalls)
}

func TestBalanceOf_CachedZeroIsAHit(t *testing.T) {
	fake := clienttest.New()
	fake.Balances[common.HexToAddress(account)] = big.NewInt(999)
	c, store := newChecker(fake)
	store.CacheBalance(account, decimal.Zero)

	bal, err := c.BalanceOf(context.Background(), account, types.ChainSepolia)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
	assert.Zero(t, fake.BalanceCalls, "cached zero must not trigger an RPC")
}

func TestBalanceOf_UnsupportedChain(t *testing.T) {
	fake := clienttest.New()
	c, _ := newChecker(fake)

	_, err := c.BalanceOf(context.Background(), account, 999999)
	require.Error(t, err)

	var perr *types.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, types.ErrUnsupportedChain, perr.Code)
}

func TestBalanceOf_RPCErrorFailsSafeToZero(t *testing.T) {
	fake := clienttest.New()
	fake.BalanceErr = clienttest.ErrUnreachable
	c, store := newChecker(fake)

	bal, err := c.BalanceOf(context.Background(), account, types.ChainSepolia)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
	assert.Contains(t, store.Facts(), "(balance-check-failed "+account+")")

	// The failure is not cached; a later check retries the network.
	_, cached := store.CachedBalance(account)
	assert.False(t, cached)
}

func TestBalanceOf_DialFailureFailsSafeToZero(t *testing.T) {
	store := knowledge.NewStore()
	chains := []types.ChainConfig{
		{ChainID: types.ChainSepolia, Name: "Sepolia", RPCURL: "http://test", USDCAddress: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"},
	}
	reg := registry.New(chains, 0, func(string) (clients.ChainClient, error) {
		return nil, clienttest.ErrUnreachable
	})
	c := balance.New(store, reg, nil, nil)

	bal, err := c.BalanceOf(context.Background(), account, types.ChainSepolia)
	require.NoError(t, err, "an unreachable node degrades to zero, it does not error")
	assert.True(t, bal.IsZero())
	assert.Contains(t, store.Facts(), "(balance-check-failed "+account+")")

	_, cached := store.CachedBalance(account)
	assert.False(t, cached)
}

func TestBalanceOf_DecimalsErrorFailsSafeToZero(t *testing.T) {
	fake := clienttest.New()
	fake.Balances[common.HexToAddress(account)] = big.NewInt(5000000)
	fake.DecimalsErr = clienttest.ErrUnreachable
	c, _ := newChecker(fake)

	bal, err := c.BalanceOf(context.Background(), account, types.ChainSepolia)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestBalanceOf_ZeroBalanceIsCached(t *testing.T) {
	fake := clienttest.New()
	c, store := newChecker(fake)

	bal, err := c.BalanceOf(context.Background(), account, types.ChainSepolia)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	cached, ok := store.CachedBalance(account)
	require.True(t, ok, "a genuine zero balance must be cached")
	assert.True(t, cached.IsZero())

	_, err = c.BalanceOf(context.Background(), account, types.ChainSepolia)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.BalanceCalls)
}

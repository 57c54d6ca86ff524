package registry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/enspay/clients"
	"github.com/vitwit/enspay/clients/clienttest"
	"github.com/vitwit/enspay/registry"
	"github.com/vitwit/enspay/types"
)

func testChains() []types.ChainConfig {
	return []types.ChainConfig{
		{ChainID: 1, Name: "Ethereum", RPCURL: "http://one", USDCAddress: "0xA0b8"},
		{ChainID: 11155111, Name: "Sepolia", RPCURL: "http://sepolia", USDCAddress: "0x1c7D"},
	}
}

func TestConfigFor(t *testing.T) {
	r := registry.New(testChains(), 0, nil)

	cfg, err := r.ConfigFor(1)
	require.NoError(t, err)
	assert.Equal(t, "Ethereum", cfg.Name)

	_, err = r.ConfigFor(999999)
	require.Error(t, err)
	var perr *types.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, types.ErrUnsupportedChain, perr.Code)
}

func TestClientFor_Memoizes(t *testing.T) {
	dials := 0
	dial := func(string) (clients.ChainClient, error) {
		dials++
		return clienttest.New(), nil
	}
	r := registry.New(testChains(), 0, dial)

	first, err := r.ClientFor(1)
	require.NoError(t, err)
	second, err := r.ClientFor(1)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, dials)

	_, err = r.ClientFor(11155111)
	require.NoError(t, err)
	assert.Equal(t, 2, dials)
}

func TestClientFor_UnsupportedChain(t *testing.T) {
	r := registry.New(testChains(), 0, func(string) (clients.ChainClient, error) {
		t.Fatal("dialer must not be called for an unsupported chain")
		return nil, nil
	})

	_, err := r.ClientFor(424242)
	require.Error(t, err)
	var perr *types.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, types.ErrUnsupportedChain, perr.Code)
}

func TestClose_ClosesHandles(t *testing.T) {
	fake := clienttest.New()
	r := registry.New(testChains(), 0, func(string) (clients.ChainClient, error) {
		return fake, nil
	})

	_, err := r.ClientFor(1)
	require.NoError(t, err)

	r.Close()
	assert.True(t, fake.Closed)
}

func TestDefaultChainID(t *testing.T) {
	r := registry.New(testChains(), 0, nil)
	assert.Equal(t, types.ChainSepolia, r.DefaultChainID())

	r = registry.New(testChains(), 137, nil)
	assert.Equal(t, int64(137), r.DefaultChainID())
}

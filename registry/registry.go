// Package registry holds the static per-chain configuration table and a
// lazily-built cache of chain client handles, one per chain for the
// process lifetime.
package registry

import (
	"fmt"
	"sync"

	"github.com/vitwit/enspay/clients"
	"github.com/vitwit/enspay/types"
)

// Dialer constructs a chain client for an RPC endpoint. Injectable so
// tests can supply fakes without a network.
type Dialer func(rpcURL string) (clients.ChainClient, error)

// DefaultDialer dials a real EVM JSON-RPC endpoint.
func DefaultDialer(rpcURL string) (clients.ChainClient, error) {
	return clients.NewEVMClient(rpcURL)
}

type Registry struct {
	mu           sync.Mutex
	chains       map[int64]types.ChainConfig
	handles      map[int64]clients.ChainClient
	dial         Dialer
	defaultChain int64
}

// New builds a registry from the static chain table. An unset
// defaultChain falls back to Sepolia.
func New(chainList []types.ChainConfig, defaultChain int64, dial Dialer) *Registry {
	if dial == nil {
		dial = DefaultDialer
	}
	if defaultChain == 0 {
		defaultChain = types.ChainSepolia
	}
	chains := make(map[int64]types.ChainConfig, len(chainList))
	for _, c := range chainList {
		chains[c.ChainID] = c
	}
	return &Registry{
		chains:       chains,
		handles:      make(map[int64]clients.ChainClient),
		dial:         dial,
		defaultChain: defaultChain,
	}
}

// DefaultChainID is the chain used when a request does not name one.
func (r *Registry) DefaultChainID() int64 {
	return r.defaultChain
}

// ConfigFor returns the static configuration for chainID. Absence is a
// hard configuration error.
func (r *Registry) ConfigFor(chainID int64) (types.ChainConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.chains[chainID]
	if !ok {
		return types.ChainConfig{}, &types.Error{
			Code:    types.ErrUnsupportedChain,
			Message: fmt.Sprintf("unsupported chain ID: %d", chainID),
		}
	}
	return cfg, nil
}

// ClientFor returns the memoized client handle for chainID, dialing on
// first access. Reachability is never re-validated here; network failures
// surface lazily on first use of the handle.
func (r *Registry) ClientFor(chainID int64) (clients.ChainClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle, ok := r.handles[chainID]; ok {
		return handle, nil
	}

	cfg, ok := r.chains[chainID]
	if !ok {
		return nil, &types.Error{
			Code:    types.ErrUnsupportedChain,
			Message: fmt.Sprintf("unsupported chain ID: %d", chainID),
		}
	}

	handle, err := r.dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for chain %d: %w", chainID, err)
	}
	r.handles[chainID] = handle
	return handle, nil
}

// Close closes every dialed client handle.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, handle := range r.handles {
		handle.Close()
		delete(r.handles, id)
	}
}

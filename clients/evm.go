package clients

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var _ ChainClient = (*EVMClient)(nil)

// ERC-20 function selectors, first 4 bytes of keccak256 of the signature.
var (
	selectorBalanceOf = mustSelector("70a08231") // balanceOf(address)
	selectorDecimals  = mustSelector("313ce567") // decimals()
)

// EVMClient provides read access to an EVM chain over JSON-RPC. Calldata
// for the handful of views it needs is packed by hand rather than through
// generated bindings.
type EVMClient struct {
	rpcURL string
	client *ethclient.Client
}

func NewEVMClient(rpcURL string) (*EVMClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to EVM RPC: %w", err)
	}

	return &EVMClient{
		rpcURL: rpcURL,
		client: client,
	}, nil
}

func (e *EVMClient) Close() {
	e.client.Close()
}

func (e *EVMClient) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data := append(selectorBalanceOf, LeftPadAddress(account)...)
	out, err := e.call(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call failed: %w", err)
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("balanceOf returned %d bytes, want 32", len(out))
	}
	return new(big.Int).SetBytes(out[:32]), nil
}

func (e *EVMClient) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := e.call(ctx, token, selectorDecimals)
	if err != nil {
		return 0, fmt.Errorf("decimals call failed: %w", err)
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("decimals returned %d bytes, want 32", len(out))
	}
	return uint8(out[31]), nil
}

func (e *EVMClient) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	msg := ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	}
	return e.client.EstimateGas(ctx, msg)
}

func (e *EVMClient) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}
	return e.client.CallContract(ctx, msg, nil)
}

// LeftPadAddress encodes an address as a 32-byte ABI word.
func LeftPadAddress(addr common.Address) []byte {
	return append(make([]byte, 12), addr.Bytes()...)
}

// LeftPadBig encodes a big integer as a big-endian word of the given size.
func LeftPadBig(n *big.Int, size int) []byte {
	b := n.Bytes()
	if len(b) >= size {
		return b
	}
	padded := make([]byte, size)
	copy(padded[size-len(b):], b)
	return padded
}

func mustSelector(hexStr string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil || len(b) != 4 {
		panic(fmt.Sprintf("bad selector %q", hexStr))
	}
	return b
}

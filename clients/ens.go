package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// The ENS registry lives at the same address on mainnet and the common
// testnets.
var ensRegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// ENS contract selectors.
var (
	selectorResolver = mustSelector("0178b8bf") // resolver(bytes32)
	selectorAddr     = mustSelector("3b3b57de") // addr(bytes32)
	selectorName     = mustSelector("691f3431") // name(bytes32)
)

// Namehash implements the ENS namehash algorithm: keccak256 folded over
// the labels of the name from right to left, starting at the zero node.
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		copy(node[:], crypto.Keccak256(node[:], labelHash))
	}
	return node
}

// ReverseNode returns the namehash of "<hex-address>.addr.reverse" used
// for primary-name lookups.
func ReverseNode(addr common.Address) [32]byte {
	hexAddr := strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x"))
	return Namehash(hexAddr + ".addr.reverse")
}

// ResolveName resolves an ENS name to an address: look up the resolver
// for the node on the registry, then ask the resolver for addr(node).
// An unregistered name or a resolver with no address record yields the
// zero address with no error.
func (e *EVMClient) ResolveName(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(name)

	resolver, err := e.resolverFor(ctx, node)
	if err != nil {
		return common.Address{}, err
	}
	if resolver == (common.Address{}) {
		return common.Address{}, nil
	}

	data := append(append([]byte{}, selectorAddr...), node[:]...)
	out, err := e.call(ctx, resolver, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("addr call failed: %w", err)
	}
	if len(out) < 32 {
		return common.Address{}, nil
	}
	return common.BytesToAddress(out[12:32]), nil
}

// ReverseResolve looks up the primary ENS name for addr via the reverse
// registrar. A missing reverse record yields an empty string.
func (e *EVMClient) ReverseResolve(ctx context.Context, addr common.Address) (string, error) {
	node := ReverseNode(addr)

	resolver, err := e.resolverFor(ctx, node)
	if err != nil {
		return "", err
	}
	if resolver == (common.Address{}) {
		return "", nil
	}

	data := append(append([]byte{}, selectorName...), node[:]...)
	out, err := e.call(ctx, resolver, data)
	if err != nil {
		return "", fmt.Errorf("name call failed: %w", err)
	}
	return decodeABIString(out)
}

func (e *EVMClient) resolverFor(ctx context.Context, node [32]byte) (common.Address, error) {
	data := append(append([]byte{}, selectorResolver...), node[:]...)
	out, err := e.call(ctx, ensRegistryAddress, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolver call failed: %w", err)
	}
	if len(out) < 32 {
		return common.Address{}, nil
	}
	return common.BytesToAddress(out[12:32]), nil
}

// decodeABIString decodes a single dynamically-sized string return value:
// a 32-byte offset word, a 32-byte length word, then the bytes.
func decodeABIString(out []byte) (string, error) {
	if len(out) < 64 {
		return "", nil
	}
	offset := new(big.Int).SetBytes(out[:32])
	if !offset.IsInt64() || offset.Int64()+32 > int64(len(out)) {
		return "", fmt.Errorf("string offset out of range")
	}
	start := offset.Int64()
	length := new(big.Int).SetBytes(out[start : start+32])
	if !length.IsInt64() || start+32+length.Int64() > int64(len(out)) {
		return "", fmt.Errorf("string length out of range")
	}
	return string(out[start+32 : start+32+length.Int64()]), nil
}

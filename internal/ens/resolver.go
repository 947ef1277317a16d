// Package ens resolves ENS names for investor addresses. The registry lives
// at the same address on Ethereum mainnet and Sepolia.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const registryAddr = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"

// Selectors: resolver(bytes32), addr(bytes32), name(bytes32).
const (
	selResolver = "0x0178b8bf"
	selAddr     = "0x3b3b57de"
	selName     = "0x691f3431"
)

// ErrNotFound is returned when a name or address has no record.
var ErrNotFound = errors.New("ens: no record")

// Caller performs eth_call; *chain.EVMClient satisfies it.
type Caller interface {
	CallContract(ctx context.Context, toAddr, calldata string) (string, error)
}

// Resolver looks names up through one chain's registry.
type Resolver struct {
	client Caller
}

// NewResolver returns a resolver that queries through client.
func NewResolver(client Caller) *Resolver {
	return &Resolver{client: client}
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	return strings.Contains(s, ".") && !strings.HasPrefix(s, "0x") && !strings.HasSuffix(s, ".")
}

// Resolve returns the checksummed address name points at.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	node := Namehash(normalize(name))
	res, err := r.resolverFor(ctx, node)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", name, err)
	}
	out, err := r.client.CallContract(ctx, res.Hex(), selAddr+hexutil.Encode(node[:])[2:])
	if err != nil {
		return "", fmt.Errorf("querying resolver for %q: %w", name, err)
	}
	addr, ok := wordAddress(out)
	if !ok {
		return "", fmt.Errorf("resolving %q: %w", name, ErrNotFound)
	}
	return addr.Hex(), nil
}

// Lookup returns the primary name for address via addr.reverse.
func (r *Resolver) Lookup(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	reverse := strings.ToLower(common.HexToAddress(address).Hex()[2:]) + ".addr.reverse"
	node := Namehash(reverse)
	res, err := r.resolverFor(ctx, node)
	if err != nil {
		return "", fmt.Errorf("reverse lookup %s: %w", address, err)
	}
	out, err := r.client.CallContract(ctx, res.Hex(), selName+hexutil.Encode(node[:])[2:])
	if err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	name, err := decodeString(out)
	if err != nil || name == "" {
		return "", fmt.Errorf("reverse lookup %s: %w", address, ErrNotFound)
	}
	return name, nil
}

func (r *Resolver) resolverFor(ctx context.Context, node common.Hash) (common.Address, error) {
	out, err := r.client.CallContract(ctx, registryAddr, selResolver+hexutil.Encode(node[:])[2:])
	if err != nil {
		return common.Address{}, fmt.Errorf("querying registry: %w", err)
	}
	addr, ok := wordAddress(out)
	if !ok {
		return common.Address{}, ErrNotFound
	}
	return addr, nil
}

// Namehash implements the EIP-137 namehash.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		node = crypto.Keccak256Hash(node[:], label)
	}
	return node
}

// normalize lowercases and trims; full UTS-46 mapping is not applied.
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// wordAddress reads the address in a 32-byte return word. The zero address
// counts as unset.
func wordAddress(out string) (common.Address, bool) {
	b, err := hexutil.Decode(out)
	if err != nil || len(b) < 32 {
		return common.Address{}, false
	}
	addr := common.BytesToAddress(b[12:32])
	return addr, addr != (common.Address{})
}

var stringArgs = func() abi.Arguments {
	t, _ := abi.NewType("string", "", nil)
	return abi.Arguments{{Type: t}}
}()

func decodeString(out string) (string, error) {
	b, err := hexutil.Decode(out)
	if err != nil {
		return "", err
	}
	vals, err := stringArgs.Unpack(b)
	if err != nil {
		return "", err
	}
	s, _ := vals[0].(string)
	return s, nil
}

package contract

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ContractCaller performs eth_call.
type ContractCaller interface {
	CallContract(ctx context.Context, toAddr, calldata string) (string, error)
}

// Caller calls read-only (view/pure) contract functions.
type Caller struct {
	client ContractCaller
	abi    []ABIEntry
}

// NewCaller creates a Caller over abi.
func NewCaller(client ContractCaller, abi []ABIEntry) *Caller {
	return &Caller{client: client, abi: abi}
}

// Call calls a read function on a contract and returns decoded results as strings.
func (c *Caller) Call(ctx context.Context, contractAddr, funcName string, args ...string) ([]string, error) {
	fn := c.findFunction(funcName)
	if fn == nil {
		return nil, fmt.Errorf("function %q not found in ABI", funcName)
	}
	if !fn.IsReadFunction() {
		return nil, fmt.Errorf("function %q is not a read function (stateMutability: %s)", funcName, fn.StateMutability)
	}

	calldata, err := encodeCall(fn, args)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	result, err := c.client.CallContract(ctx, contractAddr, calldata)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", funcName, err)
	}
	return decodeResult(fn, result)
}

func (c *Caller) findFunction(name string) *ABIEntry {
	for i := range c.abi {
		if c.abi[i].Type == "function" && c.abi[i].Name == name {
			return &c.abi[i]
		}
	}
	return nil
}

// encodeCall builds calldata: 4-byte selector + one word per static argument.
func encodeCall(fn *ABIEntry, args []string) (string, error) {
	if len(args) != len(fn.Inputs) {
		return "", fmt.Errorf("%s takes %d arguments, got %d", fn.Name, len(fn.Inputs), len(args))
	}
	var b strings.Builder
	b.WriteString(functionSelector(fn))
	for i, param := range fn.Inputs {
		word, err := encodeWord(param.Type, args[i])
		if err != nil {
			return "", fmt.Errorf("encoding param %s: %w", param.Name, err)
		}
		b.WriteString(word)
	}
	return b.String(), nil
}

// functionSelector computes the 4-byte selector for a function.
func functionSelector(fn *ABIEntry) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(fn.Signature()))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}

func encodeWord(typ, val string) (string, error) {
	switch {
	case typ == "address":
		v := strings.TrimPrefix(strings.ToLower(val), "0x")
		if len(v) > 40 {
			return "", fmt.Errorf("invalid address: %s", val)
		}
		if _, err := hex.DecodeString(fmt.Sprintf("%040s", v)); err != nil {
			return "", fmt.Errorf("invalid address: %s", val)
		}
		return fmt.Sprintf("%064s", v), nil

	case strings.HasPrefix(typ, "uint"):
		n, ok := new(big.Int).SetString(val, 0)
		if !ok || n.Sign() < 0 {
			return "", fmt.Errorf("invalid integer: %s", val)
		}
		return fmt.Sprintf("%064x", n), nil

	case typ == "bool":
		if val == "true" || val == "1" {
			return fmt.Sprintf("%064d", 1), nil
		}
		return fmt.Sprintf("%064d", 0), nil
	}
	return "", fmt.Errorf("unsupported type %s", typ)
}

// decodeResult decodes one 32-byte word per output.
func decodeResult(fn *ABIEntry, hexData string) ([]string, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decoding hex result: %w", err)
	}
	if len(data) < 32*len(fn.Outputs) {
		return nil, fmt.Errorf("%s returned %d bytes, want %d", fn.Name, len(data), 32*len(fn.Outputs))
	}

	results := make([]string, 0, len(fn.Outputs))
	for i, out := range fn.Outputs {
		results = append(results, decodeWord(out.Type, data[i*32:(i+1)*32]))
	}
	return results, nil
}

func decodeWord(typ string, word []byte) string {
	switch {
	case typ == "address":
		return "0x" + hex.EncodeToString(word[12:])
	case strings.HasPrefix(typ, "uint"):
		return new(big.Int).SetBytes(word).String()
	case typ == "bool":
		if word[31] == 1 {
			return "true"
		}
		return "false"
	}
	return "0x" + hex.EncodeToString(word)
}

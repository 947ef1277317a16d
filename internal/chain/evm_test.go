package chain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// rpcMock creates a test HTTP server that serves a fixed JSON-RPC response
// per method. Pass method→result pairs; any unknown method returns an RPC error.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if result, ok := responses[req.Method]; ok {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  result,
			})
		} else {
			json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// rpcBadJSON creates a server that returns malformed JSON.
func rpcBadJSON(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not valid json`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ---------------------------------------------------------------------------
// weiToETH
// ---------------------------------------------------------------------------

func TestWeiToETHZero(t *testing.T) {
	assert.Equal(t, "0.000000000000000000", weiToETH(big.NewInt(0)))
}

func TestWeiToETHOneEther(t *testing.T) {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	assert.Equal(t, "1.000000000000000000", WeiToETH(one))
}

func TestParseBigHex(t *testing.T) {
	n, ok := parseBigHex("0x1a")
	require.True(t, ok)
	assert.Equal(t, int64(26), n.Int64())

	_, ok = parseBigHex("0x")
	assert.False(t, ok)
	_, ok = parseBigHex("0xzz")
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// simple reads
// ---------------------------------------------------------------------------

func TestGetBalance(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getBalance": "0xde0b6b3a7640000"})

	bal, err := NewEVMClient(srv.URL).GetBalance(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", bal.Wei.String())
	assert.Equal(t, "1.000000000000000000", bal.ETH)
}

func TestChainIDAndNonce(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_chainId":             "0xaa36a7",
		"eth_getTransactionCount": "0x5",
	})
	c := NewEVMClient(srv.URL)
	ctx := context.Background()

	id, err := c.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), id)

	nonce, err := c.GetNonce(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), nonce)
}

func TestEstimateGas(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_estimateGas": "0x5208"})
	gas, err := NewEVMClient(srv.URL).EstimateGas(context.Background(), "0xa", "0xb", "", big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)
}

func TestRPCErrorIsTyped(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{})
	_, err := NewEVMClient(srv.URL).GasPrice(context.Background())
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)
	assert.Equal(t, "method not found", rpcErr.Message)
}

func TestBadJSONErrors(t *testing.T) {
	srv := rpcBadJSON(t)
	_, err := NewEVMClient(srv.URL).GetBlockNumber(context.Background())
	assert.Error(t, err)
}

func TestUnparseableHexErrors(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_gasPrice": "not-hex"})
	_, err := NewEVMClient(srv.URL).GasPrice(context.Background())
	assert.ErrorContains(t, err, "could not parse gas price")
}

func TestCallForwardsRawResult(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"net_version": "11155111"})
	raw, err := NewEVMClient(srv.URL).Call(context.Background(), "net_version")
	require.NoError(t, err)
	assert.JSONEq(t, `"11155111"`, string(raw))
}

// ---------------------------------------------------------------------------
// SuggestFees
// ---------------------------------------------------------------------------

func TestSuggestFeesLondon(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_gasPrice":         "0x12a05f200", // 5 gwei
		"eth_getBlockByNumber": map[string]interface{}{"baseFeePerGas": "0x77359400"}, // 2 gwei
	})
	fees, err := NewEVMClient(srv.URL).SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000_000), fees.TipCap.Int64())
	assert.Equal(t, int64(7_000_000_000), fees.FeeCap.Int64())
	assert.Equal(t, int64(2_000_000_000), fees.BaseFee.Int64())
}

func TestSuggestFeesMinimumTip(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_gasPrice":         "0x77359400", // == base fee
		"eth_getBlockByNumber": map[string]interface{}{"baseFeePerGas": "0x77359400"},
	})
	fees, err := NewEVMClient(srv.URL).SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), fees.TipCap.Int64())
}

func TestSuggestFeesLegacyChain(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_gasPrice":         "0x3b9aca00",
		"eth_getBlockByNumber": map[string]interface{}{"number": "0x1"},
	})
	fees, err := NewEVMClient(srv.URL).SuggestFees(context.Background())
	require.NoError(t, err)
	assert.Nil(t, fees.BaseFee)
	assert.Equal(t, fees.GasPrice, fees.FeeCap)
}

// ---------------------------------------------------------------------------
// receipts
// ---------------------------------------------------------------------------

func TestGetTransactionReceiptWithLogs(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":      "0x1",
			"blockNumber": "0x100",
			"gasUsed":     "0x5208",
			"logs": []map[string]interface{}{{
				"address": "0xc0ffee",
				"topics":  []string{"0xddf2", "0x0", "0x1"},
				"data":    "0x",
			}},
		},
	})

	receipt, err := NewEVMClient(srv.URL).GetTransactionReceipt(context.Background(), "0xtxhash")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(1), receipt.Status)
	assert.Equal(t, uint64(256), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, "0xc0ffee", receipt.Logs[0].Address)
}

func TestGetTransactionReceiptPending(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	receipt, err := NewEVMClient(srv.URL).GetTransactionReceipt(context.Background(), "0xtx")
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestWaitForReceiptPollsUntilMined(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var result interface{}
		if calls.Add(1) >= 3 {
			result = map[string]interface{}{"status": "0x1", "blockNumber": "0x2", "gasUsed": "0x1"}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result}) //nolint:errcheck
	}))
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).WaitForReceipt(context.Background(), "0xtx", 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), receipt.BlockNumber)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForReceiptReverted(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{"status": "0x0", "blockNumber": "0x2"},
	})
	receipt, err := NewEVMClient(srv.URL).WaitForReceipt(context.Background(), "0xtx", time.Millisecond)
	require.ErrorIs(t, err, ErrReverted)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(0), receipt.Status)
}

func TestWaitForReceiptHonoursContext(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewEVMClient(srv.URL).WaitForReceipt(ctx, "0xtx", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetCode(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getCode": "0x6080"})
	code, err := NewEVMClient(srv.URL).GetCode(context.Background(), "0x1")
	require.NoError(t, err)
	assert.Equal(t, "0x6080", code)
}

func TestPing(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x10"})
	latency, block, err := NewEVMClient(srv.URL).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), block)
	assert.Greater(t, latency, time.Duration(0))
}

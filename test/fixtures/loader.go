// Package fixtures loads recorded JSON-RPC results for integration tests.
package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// LoadRPCResult loads the "result" object of a recorded JSON-RPC response
// under rpc/.
func LoadRPCResult(t *testing.T, filename string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixturesDir(), "rpc", filename))
	require.NoError(t, err, "failed to load fixture RPC response: %s", filename)

	var resp struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))
	require.NotNil(t, resp.Result, "fixture %s has no result", filename)
	return resp.Result
}

package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "infinity-e2e-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "infinity")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

func command(configDir string, args ...string) *exec.Cmd {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"INFINITY_CONFIG_DIR="+configDir,
		"INFINITY_STORAGE_ACCESS_KEY=",
		"INFINITY_STORAGE_SECRET_KEY=",
	)
	return cmd
}

func runCLI(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	out, err := command(configDir, args...).CombinedOutput()
	return string(out), err
}

const watchAddr = "0x1234567890AbcdEF1234567890aBcdef12345678"

// ---------------------------------------------------------------------------
// Root
// ---------------------------------------------------------------------------

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "infinity")
	assert.Contains(t, out, "1.0.0")
}

func TestHelpCommand(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--help")
	require.NoError(t, err)
	lower := strings.ToLower(out)
	for _, c := range []string{"serve", "wallet", "network", "invest", "dashboard", "contract", "config"} {
		assert.Contains(t, lower, c)
	}
	assert.Contains(t, out, "--api")
}

func TestUnknownCommandShowsError(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "unknowncommand")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(out), "unknown command")
}

// ---------------------------------------------------------------------------
// Network
// ---------------------------------------------------------------------------

func TestNetworkList(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "network", "list")
	require.NoError(t, err)
	for _, c := range []string{"sepolia", "holesky", "polygon"} {
		assert.Contains(t, strings.ToLower(out), c, "network list should contain %s", c)
	}
	assert.Contains(t, out, "★")
}

func TestNetworkUsePersists(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "network", "use", "holesky")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(out), "holesky")

	cfgOut, err := runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, cfgOut, `"preferred_chain": "holesky"`)
}

func TestNetworkUseUnknown(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "network", "use", "unknownchain99")
	assert.Error(t, err)
}

func TestNetworkSwitchWithoutWallet(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "network", "switch")
	assert.Error(t, err)
	assert.Contains(t, out, "no wallet connected")
}

// ---------------------------------------------------------------------------
// Wallets
// ---------------------------------------------------------------------------

func TestWalletAddAndList(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "wallet", "add", "testwal", watchAddr)
	require.NoError(t, err)

	out, err := runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "testwal")
	assert.Contains(t, out, "0x1234")
}

func TestWalletRemove(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "wallet", "add", "w1", watchAddr)
	require.NoError(t, err)

	cmd := command(dir, "wallet", "remove", "w1")
	cmd.Stdin = strings.NewReader("y\n")
	_ = cmd.Run()

	out, err := runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "w1")
}

func TestWalletProvidersListsBrands(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "wallet", "providers")
	require.NoError(t, err)
	for _, b := range []string{"MetaMask", "Trust Wallet", "Coinbase Wallet", "WalletConnect"} {
		assert.Contains(t, out, b)
	}
}

func TestWalletAttachRemoteAndDetach(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "wallet", "attach", "trustwallet", "--url", "ws://127.0.0.1:1")
	require.NoError(t, err)

	cfgOut, err := runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, cfgOut, "trustwallet")
	assert.Contains(t, cfgOut, "ws://127.0.0.1:1")

	_, err = runCLI(t, dir, "wallet", "detach", "trustwallet")
	require.NoError(t, err)
	cfgOut, _ = runCLI(t, dir, "config", "show")
	assert.NotContains(t, cfgOut, "ws://127.0.0.1:1")
}

func TestWalletAttachRejectsHTTP(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "wallet", "attach", "metamask", "--url", "http://wallet")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfigShow(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "preferred_chain")
	assert.Contains(t, out, "api_url")
	assert.Contains(t, out, "rpc_strategy")
	assert.Contains(t, out, "demo mode")
	assert.NotContains(t, out, "secret")
}

func TestConfigSet(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set", "price_currency", "EUR")
	require.NoError(t, err)

	out, _ := runCLI(t, dir, "config", "show")
	assert.Contains(t, out, `"price_currency": "EUR"`)
}

func TestConfigSetRejectsUnknown(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set", "network_mode", "testnet")
	assert.Error(t, err)
	_, err = runCLI(t, dir, "config", "set", "preferred_chain", "atlantis")
	assert.Error(t, err)
}

func TestConfigSetRPC(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set-rpc", "sepolia", "https://custom.rpc.url")
	require.NoError(t, err)

	out, _ := runCLI(t, dir, "config", "show")
	assert.Contains(t, out, "custom.rpc.url")
}

func TestAPIFlagOverridesConfig(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--api", "http://api.example:9000", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "http://api.example:9000")
}

// ---------------------------------------------------------------------------
// Commands that need more setup fail with guidance
// ---------------------------------------------------------------------------

func TestContractInfoWithoutAddress(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "contract", "info")
	assert.Error(t, err)
	assert.Contains(t, out, "no contract configured")
}

func TestVerifyRequiresSig(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "verify", "hello")
	assert.Error(t, err)
	assert.Contains(t, out, "--sig")
}

func TestInvestHelpShowsFlags(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "invest", "--help")
	require.NoError(t, err)
	for _, f := range []string{"--template", "--amount", "--term", "--apy", "--yes"} {
		assert.Contains(t, out, f)
	}
}

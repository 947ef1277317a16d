package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultAPIURL         = "http://localhost:8080"
	defaultListenAddr     = ":8080"
	defaultPreferredChain = "sepolia"
	defaultGatewayURL     = "https://ipfs.io/ipfs/"
	defaultCurrency       = "USD"
	defaultLogLevel       = "info"
	defaultRPCStrategy    = "fastest"
	defaultStorageRegion  = "us-east-1"

	configFile      = "config.json"
	walletsFile     = "wallets.json"
	sessionFile     = "session.json"
	permissionsFile = "permissions.json"
	databaseFile    = "infinity.db"

	// EnvConfigDir overrides the default config directory.
	EnvConfigDir = "INFINITY_CONFIG_DIR"
)

var defaultSupportedChains = []string{"sepolia", "holesky", "ethereum", "polygon", "polygon-amoy", "base-sepolia"}

// Load reads config from dir (or creates defaults). dir defaults to
// $INFINITY_CONFIG_DIR, then ~/.infinity. Environment overrides from a .env
// file in the working directory are applied last.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".infinity")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if len(cfg.SupportedChains) == 0 {
		cfg.SupportedChains = slices.Clone(defaultSupportedChains)
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

// applyEnv overlays deployment settings and secrets from the environment.
func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("INFINITY_LISTEN", c.ListenAddr)
	c.DatabasePath = getEnv("INFINITY_DB", c.DatabasePath)
	c.LogLevel = getEnv("INFINITY_LOG_LEVEL", c.LogLevel)
	c.LogPretty = getEnvAsBool("INFINITY_LOG_PRETTY", c.LogPretty)
	c.ContractAddress = getEnv("INFINITY_CONTRACT", c.ContractAddress)
	c.APIURL = getEnv("INFINITY_API_URL", c.APIURL)

	c.Storage = StorageConfig{
		Endpoint:  getEnv("INFINITY_STORAGE_ENDPOINT", ""),
		Region:    getEnv("INFINITY_STORAGE_REGION", defaultStorageRegion),
		Bucket:    getEnv("INFINITY_STORAGE_BUCKET", ""),
		AccessKey: getEnv("INFINITY_STORAGE_ACCESS_KEY", ""),
		SecretKey: getEnv("INFINITY_STORAGE_SECRET_KEY", ""),
	}
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Set updates a scalar config field by its JSON key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api_url":
		c.APIURL = value
	case "listen_addr":
		c.ListenAddr = value
	case "database_path":
		c.DatabasePath = value
	case "preferred_chain":
		c.PreferredChain = value
	case "contract_address":
		c.ContractAddress = value
	case "gateway_url":
		c.GatewayURL = value
	case "dapp_url":
		c.DAppURL = value
	case "default_wallet":
		c.DefaultWallet = value
	case "price_currency":
		c.PriceCurrency = value
	case "log_level":
		c.LogLevel = value
	case "rpc_strategy":
		if value != "fastest" && value != "failover" {
			return fmt.Errorf("rpc_strategy must be fastest or failover")
		}
		c.RPCStrategy = value
	case "log_pretty":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("log_pretty must be true or false: %w", err)
		}
		c.LogPretty = b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// IsSupported reports whether chain is on the allow-list.
func (c *Config) IsSupported(chain string) bool {
	return slices.Contains(c.SupportedChains, chain)
}

// AddProvider registers a provider entry, replacing one with the same brand.
func (c *Config) AddProvider(p ProviderEntry) {
	for i, existing := range c.Providers {
		if existing.Brand == p.Brand {
			c.Providers[i] = p
			return
		}
	}
	c.Providers = append(c.Providers, p)
}

// RemoveProvider drops the provider entry for brand.
func (c *Config) RemoveProvider(brand string) error {
	idx := slices.IndexFunc(c.Providers, func(p ProviderEntry) bool { return p.Brand == brand })
	if idx == -1 {
		return fmt.Errorf("no provider configured for %s", brand)
	}
	c.Providers = slices.Delete(c.Providers, idx, idx+1)
	return nil
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// SessionPath is where the wallet connector persists (walletId, account).
func (c *Config) SessionPath() string {
	return filepath.Join(c.configDir, sessionFile)
}

// PermissionsPath is where keystore providers remember authorized accounts.
func (c *Config) PermissionsPath() string {
	return filepath.Join(c.configDir, permissionsFile)
}

// WalletsPath is the signing-wallet metadata file.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		APIURL:          defaultAPIURL,
		ListenAddr:      defaultListenAddr,
		DatabasePath:    filepath.Join(dir, databaseFile),
		PreferredChain:  defaultPreferredChain,
		SupportedChains: slices.Clone(defaultSupportedChains),
		GatewayURL:      defaultGatewayURL,
		PriceCurrency:   defaultCurrency,
		LogLevel:        defaultLogLevel,
		CustomRPCs:      make(map[string][]string),
		RPCStrategy:     defaultRPCStrategy,
		configDir:       dir,
	}
}

// LoadJSON reads a JSON side file; a missing file yields the zero value.
func LoadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SaveJSON writes v to path with owner-only permissions.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

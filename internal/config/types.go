package config

// Config holds all infinity configuration.
type Config struct {
	APIURL          string              `json:"api_url"`
	ListenAddr      string              `json:"listen_addr"`
	DatabasePath    string              `json:"database_path"`
	PreferredChain  string              `json:"preferred_chain"`
	SupportedChains []string            `json:"supported_chains"`
	ContractAddress string              `json:"contract_address"`
	GatewayURL      string              `json:"gateway_url"`
	DAppURL         string              `json:"dapp_url"`
	DefaultWallet   string              `json:"default_wallet"`
	PriceCurrency   string              `json:"price_currency"`
	LogLevel        string              `json:"log_level"`
	LogPretty       bool                `json:"log_pretty"`
	Providers       []ProviderEntry     `json:"providers"`
	CustomRPCs      map[string][]string `json:"custom_rpcs"`
	RPCStrategy     string              `json:"rpc_strategy"` // fastest | failover

	// Storage credentials only ever come from the environment.
	Storage StorageConfig `json:"-"`

	// internal: config dir path used for Save()
	configDir string
}

// Provider kinds.
const (
	ProviderKindKeystore = "keystore"
	ProviderKindRemote   = "remote"
)

// ProviderEntry declares one wallet provider visible to the client, the way a
// browser extension would inject itself. Brand is one of metamask,
// trustwallet, coinbase, walletconnect.
type ProviderEntry struct {
	Brand  string `json:"brand"`
	Kind   string `json:"kind"`             // "keystore" | "remote"
	Wallet string `json:"wallet,omitempty"` // keystore: signing wallet name
	URL    string `json:"url,omitempty"`    // remote: ws:// endpoint of the wallet daemon
	Chain  string `json:"chain,omitempty"`  // keystore: chain selected at startup
}

// StorageConfig points at an S3-compatible pinning gateway. When it is not
// fully populated the server answers uploads in demo mode.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether real storage credentials are present.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

package types

import "time"

// Well-known chain IDs the default configuration covers.
const (
	ChainEthereum int64 = 1
	ChainPolygon  int64 = 137
	ChainSepolia  int64 = 11155111
)

// ChainConfig is the static per-chain configuration. Loaded once at
// construction and read-only for the process lifetime.
type ChainConfig struct {
	ChainID     int64  `json:"chainId"`
	Name        string `json:"name"`
	RPCURL      string `json:"rpcUrl"`
	USDCAddress string `json:"usdcAddress"`
}

// AgentConfig is the top-level configuration for an enspay Agent.
type AgentConfig struct {
	Chains         []ChainConfig `json:"chains,omitempty"`
	DefaultChainID int64         `json:"defaultChainId,omitempty"`
	OracleAPIKey   string        `json:"oracleApiKey,omitempty"`
	OracleBaseURL  string        `json:"oracleBaseUrl,omitempty"`
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty"`
	LogLevel       string        `json:"logLevel,omitempty"`
	EnableMetrics  bool          `json:"enableMetrics,omitempty"`
}

// DefaultChains returns the built-in chain table. RPC endpoints are meant
// to be overridden from the environment at the process boundary; the USDC
// contract addresses are the canonical deployments.
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{
			ChainID:     ChainEthereum,
			Name:        "Ethereum",
			RPCURL:      "https://eth.llamarpc.com",
			USDCAddress: "0xA0b86a33E6441d7aE36C7c4AF2ABfC92d11f8b99",
		},
		{
			ChainID:     ChainPolygon,
			Name:        "Polygon",
			RPCURL:      "https://polygon-rpc.com",
			USDCAddress: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		},
		{
			ChainID:     ChainSepolia,
			Name:        "Sepolia",
			RPCURL:      "https://rpc.sepolia.org",
			USDCAddress: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		},
	}
}

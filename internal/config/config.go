package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Fallback  FallbackConfig  `yaml:"fallback"`
	Chain     ChainConfig     `yaml:"chain"`
	Allowlist AllowlistConfig `yaml:"allowlist"`
	Mint      MintConfig      `yaml:"mint"`
	Admin     AdminConfig     `yaml:"admin"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	CORS      CORSConfig      `yaml:"cors"`
	NATS      NATSConfig      `yaml:"nats"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig primary (postgres) order store configuration
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// FallbackConfig local fallback store configuration
type FallbackConfig struct {
	Path string `yaml:"path"` // sqlite file holding the fallback order slot
}

// ChainConfig blockchain network configuration
type ChainConfig struct {
	// ActiveNetwork selects which entry in Networks the mint flow uses
	ActiveNetwork string                   `yaml:"activeNetwork"`
	Networks      map[string]NetworkConfig `yaml:"networks"`
}

// NetworkConfig per-network configuration
type NetworkConfig struct {
	ChainID      int64    `yaml:"chainId"`
	Name         string   `yaml:"name"`
	RPCEndpoints []string `yaml:"rpcEndpoints"`
	// PrivateKey hex-encoded signing key, no 0x prefix. Normally injected via
	// PRIVATE_KEY / <NETWORK>_PRIVATE_KEY env vars rather than the yaml file.
	PrivateKey string `yaml:"privateKey"`
	Enabled    bool   `yaml:"enabled"`
}

// AllowlistConfig external allowlist (proof) service
type AllowlistConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Timeout int    `yaml:"timeout"` // seconds
}

// MintConfig contract address, list roots and safety ceilings
type MintConfig struct {
	Contract    string `yaml:"contract"`    // NFT contract address
	PrivateRoot string `yaml:"privateRoot"` // allowlist root for the private mint

	// Safety ceilings. Client-enforced bounds, independent of anything the
	// contract or node reports.
	PriceCeilingWei         string `yaml:"priceCeilingWei"`         // max total value per tx, default 1 ETH
	GasCeiling              uint64 `yaml:"gasCeiling"`              // max gas limit per tx, default 500000
	MaxFeePerGasWei         string `yaml:"maxFeePerGasWei"`         // default 50 gwei
	MaxPriorityFeePerGasWei string `yaml:"maxPriorityFeePerGasWei"` // default 2 gwei
}

// AdminConfig Admin API access control configuration
type AdminConfig struct {
	// AllowedWallets may list orders via GET /api/orders (case-insensitive)
	AllowedWallets []string `yaml:"allowedWallets"`
	// AllowedIPs may reach the operator endpoints (login, export)
	AllowedIPs []string `yaml:"allowedIPs"`
}

// RateLimitConfig sliding window limiter for the orders API
type RateLimitConfig struct {
	WindowSeconds int `yaml:"windowSeconds"`
	MaxRequests   int `yaml:"maxRequests"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// NATSConfig optional lifecycle event publishing
type NATSConfig struct {
	URL string `yaml:"url"` // empty disables publishing
}

const (
	defaultPriceCeilingWei = "1000000000000000000" // 1 ETH
	defaultGasCeiling      = uint64(500000)
	defaultMaxFeeWei       = "50000000000" // 50 gwei
	defaultPriorityFeeWei  = "2000000000"  // 2 gwei
)

var AppConfig *Config

// LoadConfig loads the yaml configuration file and applies env overrides
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&config)
	applyDefaults(&config)

	AppConfig = &config
	return nil
}

func applyDefaults(config *Config) {
	if config.Mint.PriceCeilingWei == "" {
		config.Mint.PriceCeilingWei = defaultPriceCeilingWei
	}
	if config.Mint.GasCeiling == 0 {
		config.Mint.GasCeiling = defaultGasCeiling
	}
	if config.Mint.MaxFeePerGasWei == "" {
		config.Mint.MaxFeePerGasWei = defaultMaxFeeWei
	}
	if config.Mint.MaxPriorityFeePerGasWei == "" {
		config.Mint.MaxPriorityFeePerGasWei = defaultPriorityFeeWei
	}
	if config.RateLimit.WindowSeconds == 0 {
		config.RateLimit.WindowSeconds = 60
	}
	if config.RateLimit.MaxRequests == 0 {
		config.RateLimit.MaxRequests = 10
	}
	if config.Fallback.Path == "" {
		config.Fallback.Path = "fallback_orders.db"
	}
	if config.Allowlist.Timeout == 0 {
		config.Allowlist.Timeout = 15
	}
}

func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if path := os.Getenv("FALLBACK_DB_PATH"); path != "" {
		config.Fallback.Path = path
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if baseURL := os.Getenv("ALLOWLIST_BASE_URL"); baseURL != "" {
		config.Allowlist.BaseURL = baseURL
	}

	if contract := os.Getenv("MINT_CONTRACT"); contract != "" {
		config.Mint.Contract = contract
	}
	if root := os.Getenv("MINT_PRIVATE_ROOT"); root != "" {
		config.Mint.PrivateRoot = root
	}
	if ceiling := os.Getenv("MINT_PRICE_CEILING_WEI"); ceiling != "" {
		config.Mint.PriceCeilingWei = ceiling
	}
	if gas := os.Getenv("MINT_GAS_CEILING"); gas != "" {
		if g, err := strconv.ParseUint(gas, 10, 64); err == nil {
			config.Mint.GasCeiling = g
		}
	}

	if wallets := os.Getenv("ADMIN_WALLETS"); wallets != "" {
		config.Admin.AllowedWallets = splitAndTrim(wallets)
	}
	if ips := os.Getenv("ADMIN_ALLOWED_IPS"); ips != "" {
		config.Admin.AllowedIPs = splitAndTrim(ips)
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.CORS.AllowedOrigins = splitAndTrim(origins)
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}

	for networkName, networkConfig := range config.Chain.Networks {
		envKey := fmt.Sprintf("%s_PRIVATE_KEY", strings.ToUpper(networkName))
		if privateKey := os.Getenv(envKey); privateKey != "" {
			networkConfig.PrivateKey = privateKey
		} else if privateKey := os.Getenv("PRIVATE_KEY"); privateKey != "" {
			networkConfig.PrivateKey = privateKey
		}

		envRPC := fmt.Sprintf("%s_RPC_ENDPOINTS", strings.ToUpper(networkName))
		if rpcEndpoints := os.Getenv(envRPC); rpcEndpoints != "" {
			networkConfig.RPCEndpoints = splitAndTrim(rpcEndpoints)
		}

		config.Chain.Networks[networkName] = networkConfig
	}

	if active := os.Getenv("ACTIVE_NETWORK"); active != "" {
		config.Chain.ActiveNetwork = active
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// GetNetworkConfig returns the enabled network configuration by name
func GetNetworkConfig(networkName string) (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	network, exists := AppConfig.Chain.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not found in config", networkName)
	}
	if !network.Enabled {
		return nil, fmt.Errorf("network %s is disabled", networkName)
	}

	return &network, nil
}

// GetActiveNetwork returns the network the mint flow submits to
func GetActiveNetwork() (*NetworkConfig, error) {
	if AppConfig == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	if AppConfig.Chain.ActiveNetwork == "" {
		return nil, fmt.Errorf("chain.activeNetwork not configured")
	}
	return GetNetworkConfig(AppConfig.Chain.ActiveNetwork)
}

// PriceCeiling returns the per-transaction total value ceiling in wei
func (m *MintConfig) PriceCeiling() *big.Int {
	return mustWei(m.PriceCeilingWei, defaultPriceCeilingWei)
}

// MaxFeePerGas returns the fee-per-gas cap in wei
func (m *MintConfig) MaxFeePerGas() *big.Int {
	return mustWei(m.MaxFeePerGasWei, defaultMaxFeeWei)
}

// MaxPriorityFeePerGas returns the priority-fee cap in wei
func (m *MintConfig) MaxPriorityFeePerGas() *big.Int {
	return mustWei(m.MaxPriorityFeePerGasWei, defaultPriorityFeeWei)
}

func mustWei(value, fallback string) *big.Int {
	if v, ok := new(big.Int).SetString(value, 10); ok && v.Sign() >= 0 {
		return v
	}
	v, _ := new(big.Int).SetString(fallback, 10)
	return v
}

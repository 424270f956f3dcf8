package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultGatewayURL     = "https://gateway.pinata.cloud/ipfs/"
	DefaultPinataEndpoint = "https://api.pinata.cloud"
	DefaultGenerationURL  = "https://api.replicate.com/v1/predictions"
	DefaultModelVersion   = "7762fd07cf82c948538e41f63f77d685e02b063e37e496e96eefd46c929f9bdc"
	DefaultRPCURL         = "http://127.0.0.1:8545"
	DefaultChainID        = 31337
	DefaultGasLimit       = 300000
	DefaultPollInterval   = 2 * time.Second
	DefaultMaxAttempts    = 20
	DefaultListen         = ":3000"
)

// Config represents the main configuration for nft.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	Chain     ChainConfig     `toml:"chain"`
	Signer    SignerConfig    `toml:"signer"`
	Publisher PublisherConfig `toml:"publisher"`
	Generator GeneratorConfig `toml:"generator"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Journal   JournalConfig   `toml:"journal"`
	Server    ServerConfig    `toml:"server"`
}

// ChainConfig describes the RPC node and the deployed NFT contract.
type ChainConfig struct {
	RPCURL              string `toml:"rpc_url"`
	ChainID             int64  `toml:"chain_id"`
	ContractAddressFile string `toml:"contract_address_file"` // JSON document {"address": "0x..."}
	GasLimit            uint64 `toml:"gas_limit"`
}

// SignerConfig selects where the transaction key comes from.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type SignerConfig struct {
	Type string `toml:"type"` // "key", "keystore" or "accounts_file"

	// Only used when Type == "key". Usually supplied through PRIVATE_KEY.
	PrivateKey string `toml:"private_key,omitempty"`

	// Only used when Type == "keystore"
	KeystorePath string `toml:"keystore_path,omitempty"`

	// Only used when Type == "accounts_file"
	AccountsFile string `toml:"accounts_file,omitempty"`
	AccountIndex int    `toml:"account_index,omitempty"`
}

// PublisherConfig selects the content-addressed pinning backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type PublisherConfig struct {
	Type       string `toml:"type"` // "pinata", "s3", "filesystem" or "memory"
	GatewayURL string `toml:"gateway_url"`

	// Only used when Type == "filesystem"
	LocalDir string `toml:"local_dir,omitempty"`

	// Pinata-specific fields (only used when Type == "pinata")
	PinataAPIKey    string `toml:"pinata_api_key,omitempty"`
	PinataAPISecret string `toml:"pinata_api_secret,omitempty"`
	PinataJWT       string `toml:"pinata_jwt,omitempty"`
	PinataEndpoint  string `toml:"pinata_endpoint,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// GeneratorConfig configures the image generation provider.
type GeneratorConfig struct {
	APIToken     string   `toml:"api_token,omitempty"`
	ModelVersion string   `toml:"model_version"`
	Endpoint     string   `toml:"endpoint"`
	PollInterval Duration `toml:"poll_interval"`
	MaxAttempts  int      `toml:"max_attempts"`
}

// LedgerConfig represents configuration for the metadata ledger.
type LedgerConfig struct {
	Type string `toml:"type"`           // "file" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=file
}

// JournalConfig represents configuration for the mint journal database.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ServerConfig holds the HTTP front door settings.
type ServerConfig struct {
	Listen    string `toml:"listen"`
	UploadDir string `toml:"upload_dir"`
}

// Duration is a time.Duration that encodes as a TOML string such as "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Chain: ChainConfig{
			RPCURL:              DefaultRPCURL,
			ChainID:             DefaultChainID,
			ContractAddressFile: filepath.Join(baseDir, "contract-address.json"),
			GasLimit:            DefaultGasLimit,
		},
		Signer: SignerConfig{
			Type:         "keystore",
			KeystorePath: filepath.Join(baseDir, "keys", "signer.age"),
		},
		Publisher: PublisherConfig{
			Type:           "pinata",
			GatewayURL:     DefaultGatewayURL,
			PinataEndpoint: DefaultPinataEndpoint,
		},
		Generator: GeneratorConfig{
			ModelVersion: DefaultModelVersion,
			Endpoint:     DefaultGenerationURL,
			PollInterval: Duration{DefaultPollInterval},
			MaxAttempts:  DefaultMaxAttempts,
		},
		Ledger: LedgerConfig{
			Type: "file",
			Path: filepath.Join(baseDir, "data", "all-metadata.json"),
		},
		Journal: JournalConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Server: ServerConfig{
			Listen:    DefaultListen,
			UploadDir: filepath.Join(baseDir, "uploads"),
		},
	}
}

// ApplyEnv overrides credentials and endpoints from the environment.
// It is called once at startup; nothing else in the program reads these variables.
func (c *Config) ApplyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Publisher.PinataAPIKey, "PINATA_API_KEY")
	override(&c.Publisher.PinataAPISecret, "PINATA_API_SECRET")
	override(&c.Publisher.PinataJWT, "PINATA_JWT")
	override(&c.Generator.APIToken, "REPLICATE_API_TOKEN")
	override(&c.Chain.RPCURL, "RPC_URL")

	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		c.Signer.Type = "key"
		c.Signer.PrivateKey = v
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The config may hold API secrets.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

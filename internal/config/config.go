package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for datalocker.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Store      StoreConfig      `toml:"store"`
	Cipher     CipherConfig     `toml:"cipher"`
	Escrow     EscrowConfig     `toml:"escrow"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Watch      WatchConfig      `toml:"watch"`
}

// StoreConfig represents configuration for the key store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CipherConfig selects the AEAD used for new encryptions. Files sealed
// under a previously configured algorithm stay decryptable; the algorithm
// is recorded per key.
type CipherConfig struct {
	Algorithm string `toml:"algorithm"` // "chacha20poly1305" (default) or "aes-gcm"
}

// EscrowConfig controls sealed snapshots of the key store. When enabled,
// every run pushes a passphrase-recoverable copy of the store to the
// configured vault.
type EscrowConfig struct {
	Enabled       bool        `toml:"enabled"`
	Type          string      `toml:"type,omitempty"` // "age" (default) or "test"
	RecipientPath string      `toml:"recipient_path"`
	IdentityPath  string      `toml:"identity_path"`
	Vault         VaultConfig `toml:"vault"`
}

// VaultConfig represents configuration for an escrow vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for MinIO and other self-hosted S3

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// WatchConfig holds settings for watch mode.
type WatchConfig struct {
	// Settle is the quiet period a changed file must hold before it is
	// encrypted, so editors that write in bursts are not caught mid-save.
	Settle time.Duration `toml:"settle"`
}

// DefaultSettle is the watch quiet period used when the config leaves it unset.
const DefaultSettle = 2 * time.Second

// NewConfig creates a new Config with the provided values and working defaults:
// a sqlite store under baseDir and escrow key paths under baseDir/keys
// (escrow itself starts disabled).
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Cipher: CipherConfig{
			Algorithm: "chacha20poly1305",
		},
		Escrow: EscrowConfig{
			Enabled:       false,
			RecipientPath: filepath.Join(baseDir, "keys", "escrow.pub"),
			IdentityPath:  filepath.Join(baseDir, "keys", "escrow.key"),
		},
		Watch: WatchConfig{
			Settle: DefaultSettle,
		},
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

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
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
// Refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

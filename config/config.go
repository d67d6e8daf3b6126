package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"tokenmart/crypto"
	"tokenmart/native/market"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	Environment string `toml:"Environment"`
	LogFile     string `toml:"LogFile"`

	// Marketplace settings read as a snapshot at the start of each call.
	FeeBps       uint32 `toml:"FeeBps"`
	FeeRecipient string `toml:"FeeRecipient"`
	PayToken     string `toml:"PayToken"`

	// Paused lists module names whose mutating entry points are rejected.
	Paused []string `toml:"Paused,omitempty"`

	// Telemetry export (OTLP). Disabled when the endpoint is empty.
	OtelEndpoint string `toml:"OtelEndpoint,omitempty"`
	OtelInsecure bool   `toml:"OtelInsecure,omitempty"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8666"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./tokenmart-data"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		FeeBps:       250,
		FeeRecipient: crypto.EncodeAddress(crypto.DeriveModuleAddress("treasury")),
		PayToken:     crypto.EncodeAddress(crypto.DeriveModuleAddress("paytoken")),
	}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the marketplace settings for decodability and range.
func (c *Config) Validate() error {
	if c.FeeBps > 10_000 {
		return fmt.Errorf("config: FeeBps out of range: %d", c.FeeBps)
	}
	if _, err := crypto.DecodeAddress(c.FeeRecipient); err != nil {
		return fmt.Errorf("config: invalid FeeRecipient: %w", err)
	}
	if _, err := crypto.DecodeAddress(c.PayToken); err != nil {
		return fmt.Errorf("config: invalid PayToken: %w", err)
	}
	return nil
}

// Market converts the file settings into the engine's config snapshot.
func (c *Config) Market() (market.Config, error) {
	if err := c.Validate(); err != nil {
		return market.Config{}, err
	}
	feeRecipient, err := crypto.DecodeAddress(c.FeeRecipient)
	if err != nil {
		return market.Config{}, err
	}
	payToken, err := crypto.DecodeAddress(c.PayToken)
	if err != nil {
		return market.Config{}, err
	}
	return market.Config{
		FeeBps:       c.FeeBps,
		FeeRecipient: feeRecipient.Array(),
		PayToken:     payToken.Array(),
	}, nil
}

// IsPaused implements the pause view consumed by the engine guard.
func (c *Config) IsPaused(module string) bool {
	for _, paused := range c.Paused {
		if strings.EqualFold(strings.TrimSpace(paused), module) {
			return true
		}
	}
	return false
}

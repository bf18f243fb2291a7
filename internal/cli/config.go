// Package cli holds the configuration and logging shared by the cosi and
// binctl commands.
package cli

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/canopy-network/canopy/lib/cosi"
)

// EnvPrefix prefixes environment overrides, e.g. COSI_THRESHOLD
const EnvPrefix = "COSI"

// Config is the configuration shared by the commands
type Config struct {
	// Signers are hex public keys in canonical signer order
	Signers []string `mapstructure:"signers"`
	// Proofs are optional hex possession proofs, one per signer
	Proofs  []string `mapstructure:"proofs"`

	Threshold        int    `mapstructure:"threshold"`
	EnumerationLimit uint64 `mapstructure:"enumeration_limit"`
	Verbose          bool   `mapstructure:"verbose"`
}

// LoadConfig reads cfgFile, or config.yaml from $HOME/.cosi or the working
// directory when cfgFile is empty, and applies COSI_* environment
// overrides. A missing default config file is not an error.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath("$HOME/.cosi")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("signers", []string{})
	v.SetDefault("proofs", []string{})
	v.SetDefault("threshold", 0)
	v.SetDefault("enumeration_limit", cosi.DefaultEnumerationLimit)
	v.SetDefault("verbose", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SignerKeys decodes the configured signer keys
func (c *Config) SignerKeys() ([]cosi.PublicKey, error) {
	if len(c.Signers) == 0 {
		return nil, fmt.Errorf("no signers configured")
	}
	return ParsePublicKeys(c.Signers)
}

// SignerSet builds the configured signer set with the configured
// threshold. When proofs are configured every key must prove possession.
func (c *Config) SignerSet() (*cosi.SignerSet, error) {
	return c.SignerSetWithThreshold(c.Threshold)
}

// SignerSetWithThreshold is SignerSet with threshold overriding the
// configured one
func (c *Config) SignerSetWithThreshold(threshold int) (*cosi.SignerSet, error) {
	keys, err := c.SignerKeys()
	if err != nil {
		return nil, err
	}
	if len(c.Proofs) == 0 {
		return cosi.NewSignerSet(keys, threshold)
	}

	proofs := make([]*cosi.PossessionProof, len(c.Proofs))
	for i, s := range c.Proofs {
		data, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("proof %d: %w", i, cosi.ErrInvalidHex.WithCause(err))
		}
		proof, err := cosi.PossessionProofFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("proof %d: %w", i, err)
		}
		proofs[i] = proof
	}
	return cosi.NewSignerSetWithProofs(keys, proofs, threshold)
}

// ParsePublicKeys decodes hex public keys, naming the offending position on
// failure
func ParsePublicKeys(hexKeys []string) ([]cosi.PublicKey, error) {
	keys := make([]cosi.PublicKey, len(hexKeys))
	for i, s := range hexKeys {
		key, err := cosi.PublicKeyFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("signer %d: %w", i, err)
		}
		keys[i] = key
	}
	return keys, nil
}

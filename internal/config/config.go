package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Audit    AuditConfig
	UI       UIConfig
	Policy   PolicyConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// AuditConfig holds transaction trail settings.
type AuditConfig struct {
	Path string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
}

// PolicyConfig holds the boundary behaviors that are deliberate choices
// rather than invariants: both ship enabled to preserve the classic prompts.
type PolicyConfig struct {
	// LenientAmounts treats unparseable amount input as 0.00 instead of
	// re-prompting.
	LenientAmounts bool `mapstructure:"lenient_amounts"`
	// PINFallback auto-generates a PIN after three invalid entries during
	// PIN creation.
	PINFallback bool `mapstructure:"pin_fallback"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// POCKETBANK_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "pocketbank", "pocketbank.db"))
	v.SetDefault("audit.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "pocketbank", "transactions.csv"))
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("policy.lenient_amounts", true)
	v.SetDefault("policy.pin_fallback", true)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("POCKETBANK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "pocketbank"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("POCKETBANK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

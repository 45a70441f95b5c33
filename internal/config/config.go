package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	LedgerModeMemory = "memory"
	LedgerModeEVM    = "evm"
)

type Config struct {
	Ledger struct {
		// Mode selects the gateway: "evm" for a real chain, "memory" for
		// the in-process dev ledger.
		Mode            string        `mapstructure:"mode"`
		Endpoint        string        `mapstructure:"endpoint"`
		ContractAddress string        `mapstructure:"contract_address"`
		ChainID         int64         `mapstructure:"chain_id"`
		RequestTimeout  time.Duration `mapstructure:"request_timeout"`
		// Keys maps addresses to hex private keys (evm mode only).
		Keys map[string]string `mapstructure:"keys"`
	} `mapstructure:"ledger"`

	Actor struct {
		// Address is the default signing identity for CLI actions.
		Address string `mapstructure:"address"`
	} `mapstructure:"actor"`

	Poll struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"poll"`

	API struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"api"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("ledger.mode", LedgerModeMemory)
	viper.SetDefault("ledger.request_timeout", 30*time.Second)
	viper.SetDefault("poll.interval", 15*time.Second)
	viper.SetDefault("api.addr", "127.0.0.1:8080")

	viper.AutomaticEnv()
	// Explicit bindings so the usual deployment knobs work without a config file.
	viper.BindEnv("ledger.endpoint", "TASKMARKET_LEDGER_ENDPOINT")
	viper.BindEnv("ledger.contract_address", "TASKMARKET_CONTRACT_ADDRESS")
	viper.BindEnv("actor.address", "TASKMARKET_ACTOR_ADDRESS")

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; env vars and defaults carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

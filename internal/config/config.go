package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the SCore simulator configuration (spec §6
// "new_core(scheduler, config)").
type Config struct {
	// Pipeline shape
	NumLanes             int  `yaml:"numLanes"`
	NumRegisters         int  `yaml:"numRegisters"`
	NumReadPorts         int  `yaml:"numReadPorts"`
	NumWritePorts        int  `yaml:"numWritePorts"`
	UseRegfileForwarding bool `yaml:"useRegfileForwarding"`

	// Per-component tick periods, in cycles
	ALUPeriod     uint64 `yaml:"aluPeriod"`
	BRUPeriod     uint64 `yaml:"bruPeriod"`
	MLUPeriod     uint64 `yaml:"mluPeriod"`
	DVUPeriod     uint64 `yaml:"dvuPeriod"`
	LSUPeriod     uint64 `yaml:"lsuPeriod"`
	RegfilePeriod uint64 `yaml:"regfilePeriod"`

	// Connections
	ConnectionLatency uint64 `yaml:"connectionLatency"`
	BufferSize        int    `yaml:"bufferSize"`
	StartTime         uint64 `yaml:"startTime"`
	FetchBufferDepth  int    `yaml:"fetchBufferDepth"`

	// LSU banked memory
	LSUNumBanks     int    `yaml:"lsuNumBanks"`
	LSUBankCapacity int    `yaml:"lsuBankCapacity"`
	LSUBankLatency  uint64 `yaml:"lsuBankLatency"`

	LogLevel string `yaml:"logLevel"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// validateConfig checks if the configuration is valid.
func validateConfig(cfg *Config) error {
	if cfg.NumLanes <= 0 {
		return fmt.Errorf("number of dispatch lanes must be positive")
	}

	if cfg.NumRegisters <= 0 {
		return fmt.Errorf("number of registers must be positive")
	}

	if cfg.NumReadPorts <= 0 {
		return fmt.Errorf("number of register read ports must be positive")
	}

	if cfg.NumWritePorts <= 0 {
		return fmt.Errorf("number of register write ports must be positive")
	}

	if cfg.ALUPeriod == 0 || cfg.BRUPeriod == 0 || cfg.MLUPeriod == 0 ||
		cfg.DVUPeriod == 0 || cfg.LSUPeriod == 0 || cfg.RegfilePeriod == 0 {
		return fmt.Errorf("component periods must be positive")
	}

	if cfg.LSUNumBanks <= 0 {
		return fmt.Errorf("lsu num_banks must be positive")
	}

	if cfg.LSUBankCapacity <= 0 {
		return fmt.Errorf("lsu bank_capacity must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("unsupported log level: %s", cfg.LogLevel)
	}

	return nil
}

// DefaultConfig returns the default SCore configuration (spec §6).
func DefaultConfig() *Config {
	return &Config{
		NumLanes:             2,
		NumRegisters:         32,
		NumReadPorts:         16,
		NumWritePorts:        8,
		UseRegfileForwarding: true,

		ALUPeriod:     1,
		BRUPeriod:     1,
		MLUPeriod:     3,
		DVUPeriod:     8,
		LSUPeriod:     1,
		RegfilePeriod: 1,

		ConnectionLatency: 0,
		BufferSize:        2,
		StartTime:         0,
		FetchBufferDepth:  8,

		LSUNumBanks:     8,
		LSUBankCapacity: 1024,
		LSUBankLatency:  2,

		LogLevel: "info",
	}
}

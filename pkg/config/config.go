// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/platform-engineering-labs/formae/pkg/model"
)

// Config holds APIC connection configuration
// Note: Only connection settings are stored in the target config.
// Credentials (Username, Password) are always read from environment
// variables to avoid storing secrets in the database.
type Config struct {
	// Stored in target config (non-sensitive)
	Host           string `json:"host"`           // APIC hostname or IP
	Port           int    `json:"port"`           // defaults to 443 (SSL) / 80
	UseSSL         *bool  `json:"useSSL"`         // defaults to true
	ValidateCerts  *bool  `json:"validateCerts"`  // defaults to true
	TimeoutSeconds int    `json:"timeoutSeconds"` // defaults to 30

	// Read from environment variables only (never stored)
	Username string `json:"-"` // From ACI_USERNAME
	Password string `json:"-"` // From ACI_PASSWORD
}

// FromTarget extracts APIC configuration from a Target
func FromTarget(target *model.Target) (*Config, error) {
	if target == nil {
		return nil, fmt.Errorf("target is nil")
	}
	return FromTargetConfig(target.Config)
}

// FromTargetConfig extracts APIC configuration from a TargetConfig JSON.
// Only connection settings are read from the target config; credentials
// are always read from environment variables.
func FromTargetConfig(targetConfig json.RawMessage) (*Config, error) {
	var cfg Config

	if len(targetConfig) > 0 {
		if err := json.Unmarshal(targetConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal target config: %w", err)
		}
	}

	// Host can fall back to an environment variable
	if cfg.Host == "" {
		cfg.Host = os.Getenv("ACI_HOST")
	}
	if cfg.TimeoutSeconds == 0 {
		if v := os.Getenv("ACI_TIMEOUT"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				cfg.TimeoutSeconds = secs
			}
		}
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 30
	}

	// Credentials are ALWAYS read from environment variables (never stored)
	cfg.Username = os.Getenv("ACI_USERNAME")
	cfg.Password = os.Getenv("ACI_PASSWORD")

	// Validate required fields
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required (set ACI_HOST or provide in target config)")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("ACI_USERNAME environment variable is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("ACI_PASSWORD environment variable is required")
	}

	return &cfg, nil
}

// SSL reports whether HTTPS should be used (the default)
func (c *Config) SSL() bool {
	return c.UseSSL == nil || *c.UseSSL
}

// CertValidation reports whether server certificates must verify (the default)
func (c *Config) CertValidation() bool {
	return c.ValidateCerts == nil || *c.ValidateCerts
}

// Timeout returns the request timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package client

import (
	"fmt"

	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/transport/apic"
)

// Client bundles the APIC transport client with the resolved target config.
// Provisioners receive one Client per plugin request; the session token is
// cached inside the transport layer for the lifetime of that request.
type Client struct {
	Config *config.Config
	APIC   *apic.Client
}

// NewClient creates a new APIC client from config
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	apicClient, err := apic.NewClient(&apic.APICConfig{
		Host:          cfg.Host,
		Port:          cfg.Port,
		UseSSL:        cfg.SSL(),
		ValidateCerts: cfg.CertValidation(),
		Timeout:       cfg.Timeout(),
		Username:      cfg.Username,
		Password:      cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create APIC client: %w", err)
	}

	return &Client{
		Config: cfg,
		APIC:   apicClient,
	}, nil
}

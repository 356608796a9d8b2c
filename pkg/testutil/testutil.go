// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"

	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/config"
)

var (
	// APIC connection settings - read from environment variables
	ACIHost     = os.Getenv("ACI_HOST")
	ACIUsername = os.Getenv("ACI_USERNAME")
	ACIPassword = os.Getenv("ACI_PASSWORD")

	// TestDomain is an existing VMM domain used by nested-resource tests.
	// Controller and credential profiles are created under it.
	TestDomain = getEnvOrDefault("ACI_TEST_DOMAIN", "formae_test_dom")

	// TestProvider is the vm_provider of TestDomain
	TestProvider = getEnvOrDefault("ACI_TEST_PROVIDER", "vmware")
)

// getEnvOrDefault returns the environment variable value or the default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsACIConfigured returns true if the required APIC environment variables are set
func IsACIConfigured() bool {
	return ACIHost != "" && ACIUsername != "" && ACIPassword != ""
}

// SkipIfACINotConfigured skips the test if APIC credentials are not set
func SkipIfACINotConfigured(t interface{ Skip(...any) }) {
	if !IsACIConfigured() {
		t.Skip("Skipping test: APIC credentials not configured. Set ACI_HOST, ACI_USERNAME and ACI_PASSWORD environment variables.")
	}
}

// TargetConfig returns a target config document pointing at the test APIC.
// Certificate validation is disabled because lab fabrics run self-signed.
func TargetConfig() json.RawMessage {
	cfg := map[string]interface{}{
		"host":          ACIHost,
		"validateCerts": false,
	}
	raw, _ := json.Marshal(cfg)
	return raw
}

// NewACIClient creates an APIC client from environment configuration
func NewACIClient() (*client.Client, error) {
	cfg, err := config.FromTargetConfig(TargetConfig())
	if err != nil {
		return nil, err
	}
	return client.NewClient(cfg)
}

// StatusChecker defines the interface for checking operation status
type StatusChecker interface {
	Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error)
}

// PollConfig configures the polling behavior
type PollConfig struct {
	MaxAttempts   int
	CheckInterval time.Duration
	ResourceType  string
	OperationName string
}

// DefaultPollConfig returns sensible defaults for polling. APIC config
// writes complete synchronously, so a handful of quick attempts is plenty.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxAttempts:   5,
		CheckInterval: time.Second,
		OperationName: "Operation",
	}
}

// PollUntilComplete polls the status until the operation completes or times out
func PollUntilComplete(
	t *testing.T,
	ctx context.Context,
	checker StatusChecker,
	nativeID string,
	targetConfig json.RawMessage,
	cfg PollConfig,
) (*resource.StatusResult, error) {
	t.Helper()

	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Second
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		statusReq := &resource.StatusRequest{
			NativeID:     nativeID,
			ResourceType: cfg.ResourceType,
			TargetConfig: targetConfig,
		}

		statusResult, err := checker.Status(ctx, statusReq)
		require.NoError(t, err, "%s status check should not return error", cfg.OperationName)
		require.NotNil(t, statusResult.ProgressResult, "%s progress result should not be nil", cfg.OperationName)

		switch statusResult.ProgressResult.OperationStatus {
		case resource.OperationStatusSuccess:
			return statusResult, nil
		case resource.OperationStatusFailure:
			return statusResult, fmt.Errorf("%s operation failed: %s (error code: %s)",
				cfg.OperationName,
				statusResult.ProgressResult.StatusMessage,
				statusResult.ProgressResult.ErrorCode)
		case resource.OperationStatusInProgress:
			time.Sleep(cfg.CheckInterval)
		}
	}

	return nil, fmt.Errorf("%s operation timed out after %d attempts", cfg.OperationName, cfg.MaxAttempts)
}

// Reader defines the interface for reading resources
type Reader interface {
	Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error)
}

// RequireGone asserts that a Read for the native ID reports NotFound
func RequireGone(
	t *testing.T,
	ctx context.Context,
	reader Reader,
	nativeID string,
	targetConfig json.RawMessage,
	resourceType string,
) {
	t.Helper()

	readResult, err := reader.Read(ctx, &resource.ReadRequest{
		NativeID:     nativeID,
		ResourceType: resourceType,
		TargetConfig: targetConfig,
	})
	require.NoError(t, err)
	require.Equal(t, resource.OperationErrorCodeNotFound, readResult.ErrorCode,
		"resource %s should no longer exist", nativeID)
}

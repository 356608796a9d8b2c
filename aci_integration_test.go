// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

//go:build integration

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"

	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/resources/vmm"
	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/testutil"
)

var (
	testDomainName     string
	testControllerName string
	testCredentialName string
	aciPlugin          *Plugin
)

func TestMain(m *testing.M) {
	if !testutil.IsACIConfigured() {
		fmt.Println("ERROR: Missing required environment variables:")
		fmt.Println("  ACI_HOST:", testutil.ACIHost)
		fmt.Println("  ACI_USERNAME:", testutil.ACIUsername)
		fmt.Println("  ACI_PASSWORD: [set]")
		os.Exit(1)
	}

	timestamp := time.Now().Unix()
	testDomainName = fmt.Sprintf("formae-test-dom-%d", timestamp)
	testControllerName = fmt.Sprintf("formae-test-ctrlr-%d", timestamp)
	testCredentialName = fmt.Sprintf("formae-test-creds-%d", timestamp)

	aciPlugin = &Plugin{}

	os.Exit(m.Run())
}

// TestVMMLifecycle_Integration provisions a domain, a credential and a
// controller profile under it, verifies reads, then tears everything down
// in reverse order.
func TestVMMLifecycle_Integration(t *testing.T) {
	ctx := context.Background()
	targetConfig := testutil.TargetConfig()

	domainProps, err := json.Marshal(map[string]string{
		"name":        testDomainName,
		"vm_provider": "vmware",
		"description": "formae integration test",
	})
	require.NoError(t, err)

	domainResult, err := aciPlugin.Create(ctx, &resource.CreateRequest{
		ResourceType: vmm.ResourceTypeDomain,
		Label:        testDomainName,
		Properties:   domainProps,
		TargetConfig: targetConfig,
	})
	require.NoError(t, err)
	require.Equal(t, resource.OperationStatusSuccess, domainResult.ProgressResult.OperationStatus,
		"domain create failed: %s", domainResult.ProgressResult.StatusMessage)
	domainDN := domainResult.ProgressResult.NativeID
	assert.Equal(t, "uni/vmmp-VMware/dom-"+testDomainName, domainDN)

	defer func() {
		del, err := aciPlugin.Delete(ctx, &resource.DeleteRequest{
			ResourceType: vmm.ResourceTypeDomain,
			NativeID:     domainDN,
			TargetConfig: targetConfig,
		})
		require.NoError(t, err)
		assert.Equal(t, resource.OperationStatusSuccess, del.ProgressResult.OperationStatus)
	}()

	credentialProps, err := json.Marshal(map[string]string{
		"name":                testCredentialName,
		"domain":              testDomainName,
		"vm_provider":         "vmware",
		"credential_username": "formae-svc",
		"credential_password": "formae-test-secret",
	})
	require.NoError(t, err)

	credentialResult, err := aciPlugin.Create(ctx, &resource.CreateRequest{
		ResourceType: vmm.ResourceTypeCredential,
		Label:        testCredentialName,
		Properties:   credentialProps,
		TargetConfig: targetConfig,
	})
	require.NoError(t, err)
	require.Equal(t, resource.OperationStatusSuccess, credentialResult.ProgressResult.OperationStatus)
	credentialDN := credentialResult.ProgressResult.NativeID

	controllerProps, err := json.Marshal(map[string]string{
		"name":        testControllerName,
		"domain":      testDomainName,
		"vm_provider": "vmware",
		"host_or_ip":  "10.0.0.5",
		"container":   "DC1",
		"credential":  credentialDN,
	})
	require.NoError(t, err)

	controllerResult, err := aciPlugin.Create(ctx, &resource.CreateRequest{
		ResourceType: vmm.ResourceTypeController,
		Label:        testControllerName,
		Properties:   controllerProps,
		TargetConfig: targetConfig,
	})
	require.NoError(t, err)
	require.Equal(t, resource.OperationStatusSuccess, controllerResult.ProgressResult.OperationStatus)
	controllerDN := controllerResult.ProgressResult.NativeID

	// read back the controller and verify the pushed attributes
	readResult, err := aciPlugin.Read(ctx, &resource.ReadRequest{
		ResourceType: vmm.ResourceTypeController,
		NativeID:     controllerDN,
		TargetConfig: targetConfig,
	})
	require.NoError(t, err)
	require.Empty(t, readResult.ErrorCode)

	var readProps map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(readResult.Properties), &readProps))
	assert.Equal(t, testControllerName, readProps["name"])
	assert.Equal(t, "10.0.0.5", readProps["host_or_ip"])
	assert.Equal(t, testDomainName, readProps["domain"])

	// creating the same controller again must not change anything
	secondCreate, err := aciPlugin.Create(ctx, &resource.CreateRequest{
		ResourceType: vmm.ResourceTypeController,
		Label:        testControllerName,
		Properties:   controllerProps,
		TargetConfig: targetConfig,
	})
	require.NoError(t, err)
	assert.Equal(t, resource.OperationStatusSuccess, secondCreate.ProgressResult.OperationStatus)

	// list must include the controller we created
	listResult, err := aciPlugin.List(ctx, &resource.ListRequest{
		ResourceType: vmm.ResourceTypeController,
		TargetConfig: targetConfig,
	})
	require.NoError(t, err)
	assert.Contains(t, listResult.NativeIDs, controllerDN)

	// delete controller then credential, verifying each is gone
	for _, res := range []struct {
		resourceType string
		nativeID     string
	}{
		{vmm.ResourceTypeController, controllerDN},
		{vmm.ResourceTypeCredential, credentialDN},
	} {
		del, err := aciPlugin.Delete(ctx, &resource.DeleteRequest{
			ResourceType: res.resourceType,
			NativeID:     res.nativeID,
			TargetConfig: targetConfig,
		})
		require.NoError(t, err)
		require.Equal(t, resource.OperationStatusSuccess, del.ProgressResult.OperationStatus)

		testutil.RequireGone(t, ctx, aciPlugin, res.nativeID, targetConfig, res.resourceType)

		// deleting again must be a no-op, not a failure
		again, err := aciPlugin.Delete(ctx, &resource.DeleteRequest{
			ResourceType: res.resourceType,
			NativeID:     res.nativeID,
			TargetConfig: targetConfig,
		})
		require.NoError(t, err)
		assert.Equal(t, resource.OperationStatusSuccess, again.ProgressResult.OperationStatus)
	}
}

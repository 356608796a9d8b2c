// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package vmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/mo"
)

func TestProviderTokens(t *testing.T) {
	tests := []struct {
		provider string
		token    string
	}{
		{"cloudfoundry", "CloudFoundry"},
		{"kubernetes", "Kubernetes"},
		{"microsoft", "Microsoft"},
		{"openshift", "OpenShift"},
		{"openstack", "OpenStack"},
		{"redhat", "Redhat"},
		{"vmware", "VMware"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			token, err := ProviderToken(tt.provider)
			require.NoError(t, err)
			assert.Equal(t, tt.token, token)

			provider, err := providerFromToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
		})
	}
}

func TestProviderTokenRejectsUnknownValue(t *testing.T) {
	_, err := ProviderToken("VMware")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown vm_provider "VMware"`)
	assert.Contains(t, err.Error(), "vmware")
}

func TestProviderTokensAppearInControllerDNs(t *testing.T) {
	for provider, token := range vmProviderTokens {
		spec := controllerSpec{
			object:   mo.Name("ctrl1"),
			domain:   "dom1",
			provider: provider,
			state:    StatePresent,
		}
		d, err := spec.descriptor()
		require.NoError(t, err, provider)
		assert.Equal(t, "uni/vmmp-"+token+"/dom-dom1/ctrlr-ctrl1", d.DN())
	}
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package vmm

import (
	"fmt"
	"sort"
)

// vmProviderTokens maps the accepted vm_provider values to the display
// tokens the APIC uses in the vmmp- identifier segment.
var vmProviderTokens = map[string]string{
	"cloudfoundry": "CloudFoundry",
	"kubernetes":   "Kubernetes",
	"microsoft":    "Microsoft",
	"openshift":    "OpenShift",
	"openstack":    "OpenStack",
	"redhat":       "Redhat",
	"vmware":       "VMware",
}

// ProviderToken resolves a vm_provider value to its identifier token.
// There is no fallback: an unknown value is a configuration error.
func ProviderToken(provider string) (string, error) {
	token, ok := vmProviderTokens[provider]
	if !ok {
		return "", fmt.Errorf("unknown vm_provider %q (choose from %v)", provider, providerChoices())
	}
	return token, nil
}

// providerFromToken resolves an identifier token back to the vm_provider
// value it was mapped from.
func providerFromToken(token string) (string, error) {
	for name, candidate := range vmProviderTokens {
		if candidate == token {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown provider token %q", token)
}

func providerChoices() []string {
	choices := make([]string, 0, len(vmProviderTokens))
	for name := range vmProviderTokens {
		choices = append(choices, name)
	}
	sort.Strings(choices)
	return choices
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package mo

import "testing"

func TestBuildPath(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		wantPath   string
		wantFilter string
	}{
		{
			name: "named object",
			descriptor: Descriptor{
				Class:  "vmmCtrlrP",
				RN:     "vmmp-VMware/dom-prod/ctrlr-vc1",
				Object: Name("vc1"),
			},
			wantPath: "/api/mo/uni/vmmp-VMware/dom-prod/ctrlr-vc1.json",
		},
		{
			name: "named object config-only",
			descriptor: Descriptor{
				Class:      "vmmCtrlrP",
				RN:         "vmmp-VMware/dom-prod/ctrlr-vc1",
				Object:     Name("vc1"),
				ConfigOnly: true,
			},
			wantPath:   "/api/mo/uni/vmmp-VMware/dom-prod/ctrlr-vc1.json",
			wantFilter: "?rsp-prop-include=config-only",
		},
		{
			name: "collection",
			descriptor: Descriptor{
				Class:  "vmmCtrlrP",
				Object: Collection(),
			},
			wantPath: "/api/class/vmmCtrlrP.json",
		},
		{
			name: "collection with single filter",
			descriptor: Descriptor{
				Class:        "vmmDomP",
				Object:       Collection(),
				TargetFilter: []Filter{{Op: "eq", Property: "name", Value: "prod"}},
			},
			wantPath:   "/api/class/vmmDomP.json",
			wantFilter: `?query-target-filter=eq(vmmDomP.name,"prod")`,
		},
		{
			name: "collection with combined filter",
			descriptor: Descriptor{
				Class:  "vmmCtrlrP",
				Object: Collection(),
				TargetFilter: []Filter{
					{Op: "wcard", Property: "dn", Value: "/dom-prod/"},
					{Op: "eq", Property: "name", Value: "vc1"},
				},
			},
			wantPath:   "/api/class/vmmCtrlrP.json",
			wantFilter: `?query-target-filter=and(wcard(vmmCtrlrP.dn,"/dom-prod/"),eq(vmmCtrlrP.name,"vc1"))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, filter := buildPath(tt.descriptor)
			if path != tt.wantPath {
				t.Errorf("buildPath() path = %q, want %q", path, tt.wantPath)
			}
			if filter != tt.wantFilter {
				t.Errorf("buildPath() filter = %q, want %q", filter, tt.wantFilter)
			}
		})
	}
}

func TestDescriptorDN(t *testing.T) {
	named := Descriptor{Class: "vmmCtrlrP", RN: "vmmp-VMware/dom-prod/ctrlr-vc1", Object: Name("vc1")}
	if got, want := named.DN(), "uni/vmmp-VMware/dom-prod/ctrlr-vc1"; got != want {
		t.Errorf("DN() = %q, want %q", got, want)
	}

	// The collection case must not degrade to an empty-name DN.
	unnamed := Descriptor{Class: "vmmCtrlrP", RN: "vmmp-VMware/dom-prod/ctrlr-", Object: Collection()}
	if got := unnamed.DN(); got != "" {
		t.Errorf("DN() for collection = %q, want empty", got)
	}
}

func TestObjectDistinguishesEmptyName(t *testing.T) {
	if !Name("").Named() {
		t.Error("Name(\"\") should still address a specific object")
	}
	if Collection().Named() {
		t.Error("Collection() must not report a named object")
	}
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package vmm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platform-engineering-labs/formae/pkg/model"
	"github.com/platform-engineering-labs/formae/pkg/plugin"
	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"
	"github.com/tidwall/gjson"

	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/mo"
	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/prov"
	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/registry"
	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/resources"
)

const (
	ResourceTypeDomain = "ACI::VMM::Domain"

	domainClass = "vmmDomP"
)

var (
	DomainDescriptor = plugin.ResourceDescriptor{
		Type:         ResourceTypeDomain,
		Discoverable: true,
	}

	DomainSchema = model.Schema{
		Identifier:   "name",
		Discoverable: true,
		Fields:       []string{"name", "description", "vm_provider", "state"},
		Hints: map[string]model.FieldHint{
			"name": {
				Required:   true,
				CreateOnly: true,
			},
			"vm_provider": {
				Required:   true,
				CreateOnly: true,
			},
		},
	}

	domainAliases = map[string][]string{
		"name":        {"domain_name", "domain_profile"},
		"description": {"descr"},
	}
)

// Domain provisions VMM domain profiles (vmmDomP), the per-provider
// container every controller profile and credential lives under.
type Domain struct {
	Client *client.Client
	Config *config.Config
}

func init() {
	registry.Register(
		ResourceTypeDomain,
		DomainDescriptor,
		DomainSchema,
		func(client *client.Client, cfg *config.Config) prov.Provisioner {
			return &Domain{
				Client: client,
				Config: cfg,
			}
		},
	)
}

type domainSpec struct {
	object   mo.Object
	provider string
	state    State
	attrs    mo.Attributes
}

func parseDomainSpec(props map[string]interface{}, fallback State) (domainSpec, error) {
	props = resources.ResolveAliases(props, domainAliases)

	state, err := stateFromProps(props, fallback)
	if err != nil {
		return domainSpec{}, err
	}

	spec := domainSpec{
		object: mo.Collection(),
		state:  state,
		attrs:  mo.Attributes{},
	}

	if name, ok := resources.OptionalStringProp(props, "name"); ok {
		spec.object = mo.Name(name)
		spec.attrs["name"] = name
	}
	if descr, ok := resources.OptionalStringProp(props, "description"); ok {
		spec.attrs["descr"] = descr
	}
	spec.provider = resources.StringProp(props, "vm_provider")

	return spec, nil
}

func (s domainSpec) descriptor() (mo.Descriptor, error) {
	if (s.state == StatePresent || s.state == StateAbsent) && !s.object.Named() {
		return mo.Descriptor{}, fmt.Errorf("name is required when state is %s", s.state)
	}

	d := mo.Descriptor{
		Class:      domainClass,
		Object:     s.object,
		ConfigOnly: s.state != StateQuery,
	}

	if s.object.Named() {
		token, err := ProviderToken(s.provider)
		if err != nil {
			return mo.Descriptor{}, err
		}
		d.RN = fmt.Sprintf("vmmp-%s/dom-%s", token, s.object.String())
	}

	return d, nil
}

func (d *Domain) run(ctx context.Context, spec domainSpec) (*mo.Result, mo.Descriptor, error) {
	desc, err := spec.descriptor()
	if err != nil {
		return nil, mo.Descriptor{}, err
	}
	res, err := ensure(ctx, d.Client.APIC, spec.state, desc, spec.attrs)
	return res, desc, err
}

// Create converges a VMM domain profile to its desired state
func (d *Domain) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	props, err := resources.ParseProperties(request.Properties)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationCreate, resource.OperationErrorCodeInvalidRequest, "", err.Error()),
		}, nil
	}

	spec, err := parseDomainSpec(props, StatePresent)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationCreate, resource.OperationErrorCodeInvalidRequest, "", err.Error()),
		}, nil
	}

	res, desc, err := d.run(ctx, spec)
	if err != nil {
		if res == nil {
			return &resource.CreateResult{
				ProgressResult: resources.NewFailureResult(resource.OperationCreate, resource.OperationErrorCodeInvalidRequest, "", err.Error()),
			}, nil
		}
		return &resource.CreateResult{
			ProgressResult: resources.FailureFromError(resource.OperationCreate, desc.DN(), err),
		}, nil
	}

	propsJSON, _ := json.Marshal(domainProperties(res))

	return &resource.CreateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:          resource.OperationCreate,
			OperationStatus:    resource.OperationStatusSuccess,
			NativeID:           desc.DN(),
			ResourceProperties: propsJSON,
		},
	}, nil
}

// Read retrieves a VMM domain profile by its DN
func (d *Domain) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	spec, err := domainSpecFromDN(request.NativeID)
	if err != nil {
		return &resource.ReadResult{
			ErrorCode: resource.OperationErrorCodeInvalidRequest,
		}, nil
	}

	res, _, err := d.run(ctx, spec)
	if err != nil {
		return &resource.ReadResult{
			ErrorCode: resources.FailureFromError(resource.OperationRead, request.NativeID, err).ErrorCode,
		}, nil
	}
	if len(res.Current) == 0 {
		return &resource.ReadResult{
			ErrorCode: resource.OperationErrorCodeNotFound,
		}, nil
	}

	propsJSON, _ := json.Marshal(domainProperties(res))

	return &resource.ReadResult{
		Properties: string(propsJSON),
	}, nil
}

// Update converges an existing VMM domain profile
func (d *Domain) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	props, err := resources.ParseProperties(request.DesiredProperties)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationUpdate, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
		}, nil
	}

	spec, err := parseDomainSpec(props, StatePresent)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationUpdate, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
		}, nil
	}

	res, desc, err := d.run(ctx, spec)
	if err != nil {
		if res == nil {
			return &resource.UpdateResult{
				ProgressResult: resources.NewFailureResult(resource.OperationUpdate, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
			}, nil
		}
		return &resource.UpdateResult{
			ProgressResult: resources.FailureFromError(resource.OperationUpdate, request.NativeID, err),
		}, nil
	}

	propsJSON, _ := json.Marshal(domainProperties(res))

	return &resource.UpdateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:          resource.OperationUpdate,
			OperationStatus:    resource.OperationStatusSuccess,
			NativeID:           desc.DN(),
			ResourceProperties: propsJSON,
		},
	}, nil
}

// Delete removes a VMM domain profile, tolerating one already gone
func (d *Domain) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	spec, err := domainSpecFromDN(request.NativeID)
	if err != nil {
		return &resource.DeleteResult{
			ProgressResult: resources.NewFailureResult(resource.OperationDelete, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
		}, nil
	}
	spec.state = StateAbsent

	if _, _, err := d.run(ctx, spec); err != nil {
		return &resource.DeleteResult{
			ProgressResult: resources.FailureFromError(resource.OperationDelete, request.NativeID, err),
		}, nil
	}

	return &resource.DeleteResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationDelete,
			OperationStatus: resource.OperationStatusSuccess,
			NativeID:        request.NativeID,
		},
	}, nil
}

// List enumerates VMM domain profiles fabric-wide
func (d *Domain) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	spec := domainSpec{object: mo.Collection(), state: StateQuery, attrs: mo.Attributes{}}

	res, _, err := d.run(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to list VMM domains: %w", err)
	}

	var nativeIDs []string
	for _, entry := range res.Current {
		if dn := gjson.GetBytes(entry, domainClass+".attributes.dn").String(); dn != "" {
			nativeIDs = append(nativeIDs, dn)
		}
	}

	return &resource.ListResult{
		NativeIDs: nativeIDs,
	}, nil
}

// Status reports completion; APIC config writes are synchronous
func (d *Domain) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationCheckStatus,
			OperationStatus: resource.OperationStatusSuccess,
			RequestID:       request.RequestID,
			NativeID:        request.NativeID,
		},
	}, nil
}

// domainSpecFromDN rebuilds a query spec from a domain DN of the form
// uni/vmmp-<Token>/dom-<name>.
func domainSpecFromDN(dn string) (domainSpec, error) {
	segments := strings.Split(strings.TrimPrefix(dn, "uni/"), "/")
	if len(segments) != 2 ||
		!strings.HasPrefix(segments[0], "vmmp-") ||
		!strings.HasPrefix(segments[1], "dom-") {
		return domainSpec{}, fmt.Errorf("invalid VMM domain DN %q", dn)
	}

	provider, err := providerFromToken(strings.TrimPrefix(segments[0], "vmmp-"))
	if err != nil {
		return domainSpec{}, err
	}

	name := strings.TrimPrefix(segments[1], "dom-")
	return domainSpec{
		object:   mo.Name(name),
		provider: provider,
		state:    StateQuery,
		attrs:    mo.Attributes{"name": name},
	}, nil
}

func domainProperties(res *mo.Result) map[string]interface{} {
	props := map[string]interface{}{}
	if len(res.Current) == 0 {
		return props
	}

	attrs := gjson.GetBytes(res.Current[0], domainClass+".attributes")
	if name := attrs.Get("name").String(); name != "" {
		props["name"] = name
	}
	if descr := attrs.Get("descr").String(); descr != "" {
		props["description"] = descr
	}
	if dn := attrs.Get("dn").String(); dn != "" {
		if spec, err := domainSpecFromDN(dn); err == nil {
			props["vm_provider"] = spec.provider
		}
	}
	return props
}

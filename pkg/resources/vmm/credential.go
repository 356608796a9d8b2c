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
	ResourceTypeCredential = "ACI::VMM::Credential"

	credentialClass = "vmmUsrAccP"
)

var (
	CredentialDescriptor = plugin.ResourceDescriptor{
		Type:         ResourceTypeCredential,
		Discoverable: true,
	}

	CredentialSchema = model.Schema{
		Identifier:   "name",
		Discoverable: true,
		Fields: []string{
			"name", "description", "domain", "vm_provider",
			"credential_username", "credential_password", "state",
		},
		Hints: map[string]model.FieldHint{
			"name": {
				Required:   true,
				CreateOnly: true,
			},
			"domain": {
				Required:   true,
				CreateOnly: true,
			},
			"vm_provider": {
				Required:   true,
				CreateOnly: true,
			},
		},
	}

	credentialAliases = map[string][]string{
		"name":        {"credential_name", "credential_profile"},
		"description": {"descr"},
		"domain":      {"domain_name", "domain_profile"},
	}
)

// Credential provisions credential profiles (vmmUsrAccP) under a VMM
// domain. Controller profiles reference them through vmmRsAcc.
type Credential struct {
	Client *client.Client
	Config *config.Config
}

func init() {
	registry.Register(
		ResourceTypeCredential,
		CredentialDescriptor,
		CredentialSchema,
		func(client *client.Client, cfg *config.Config) prov.Provisioner {
			return &Credential{
				Client: client,
				Config: cfg,
			}
		},
	)
}

type credentialSpec struct {
	object   mo.Object
	domain   string
	provider string
	state    State
	attrs    mo.Attributes
}

func parseCredentialSpec(props map[string]interface{}, fallback State) (credentialSpec, error) {
	props = resources.ResolveAliases(props, credentialAliases)

	state, err := stateFromProps(props, fallback)
	if err != nil {
		return credentialSpec{}, err
	}

	spec := credentialSpec{
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
	if usr, ok := resources.OptionalStringProp(props, "credential_username"); ok {
		spec.attrs["usr"] = usr
	}
	if pwd, ok := resources.OptionalStringProp(props, "credential_password"); ok {
		spec.attrs["pwd"] = pwd
	}
	spec.domain = resources.StringProp(props, "domain")
	spec.provider = resources.StringProp(props, "vm_provider")

	return spec, nil
}

func (s credentialSpec) descriptor() (mo.Descriptor, error) {
	if s.state == StatePresent || s.state == StateAbsent {
		if s.domain == "" || !s.object.Named() {
			return mo.Descriptor{}, fmt.Errorf("domain and name are required when state is %s", s.state)
		}
	}

	d := mo.Descriptor{
		Class:      credentialClass,
		Object:     s.object,
		ConfigOnly: s.state != StateQuery,
	}

	switch {
	case s.object.Named() && s.domain != "":
		token, err := ProviderToken(s.provider)
		if err != nil {
			return mo.Descriptor{}, err
		}
		d.RN = fmt.Sprintf("vmmp-%s/dom-%s/usracc-%s", token, s.domain, s.object.String())
	case s.domain != "":
		// partial identity degrades to a class query scoped by DN substring
		d.Object = mo.Collection()
		d.TargetFilter = []mo.Filter{
			{Op: "wcard", Property: "dn", Value: fmt.Sprintf("/dom-%s/", s.domain)},
		}
		if s.object.Named() {
			d.TargetFilter = append(d.TargetFilter, mo.Filter{
				Op: "eq", Property: "name", Value: s.object.String(),
			})
		}
	}

	return d, nil
}

func (c *Credential) run(ctx context.Context, spec credentialSpec) (*mo.Result, mo.Descriptor, error) {
	desc, err := spec.descriptor()
	if err != nil {
		return nil, mo.Descriptor{}, err
	}
	res, err := ensure(ctx, c.Client.APIC, spec.state, desc, spec.attrs)
	return res, desc, err
}

// Create converges a credential profile to its desired state
func (c *Credential) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	props, err := resources.ParseProperties(request.Properties)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationCreate, resource.OperationErrorCodeInvalidRequest, "", err.Error()),
		}, nil
	}

	spec, err := parseCredentialSpec(props, StatePresent)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationCreate, resource.OperationErrorCodeInvalidRequest, "", err.Error()),
		}, nil
	}

	res, desc, err := c.run(ctx, spec)
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

	propsJSON, _ := json.Marshal(credentialProperties(res))

	return &resource.CreateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:          resource.OperationCreate,
			OperationStatus:    resource.OperationStatusSuccess,
			NativeID:           desc.DN(),
			ResourceProperties: propsJSON,
		},
	}, nil
}

// Read retrieves a credential profile by its DN
func (c *Credential) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	spec, err := credentialSpecFromDN(request.NativeID)
	if err != nil {
		return &resource.ReadResult{
			ErrorCode: resource.OperationErrorCodeInvalidRequest,
		}, nil
	}

	res, _, err := c.run(ctx, spec)
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

	propsJSON, _ := json.Marshal(credentialProperties(res))

	return &resource.ReadResult{
		Properties: string(propsJSON),
	}, nil
}

// Update converges an existing credential profile
func (c *Credential) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	props, err := resources.ParseProperties(request.DesiredProperties)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationUpdate, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
		}, nil
	}

	spec, err := parseCredentialSpec(props, StatePresent)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationUpdate, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
		}, nil
	}

	res, desc, err := c.run(ctx, spec)
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

	propsJSON, _ := json.Marshal(credentialProperties(res))

	return &resource.UpdateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:          resource.OperationUpdate,
			OperationStatus:    resource.OperationStatusSuccess,
			NativeID:           desc.DN(),
			ResourceProperties: propsJSON,
		},
	}, nil
}

// Delete removes a credential profile, tolerating one already gone
func (c *Credential) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	spec, err := credentialSpecFromDN(request.NativeID)
	if err != nil {
		return &resource.DeleteResult{
			ProgressResult: resources.NewFailureResult(resource.OperationDelete, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
		}, nil
	}
	spec.state = StateAbsent

	if _, _, err := c.run(ctx, spec); err != nil {
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

// List enumerates credential profiles, optionally scoped to one domain
// through the "domain" additional property.
func (c *Credential) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	spec := credentialSpec{object: mo.Collection(), state: StateQuery, attrs: mo.Attributes{}}
	if request.AdditionalProperties != nil {
		spec.domain = request.AdditionalProperties["domain"]
	}

	res, _, err := c.run(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to list VMM credentials: %w", err)
	}

	var nativeIDs []string
	for _, entry := range res.Current {
		if dn := gjson.GetBytes(entry, credentialClass+".attributes.dn").String(); dn != "" {
			nativeIDs = append(nativeIDs, dn)
		}
	}

	return &resource.ListResult{
		NativeIDs: nativeIDs,
	}, nil
}

// Status reports completion; APIC config writes are synchronous
func (c *Credential) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationCheckStatus,
			OperationStatus: resource.OperationStatusSuccess,
			RequestID:       request.RequestID,
			NativeID:        request.NativeID,
		},
	}, nil
}

// credentialSpecFromDN rebuilds a query spec from a credential DN of the
// form uni/vmmp-<Token>/dom-<domain>/usracc-<name>.
func credentialSpecFromDN(dn string) (credentialSpec, error) {
	segments := strings.Split(strings.TrimPrefix(dn, "uni/"), "/")
	if len(segments) != 3 ||
		!strings.HasPrefix(segments[0], "vmmp-") ||
		!strings.HasPrefix(segments[1], "dom-") ||
		!strings.HasPrefix(segments[2], "usracc-") {
		return credentialSpec{}, fmt.Errorf("invalid VMM credential DN %q", dn)
	}

	provider, err := providerFromToken(strings.TrimPrefix(segments[0], "vmmp-"))
	if err != nil {
		return credentialSpec{}, err
	}

	name := strings.TrimPrefix(segments[2], "usracc-")
	return credentialSpec{
		object:   mo.Name(name),
		domain:   strings.TrimPrefix(segments[1], "dom-"),
		provider: provider,
		state:    StateQuery,
		attrs:    mo.Attributes{"name": name},
	}, nil
}

// credentialProperties flattens the current object back into property
// names. The APIC never returns pwd, so it is absent by construction.
func credentialProperties(res *mo.Result) map[string]interface{} {
	props := map[string]interface{}{}
	if len(res.Current) == 0 {
		return props
	}

	attrs := gjson.GetBytes(res.Current[0], credentialClass+".attributes")
	if name := attrs.Get("name").String(); name != "" {
		props["name"] = name
	}
	if descr := attrs.Get("descr").String(); descr != "" {
		props["description"] = descr
	}
	if usr := attrs.Get("usr").String(); usr != "" {
		props["credential_username"] = usr
	}
	if dn := attrs.Get("dn").String(); dn != "" {
		if spec, err := credentialSpecFromDN(dn); err == nil {
			props["domain"] = spec.domain
			props["vm_provider"] = spec.provider
		}
	}
	return props
}

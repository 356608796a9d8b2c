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
	ResourceTypeController = "ACI::VMM::ControllerProfile"

	controllerClass = "vmmCtrlrP"
)

// Controller profile schema and descriptor
var (
	ControllerDescriptor = plugin.ResourceDescriptor{
		Type:         ResourceTypeController,
		Discoverable: true,
	}

	ControllerSchema = model.Schema{
		Identifier:   "name",
		Discoverable: true,
		Fields:       []string{"name", "container", "credential", "description", "domain", "host_or_ip", "vm_provider", "state"},
		Hints: map[string]model.FieldHint{
			"name": {
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

	controllerAliases = map[string][]string{
		"name":      {"controller_name", "controller_profile"},
		"container": {"datacenter"},
		// This alias is a single comma-joined string and can never match a
		// real property name. TODO: split into credential_name and
		// credential_profile once it is confirmed nothing supplies the
		// joined form.
		"credential":  {"credential_name, credential_profile"},
		"description": {"descr"},
		"domain":      {"domain_name", "domain_profile"},
		"host_or_ip":  {"controller_hostname", "controller_ip"},
	}
)

// Controller provisions VMM controller profiles (vmmCtrlrP): the fabric's
// record of an external virtual machine manager such as a vCenter.
type Controller struct {
	Client *client.Client
	Config *config.Config
}

// Register the controller profile resource type
func init() {
	registry.Register(
		ResourceTypeController,
		ControllerDescriptor,
		ControllerSchema,
		func(client *client.Client, cfg *config.Config) prov.Provisioner {
			return &Controller{
				Client: client,
				Config: cfg,
			}
		},
	)
}

// controllerSpec is the parsed, alias-resolved desired state for one
// controller profile request. attrs holds only the APIC attributes the
// caller actually supplied.
type controllerSpec struct {
	object        mo.Object
	domain        string
	provider      string
	credential    string
	credentialSet bool
	state         State
	attrs         mo.Attributes
}

func parseControllerSpec(props map[string]interface{}, fallback State) (controllerSpec, error) {
	props = resources.ResolveAliases(props, controllerAliases)

	state, err := stateFromProps(props, fallback)
	if err != nil {
		return controllerSpec{}, err
	}

	spec := controllerSpec{
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
	if host, ok := resources.OptionalStringProp(props, "host_or_ip"); ok {
		spec.attrs["hostOrIp"] = host
	}
	if container, ok := resources.OptionalStringProp(props, "container"); ok {
		spec.attrs["rootContName"] = container
	}
	if credential, ok := resources.OptionalStringProp(props, "credential"); ok {
		spec.credential = credential
		spec.credentialSet = true
	}
	spec.domain = resources.StringProp(props, "domain")
	spec.provider = resources.StringProp(props, "vm_provider")

	return spec, nil
}

// descriptor validates the field combination and builds the managed-object
// descriptor. All failures here happen before any network exchange.
func (s controllerSpec) descriptor() (mo.Descriptor, error) {
	if s.state == StatePresent || s.state == StateAbsent {
		if s.domain == "" {
			return mo.Descriptor{}, fmt.Errorf("domain is required when state is %s", s.state)
		}
		if !s.object.Named() {
			return mo.Descriptor{}, fmt.Errorf("name is required when state is %s", s.state)
		}
	}

	d := mo.Descriptor{
		Class:      controllerClass,
		Object:     s.object,
		ConfigOnly: s.state != StateQuery,
	}

	if s.object.Named() {
		if s.domain == "" {
			return mo.Descriptor{}, fmt.Errorf("domain is required to address controller %q", s.object.String())
		}
		token, err := ProviderToken(s.provider)
		if err != nil {
			return mo.Descriptor{}, err
		}
		d.RN = fmt.Sprintf("vmmp-%s/dom-%s/ctrlr-%s", token, s.domain, s.object.String())
	} else if s.domain != "" {
		// Domain-level enumeration: scope the class query to the domain.
		d.TargetFilter = []mo.Filter{{Op: "wcard", Property: "dn", Value: fmt.Sprintf("/dom-%s/", s.domain)}}
	}

	return d, nil
}

// run executes the descriptor flow for a parsed spec
func (c *Controller) run(ctx context.Context, spec controllerSpec) (*mo.Result, mo.Descriptor, error) {
	d, err := spec.descriptor()
	if err != nil {
		return nil, mo.Descriptor{}, err
	}

	var children []json.RawMessage
	if spec.credentialSet && spec.credential != "" {
		child, err := mo.Child("vmmRsAcc", mo.Attributes{"tDn": spec.credential})
		if err != nil {
			return nil, d, err
		}
		children = append(children, child)
	}

	res, err := ensure(ctx, c.Client.APIC, spec.state, d, spec.attrs, children...)
	return res, d, err
}

// Create converges a controller profile to its desired state
func (c *Controller) Create(ctx context.Context, request *resource.CreateRequest) (*resource.CreateResult, error) {
	props, err := resources.ParseProperties(request.Properties)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationCreate, resource.OperationErrorCodeInvalidRequest, "", err.Error()),
		}, nil
	}

	spec, err := parseControllerSpec(props, StatePresent)
	if err != nil {
		return &resource.CreateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationCreate, resource.OperationErrorCodeInvalidRequest, "", err.Error()),
		}, nil
	}

	res, d, err := c.run(ctx, spec)
	if err != nil {
		if res == nil {
			// Rejected before any exchange: a field-combination error.
			return &resource.CreateResult{
				ProgressResult: resources.NewFailureResult(resource.OperationCreate, resource.OperationErrorCodeInvalidRequest, "", err.Error()),
			}, nil
		}
		return &resource.CreateResult{
			ProgressResult: resources.FailureFromError(resource.OperationCreate, d.DN(), err),
		}, nil
	}

	propsJSON, _ := json.Marshal(controllerProperties(res))

	return &resource.CreateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:          resource.OperationCreate,
			OperationStatus:    resource.OperationStatusSuccess,
			NativeID:           d.DN(),
			ResourceProperties: propsJSON,
		},
	}, nil
}

// Read retrieves the current state of a controller profile by its DN
func (c *Controller) Read(ctx context.Context, request *resource.ReadRequest) (*resource.ReadResult, error) {
	spec, err := controllerSpecFromDN(request.NativeID)
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

	propsJSON, _ := json.Marshal(controllerProperties(res))

	return &resource.ReadResult{
		Properties: string(propsJSON),
	}, nil
}

// Update converges an existing controller profile; the flow is the same
// create-or-update push as Create, addressed by DN.
func (c *Controller) Update(ctx context.Context, request *resource.UpdateRequest) (*resource.UpdateResult, error) {
	props, err := resources.ParseProperties(request.DesiredProperties)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationUpdate, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
		}, nil
	}

	spec, err := parseControllerSpec(props, StatePresent)
	if err != nil {
		return &resource.UpdateResult{
			ProgressResult: resources.NewFailureResult(resource.OperationUpdate, resource.OperationErrorCodeInvalidRequest, request.NativeID, err.Error()),
		}, nil
	}

	res, d, err := c.run(ctx, spec)
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

	propsJSON, _ := json.Marshal(controllerProperties(res))

	return &resource.UpdateResult{
		ProgressResult: &resource.ProgressResult{
			Operation:          resource.OperationUpdate,
			OperationStatus:    resource.OperationStatusSuccess,
			NativeID:           d.DN(),
			ResourceProperties: propsJSON,
		},
	}, nil
}

// Delete removes a controller profile. Deleting one that is already gone
// succeeds without issuing a write.
func (c *Controller) Delete(ctx context.Context, request *resource.DeleteRequest) (*resource.DeleteResult, error) {
	spec, err := controllerSpecFromDN(request.NativeID)
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

// List enumerates controller profiles fabric-wide via a class-level query
func (c *Controller) List(ctx context.Context, request *resource.ListRequest) (*resource.ListResult, error) {
	spec := controllerSpec{object: mo.Collection(), state: StateQuery, attrs: mo.Attributes{}}

	res, _, err := c.run(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to list controller profiles: %w", err)
	}

	var nativeIDs []string
	for _, entry := range res.Current {
		if dn := gjson.GetBytes(entry, controllerClass+".attributes.dn").String(); dn != "" {
			nativeIDs = append(nativeIDs, dn)
		}
	}

	return &resource.ListResult{
		NativeIDs: nativeIDs,
	}, nil
}

// Status reports completion; APIC config writes are synchronous
func (c *Controller) Status(ctx context.Context, request *resource.StatusRequest) (*resource.StatusResult, error) {
	return &resource.StatusResult{
		ProgressResult: &resource.ProgressResult{
			Operation:       resource.OperationCheckStatus,
			OperationStatus: resource.OperationStatusSuccess,
			RequestID:       request.RequestID,
			NativeID:        request.NativeID,
		},
	}, nil
}

// controllerSpecFromDN rebuilds a query spec from a controller DN of the
// form uni/vmmp-<Token>/dom-<domain>/ctrlr-<name>.
func controllerSpecFromDN(dn string) (controllerSpec, error) {
	segments := strings.Split(strings.TrimPrefix(dn, "uni/"), "/")
	if len(segments) != 3 ||
		!strings.HasPrefix(segments[0], "vmmp-") ||
		!strings.HasPrefix(segments[1], "dom-") ||
		!strings.HasPrefix(segments[2], "ctrlr-") {
		return controllerSpec{}, fmt.Errorf("invalid controller DN %q", dn)
	}

	provider, err := providerFromToken(strings.TrimPrefix(segments[0], "vmmp-"))
	if err != nil {
		return controllerSpec{}, err
	}

	name := strings.TrimPrefix(segments[2], "ctrlr-")
	return controllerSpec{
		object:   mo.Name(name),
		domain:   strings.TrimPrefix(segments[1], "dom-"),
		provider: provider,
		state:    StateQuery,
		attrs:    mo.Attributes{"name": name},
	}, nil
}

// controllerProperties flattens the first returned object back into the
// resource's property names.
func controllerProperties(res *mo.Result) map[string]interface{} {
	props := map[string]interface{}{}
	if len(res.Current) == 0 {
		return props
	}

	attrs := gjson.GetBytes(res.Current[0], controllerClass+".attributes")
	set := func(prop, attr string) {
		if value := attrs.Get(attr).String(); value != "" {
			props[prop] = value
		}
	}
	set("name", "name")
	set("description", "descr")
	set("host_or_ip", "hostOrIp")
	set("container", "rootContName")

	if dn := attrs.Get("dn").String(); dn != "" {
		if spec, err := controllerSpecFromDN(dn); err == nil {
			props["domain"] = spec.domain
			props["vm_provider"] = spec.provider
		}
	}
	return props
}

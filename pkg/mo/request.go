// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package mo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/transport/apic"
)

// Transport is the slice of the APIC client the managed-object layer needs.
// Injected so request flows can be exercised against a fake.
type Transport interface {
	Do(ctx context.Context, opts apic.RequestOptions) (*apic.Response, error)
}

// ErrorInfo is the structured error carried in a Result. Code and Text come
// from the APIC error object when one was returned; Raw holds the unparsed
// body when the response could not be decoded.
type ErrorInfo struct {
	Code string `json:"code"`
	Text string `json:"text"`
	Raw  string `json:"raw,omitempty"`
}

// Result is the envelope every request flow terminates with, success or
// failure: the state before and after, the assembled and actually-sent
// documents, and the transport metadata of the last exchange.
type Result struct {
	Changed      bool
	Previous     []json.RawMessage
	Current      []json.RawMessage
	Proposed     json.RawMessage
	Sent         json.RawMessage
	FilterString string
	Method       string
	URL          string
	Status       int
	Response     string
	Error        *ErrorInfo
}

// Module drives one managed-object request flow against the APIC:
// construct the URL, read existing state, assemble the desired payload,
// diff, then push or delete. Methods are expected in that order; every
// outcome is recorded in the Result envelope.
type Module struct {
	client Transport

	path       string
	filter     string
	dn         string
	collection bool

	proposed json.RawMessage
	sent     json.RawMessage
	existing []json.RawMessage

	result Result
}

// New creates a Module over the given transport
func New(client Transport) *Module {
	return &Module{client: client}
}

// ConstructURL resolves a descriptor into the request path and filter
// string. A descriptor without a named object addresses the class-level
// collection, which only supports reads.
func (m *Module) ConstructURL(d Descriptor) {
	m.dn = d.DN()
	m.collection = !d.Object.Named()
	m.path, m.filter = buildPath(d)
	m.result.URL = m.path
	m.result.FilterString = m.filter
}

// DN returns the distinguished name of the addressed object, empty when the
// descriptor addresses a collection.
func (m *Module) DN() string {
	return m.dn
}

// GetExisting reads the current state of the addressed object or
// collection. It must precede any mutation; the state it captures becomes
// the Previous side of the envelope.
func (m *Module) GetExisting(ctx context.Context) error {
	resp, err := m.request(ctx, "GET", m.path+m.filter, nil)
	if err != nil {
		return err
	}
	m.existing = resp.Imdata
	m.result.Previous = resp.Imdata
	m.result.Current = resp.Imdata
	return nil
}

// Payload assembles the desired-state document for the addressed class.
func (m *Module) Payload(class string, attrs Attributes, children ...json.RawMessage) error {
	proposed, err := buildPayload(class, attrs, children)
	if err != nil {
		return err
	}
	m.proposed = proposed
	m.result.Proposed = proposed
	return nil
}

// Diff computes the minimal delta between the proposed payload and the
// existing state. An empty delta marks the flow as already converged.
func (m *Module) Diff(class string) error {
	sent, err := computeDiff(class, m.proposed, m.existing)
	if err != nil {
		return err
	}
	m.sent = sent
	m.result.Sent = sent
	return nil
}

// PostConfig pushes the diff, if any. A second run with identical inputs
// finds an empty diff and performs no write. After a successful write the
// object is re-read so Current reflects the post-write state.
func (m *Module) PostConfig(ctx context.Context) error {
	if len(m.sent) == 0 {
		return nil
	}
	if m.collection {
		return fmt.Errorf("cannot push config to a class-level collection")
	}
	if _, err := m.request(ctx, "POST", m.path, m.sent); err != nil {
		return err
	}
	m.result.Changed = true
	return m.refreshCurrent(ctx)
}

// DeleteConfig removes the addressed object. Deleting an object that does
// not exist is a no-op, not an error.
func (m *Module) DeleteConfig(ctx context.Context) error {
	if len(m.existing) == 0 {
		return nil
	}
	if m.collection {
		return fmt.Errorf("cannot delete a class-level collection")
	}
	if _, err := m.request(ctx, "DELETE", m.path, nil); err != nil {
		var apicErr *apic.Error
		if errors.As(err, &apicErr) && apicErr.Code == apic.ErrorCodeResourceNotFound {
			m.result.Current = nil
			return nil
		}
		return err
	}
	m.result.Changed = true
	m.result.Current = nil
	return nil
}

// Result returns the envelope for the flow so far. It is valid on every
// path, including failures, so callers can inspect partial state.
func (m *Module) Result() *Result {
	return &m.result
}

func (m *Module) refreshCurrent(ctx context.Context) error {
	resp, err := m.request(ctx, "GET", m.path+m.filter, nil)
	if err != nil {
		return err
	}
	m.result.Current = resp.Imdata
	return nil
}

// request executes one exchange and records its transport metadata, folding
// any failure into the structured error of the envelope.
func (m *Module) request(ctx context.Context, method, path string, body json.RawMessage) (*apic.Response, error) {
	m.result.Method = method
	m.result.URL = path

	resp, err := m.client.Do(ctx, apic.RequestOptions{Method: method, Path: path, Body: body})
	if err != nil {
		var apicErr *apic.Error
		if errors.As(err, &apicErr) {
			m.result.Status = apicErr.HTTPCode
			m.result.Response = http.StatusText(apicErr.HTTPCode)
			m.result.Error = &ErrorInfo{Code: remoteCode(apicErr), Text: apicErr.Message, Raw: apicErr.Raw}
		} else {
			m.result.Error = &ErrorInfo{Code: string(apic.ErrorCodeUnknown), Text: err.Error()}
		}
		return nil, err
	}

	m.result.Status = resp.StatusCode
	m.result.Response = http.StatusText(resp.StatusCode)
	return resp, nil
}

func remoteCode(err *apic.Error) string {
	if err.RemoteCode != "" {
		return err.RemoteCode
	}
	return string(err.Code)
}

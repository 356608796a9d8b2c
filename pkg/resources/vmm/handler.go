// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package vmm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/mo"
)

// State is the desired lifecycle state of a managed object
type State string

const (
	StatePresent State = "present" // create or update
	StateAbsent  State = "absent"  // delete
	StateQuery   State = "query"   // read only
)

// stateFromProps reads an explicit state property, falling back to the
// state implied by the plugin operation.
func stateFromProps(props map[string]interface{}, fallback State) (State, error) {
	raw, ok := props["state"].(string)
	if !ok || raw == "" {
		return fallback, nil
	}
	switch State(raw) {
	case StatePresent, StateAbsent, StateQuery:
		return State(raw), nil
	default:
		return "", fmt.Errorf("invalid state %q (choose from absent, present, query)", raw)
	}
}

// ensure runs the shared descriptor flow: read existing state, then
// converge on the desired lifecycle state. The returned envelope is valid
// on every path, including failures after the first exchange.
func ensure(ctx context.Context, t mo.Transport, state State, d mo.Descriptor, attrs mo.Attributes, children ...json.RawMessage) (*mo.Result, error) {
	m := mo.New(t)
	m.ConstructURL(d)

	if err := m.GetExisting(ctx); err != nil {
		return m.Result(), err
	}

	switch state {
	case StatePresent:
		if err := m.Payload(d.Class, attrs, children...); err != nil {
			return m.Result(), err
		}
		if err := m.Diff(d.Class); err != nil {
			return m.Result(), err
		}
		if err := m.PostConfig(ctx); err != nil {
			return m.Result(), err
		}
	case StateAbsent:
		if err := m.DeleteConfig(ctx); err != nil {
			return m.Result(), err
		}
	case StateQuery:
		// the read above is the whole operation
	}

	return m.Result(), nil
}

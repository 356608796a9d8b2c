// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package resources

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/platform-engineering-labs/formae/pkg/plugin/resource"

	"github.com/platform-engineering-labs/formae-plugin-aci/pkg/transport/apic"
)

// ParseProperties decodes a raw property document into a flat map
func ParseProperties(raw json.RawMessage) (map[string]interface{}, error) {
	props := map[string]interface{}{}
	if len(raw) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	return props, nil
}

// ResolveAliases renames alternate property names to their canonical form.
// Pure renaming: the canonical name wins when both are present, and alias
// keys are removed afterwards so downstream code sees one spelling only.
func ResolveAliases(props map[string]interface{}, aliases map[string][]string) map[string]interface{} {
	for canonical, alts := range aliases {
		for _, alias := range alts {
			value, ok := props[alias]
			if !ok {
				continue
			}
			if _, exists := props[canonical]; !exists {
				props[canonical] = value
			}
			delete(props, alias)
		}
	}
	return props
}

// StringProp returns a string property, tolerating absence
func StringProp(props map[string]interface{}, key string) string {
	value, _ := props[key].(string)
	return value
}

// OptionalStringProp returns a string property and whether the key was
// supplied at all, so callers can tell "omitted" from "empty".
func OptionalStringProp(props map[string]interface{}, key string) (string, bool) {
	raw, ok := props[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	return value, ok
}

// NewFailureResult builds a failed ProgressResult for an operation
func NewFailureResult(op resource.Operation, code resource.OperationErrorCode, nativeID, message string) *resource.ProgressResult {
	return &resource.ProgressResult{
		Operation:       op,
		OperationStatus: resource.OperationStatusFailure,
		ErrorCode:       code,
		NativeID:        nativeID,
		StatusMessage:   message,
	}
}

// FailureFromError classifies an error from the APIC layers into a failed
// ProgressResult, preserving the transport classification when present.
func FailureFromError(op resource.Operation, nativeID string, err error) *resource.ProgressResult {
	var apicErr *apic.Error
	if errors.As(err, &apicErr) {
		return NewFailureResult(op, apic.ToResourceErrorCode(apicErr.Code), nativeID, apicErr.Error())
	}
	return NewFailureResult(op, resource.OperationErrorCodeServiceInternalError, nativeID, err.Error())
}

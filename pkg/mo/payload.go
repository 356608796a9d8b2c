// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package mo

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/sjson"
)

// Attributes is the flat set of configurable properties for one class.
// Callers include only the properties the user actually supplied; omitted
// properties never appear in the proposed document and therefore never
// participate in the diff.
type Attributes map[string]string

// Child builds a nested child-object document of the given class.
func Child(class string, attrs Attributes) (json.RawMessage, error) {
	doc := "{}"
	var err error
	for _, key := range sortedKeys(attrs) {
		doc, err = sjson.Set(doc, class+".attributes."+key, attrs[key])
		if err != nil {
			return nil, fmt.Errorf("failed to set child attribute %s: %w", key, err)
		}
	}
	return json.RawMessage(doc), nil
}

// buildPayload assembles the desired-state document for a class:
// {"<class>":{"attributes":{...},"children":[...]}}
func buildPayload(class string, attrs Attributes, children []json.RawMessage) (json.RawMessage, error) {
	doc := "{}"
	var err error
	for _, key := range sortedKeys(attrs) {
		doc, err = sjson.Set(doc, class+".attributes."+key, attrs[key])
		if err != nil {
			return nil, fmt.Errorf("failed to set attribute %s: %w", key, err)
		}
	}
	for _, child := range children {
		doc, err = sjson.SetRaw(doc, class+".children.-1", string(child))
		if err != nil {
			return nil, fmt.Errorf("failed to append child config: %w", err)
		}
	}
	return json.RawMessage(doc), nil
}

// sortedKeys keeps assembled documents byte-stable across runs.
func sortedKeys(attrs Attributes) []string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

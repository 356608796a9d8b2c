// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package mo

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// computeDiff produces the minimal document that must be pushed to move the
// existing object to the proposed state. An empty result means the object
// already matches and no write is needed.
//
// Attributes are compared config-only: a proposed attribute is included when
// the existing object reports a different value. Proposed children are
// included when no existing child of the same class carries all of the
// proposed child attributes.
func computeDiff(class string, proposed json.RawMessage, existing []json.RawMessage) (json.RawMessage, error) {
	if len(proposed) == 0 {
		return nil, nil
	}
	// Nothing on the fabric yet: push the full proposed document.
	if len(existing) == 0 {
		return proposed, nil
	}

	current := gjson.GetBytes(existing[0], class)
	if !current.Exists() {
		return proposed, nil
	}

	doc := "{}"
	changed := false
	var err error

	proposedAttrs := gjson.GetBytes(proposed, class+".attributes")
	currentAttrs := current.Get("attributes")
	var iterErr error
	proposedAttrs.ForEach(func(key, value gjson.Result) bool {
		if currentAttrs.Get(key.String()).String() == value.String() {
			return true
		}
		doc, err = sjson.Set(doc, class+".attributes."+key.String(), value.String())
		if err != nil {
			iterErr = fmt.Errorf("failed to set diff attribute %s: %w", key.String(), err)
			return false
		}
		changed = true
		return true
	})
	if iterErr != nil {
		return nil, iterErr
	}

	currentChildren := current.Get("children")
	for _, child := range gjson.GetBytes(proposed, class+".children").Array() {
		if childSatisfied(child, currentChildren) {
			continue
		}
		doc, err = sjson.SetRaw(doc, class+".children.-1", child.Raw)
		if err != nil {
			return nil, fmt.Errorf("failed to append diff child: %w", err)
		}
		changed = true
	}

	if !changed {
		return nil, nil
	}
	return json.RawMessage(doc), nil
}

// childSatisfied reports whether an existing child already carries every
// attribute the proposed child sets.
func childSatisfied(proposed gjson.Result, existing gjson.Result) bool {
	satisfied := false
	proposed.ForEach(func(class, body gjson.Result) bool {
		wantAttrs := body.Get("attributes")
		existing.ForEach(func(_, candidate gjson.Result) bool {
			haveAttrs := candidate.Get(class.String() + ".attributes")
			if !haveAttrs.Exists() {
				return true
			}
			match := true
			wantAttrs.ForEach(func(key, value gjson.Result) bool {
				if haveAttrs.Get(key.String()).String() != value.String() {
					match = false
					return false
				}
				return true
			})
			if match {
				satisfied = true
				return false
			}
			return true
		})
		return false // single-class child documents
	})
	return satisfied
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package mo

import (
	"fmt"
	"strings"
)

// Object is the optional instance part of a managed-object descriptor.
// A named object addresses one MO by distinguished name; an unnamed one
// degrades the request to a class-level collection query. Keeping this
// explicit avoids conflating "no name given" with an empty-string name.
type Object struct {
	name  string
	named bool
}

// Name addresses a specific managed object
func Name(name string) Object {
	return Object{name: name, named: true}
}

// Collection addresses the class-level collection instead of one object
func Collection() Object {
	return Object{}
}

// Named reports whether the object addresses a specific instance
func (o Object) Named() bool {
	return o.named
}

// String returns the instance name, empty for collections
func (o Object) String() string {
	return o.name
}

// Filter is one term of a class-query target filter.
// Op is an APIC filter operator such as "eq" or "wcard".
type Filter struct {
	Op       string
	Property string
	Value    string
}

// Descriptor identifies a managed object (or class collection) in the
// policy tree and how it should be read.
type Descriptor struct {
	Class        string   // APIC object class, e.g. "vmmCtrlrP"
	RN           string   // relative name under the policy root, e.g. "vmmp-VMware/dom-prod/ctrlr-vc1"
	Object       Object   // named instance or collection
	TargetFilter []Filter // narrows class-level queries, ignored for named objects
	ConfigOnly   bool     // restrict reads to configurable properties (mutating flows)
}

// DN returns the distinguished name for a named descriptor, empty for
// collections.
func (d Descriptor) DN() string {
	if !d.Object.Named() {
		return ""
	}
	return "uni/" + d.RN
}

// buildPath renders the request path and filter string for a descriptor.
func buildPath(d Descriptor) (path, filter string) {
	if d.Object.Named() {
		path = fmt.Sprintf("/api/mo/%s.json", d.DN())
		if d.ConfigOnly {
			filter = "?rsp-prop-include=config-only"
		}
		return path, filter
	}

	path = fmt.Sprintf("/api/class/%s.json", d.Class)
	if len(d.TargetFilter) > 0 {
		terms := make([]string, 0, len(d.TargetFilter))
		for _, f := range d.TargetFilter {
			terms = append(terms, fmt.Sprintf("%s(%s.%s,%q)", f.Op, d.Class, f.Property, f.Value))
		}
		expr := terms[0]
		if len(terms) > 1 {
			expr = fmt.Sprintf("and(%s)", strings.Join(terms, ","))
		}
		filter = "?query-target-filter=" + expr
	}
	return path, filter
}

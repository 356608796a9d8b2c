// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package mo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestComputeDiffNoExisting(t *testing.T) {
	proposed := json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1","hostOrIp":"10.0.0.5"}}}`)

	sent, err := computeDiff("vmmCtrlrP", proposed, nil)
	require.NoError(t, err)
	assert.JSONEq(t, string(proposed), string(sent))
}

func TestComputeDiffConverged(t *testing.T) {
	proposed := json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1","hostOrIp":"10.0.0.5"}}}`)
	existing := []json.RawMessage{
		json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1","hostOrIp":"10.0.0.5","dn":"uni/vmmp-VMware/dom-prod/ctrlr-vc1"}}}`),
	}

	sent, err := computeDiff("vmmCtrlrP", proposed, existing)
	require.NoError(t, err)
	assert.Nil(t, sent)
}

func TestComputeDiffMinimalDelta(t *testing.T) {
	proposed := json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1","hostOrIp":"10.0.0.6","descr":"primary"}}}`)
	existing := []json.RawMessage{
		json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1","hostOrIp":"10.0.0.5","descr":"primary"}}}`),
	}

	sent, err := computeDiff("vmmCtrlrP", proposed, existing)
	require.NoError(t, err)

	// Only the changed attribute is pushed.
	assert.Equal(t, "10.0.0.6", gjson.GetBytes(sent, "vmmCtrlrP.attributes.hostOrIp").String())
	assert.False(t, gjson.GetBytes(sent, "vmmCtrlrP.attributes.name").Exists())
	assert.False(t, gjson.GetBytes(sent, "vmmCtrlrP.attributes.descr").Exists())
}

func TestComputeDiffOmittedAttributeIgnored(t *testing.T) {
	// descr exists on the fabric but was not proposed; it must not be
	// cleared or re-sent.
	proposed := json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1"}}}`)
	existing := []json.RawMessage{
		json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1","descr":"left alone"}}}`),
	}

	sent, err := computeDiff("vmmCtrlrP", proposed, existing)
	require.NoError(t, err)
	assert.Nil(t, sent)
}

func TestComputeDiffChildren(t *testing.T) {
	proposed := json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1"},"children":[{"vmmRsAcc":{"attributes":{"tDn":"uni/vmmp-VMware/dom-prod/usracc-creds"}}}]}}`)

	t.Run("missing child is pushed", func(t *testing.T) {
		existing := []json.RawMessage{
			json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1"}}}`),
		}
		sent, err := computeDiff("vmmCtrlrP", proposed, existing)
		require.NoError(t, err)
		assert.Equal(t, "uni/vmmp-VMware/dom-prod/usracc-creds",
			gjson.GetBytes(sent, "vmmCtrlrP.children.0.vmmRsAcc.attributes.tDn").String())
	})

	t.Run("matching child is not re-pushed", func(t *testing.T) {
		existing := []json.RawMessage{
			json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1"},"children":[{"vmmRsAcc":{"attributes":{"tDn":"uni/vmmp-VMware/dom-prod/usracc-creds","rType":"mo"}}}]}}`),
		}
		sent, err := computeDiff("vmmCtrlrP", proposed, existing)
		require.NoError(t, err)
		assert.Nil(t, sent)
	})

	t.Run("child with different target is pushed", func(t *testing.T) {
		existing := []json.RawMessage{
			json.RawMessage(`{"vmmCtrlrP":{"attributes":{"name":"vc1"},"children":[{"vmmRsAcc":{"attributes":{"tDn":"uni/vmmp-VMware/dom-prod/usracc-old"}}}]}}`),
		}
		sent, err := computeDiff("vmmCtrlrP", proposed, existing)
		require.NoError(t, err)
		assert.Equal(t, "uni/vmmp-VMware/dom-prod/usracc-creds",
			gjson.GetBytes(sent, "vmmCtrlrP.children.0.vmmRsAcc.attributes.tDn").String())
	})
}

func TestBuildPayloadDropsNothingAndKeepsOrder(t *testing.T) {
	child, err := Child("vmmRsAcc", Attributes{"tDn": "uni/vmmp-VMware/dom-prod/usracc-creds"})
	require.NoError(t, err)

	payload, err := buildPayload("vmmCtrlrP", Attributes{
		"name":         "vc1",
		"hostOrIp":     "10.0.0.5",
		"rootContName": "dc1",
	}, []json.RawMessage{child})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"vmmCtrlrP": {
			"attributes": {"name": "vc1", "hostOrIp": "10.0.0.5", "rootContName": "dc1"},
			"children": [{"vmmRsAcc": {"attributes": {"tDn": "uni/vmmp-VMware/dom-prod/usracc-creds"}}}]
		}
	}`, string(payload))
}

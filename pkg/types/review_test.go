// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestStatsSummaryJSONEmptyIsSentinel(t *testing.T) {
	data, err := json.Marshal(StatsSummary{})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Len(t, fields, 8)
	for name, v := range fields {
		assert.Equal(t, Sentinel, v, "field %s", name)
	}

	var back StatsSummary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsEmpty())
}

func TestStatsSummaryJSONComputed(t *testing.T) {
	s := StatsSummary{Count: 2, Average: 6, Variance: 1, Highest: 7, Lowest: 5, Neutral: 1, Positive: 1}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(data), Sentinel)
	assert.Contains(t, string(data), `"positive_count":1`)

	var back StatsSummary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)
}

func TestStatsSummaryJSONRejectsMixed(t *testing.T) {
	var s StatsSummary
	assert.Error(t, json.Unmarshal([]byte(`{"count":"--","average":3}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"count":"--","average":"4"}`), &s))
}

func TestStatsSummaryYAML(t *testing.T) {
	data, err := yaml.Marshal(StatsSummary{})
	require.NoError(t, err)
	var fields map[string]string
	require.NoError(t, yaml.Unmarshal(data, &fields))
	assert.Len(t, fields, 8)
	for name, v := range fields {
		assert.Equal(t, Sentinel, v, "field %s", name)
	}

	data, err = yaml.Marshal(StatsSummary{Count: 1, Average: 8, Highest: 8, Lowest: 8, Positive: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), "average: 8")
	assert.Contains(t, string(data), "positive_count: 1")
}

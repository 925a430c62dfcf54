package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinlab/strategist/internal/config"
	"github.com/coinlab/strategist/internal/types"
)

func TestToJSONSchemaRiskParameters(t *testing.T) {
	doc, err := ToJSONSchema(types.RiskParameters{})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	props, ok := parsed["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "atr_multiple")
	assert.Contains(t, props, "initial_capital")
}

func TestToJSONSchemaConfig(t *testing.T) {
	doc, err := ToJSONSchema(config.Config{})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	props, ok := parsed["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "api")
	assert.Contains(t, props, "optimizer")
}

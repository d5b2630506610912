package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestExecuteUnknownTemplate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.Error(t, engine.Execute(&buf, "preview/missing.html", nil))

	var nilEngine *Engine
	require.Error(t, nilEngine.Execute(&buf, "preview/po.html", nil))
}

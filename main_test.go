package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGame(t *testing.T) {
	tb, err := loadGame("animate.toml", "")
	require.NoError(t, err)
	assert.Equal(t, "modulo", tb.ApplicationConfig.Animation)

	tb, err = loadGame("animate.toml", "cat")
	require.NoError(t, err)
	assert.Equal(t, "cat", tb.ApplicationConfig.Animation)
}

func TestLoadGameErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "100%d.toml")
	_, err := loadGame(missing, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "100%d.toml", "the message is not a format string")

	_, err = loadGame("animate.toml", "spirograph")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown animation "spirograph"`)
}

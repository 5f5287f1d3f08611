package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigRequiredFields(t *testing.T) {
	_, err := NewConfig(Config{ConfigPath: "weave.hcl"})
	assert.ErrorContains(t, err, "InputPath")

	_, err = NewConfig(Config{InputPath: "app.wvi"})
	assert.ErrorContains(t, err, "ConfigPath")
}

func TestNewConfigDerivesOutputPath(t *testing.T) {
	cfg, err := NewConfig(Config{InputPath: "dist/app.wvi", ConfigPath: "weave.hcl"})
	require.NoError(t, err)
	assert.Equal(t, "dist/app.weaved.wvi", cfg.OutputPath)

	cfg, err = NewConfig(Config{InputPath: "dist/app", ConfigPath: "weave.hcl"})
	require.NoError(t, err)
	assert.Equal(t, "dist/app.weaved", cfg.OutputPath)
}

func TestNewConfigKeepsExplicitOutputPath(t *testing.T) {
	cfg, err := NewConfig(Config{InputPath: "app.wvi", OutputPath: "out/app.wvi", ConfigPath: "weave.hcl"})
	require.NoError(t, err)
	assert.Equal(t, "out/app.wvi", cfg.OutputPath)
}

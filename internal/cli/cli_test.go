package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullFlags(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{
		"-input", "app.wvi",
		"-output", "out.wvi",
		"-config", "weave.hcl",
		"-plugins", "plugins/",
		"-log-format", "text",
		"-log-level", "debug",
	}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "app.wvi", cfg.InputPath)
	assert.Equal(t, "out.wvi", cfg.OutputPath)
	assert.Equal(t, "weave.hcl", cfg.ConfigPath)
	assert.Equal(t, "plugins/", cfg.PluginsPath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParsePositionalInput(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-config", "weave.hcl", "app.wvi"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "app.wvi", cfg.InputPath)
}

func TestParseShorthandInput(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-i", "app.wvi", "-config", "weave.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "app.wvi", cfg.InputPath)
}

func TestParseDefaults(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-input", "app.wvi", "-config", "weave.hcl"}, &out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "app.weaved.wvi", cfg.OutputPath)
}

func TestParseNoInputPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseMissingConfig(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-input", "app.wvi"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "-config")
}

func TestParseInvalidLogFormat(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-input", "a.wvi", "-config", "c.hcl", "-log-format", "xml"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "log-format")
}

func TestParseInvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-input", "a.wvi", "-config", "c.hcl", "-log-level", "loud"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "log-level")
}

func TestParseUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"-bogus"}, &out)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParseHelp(t *testing.T) {
	var out bytes.Buffer
	cfg, exit, err := Parse([]string{"-h"}, &out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
}

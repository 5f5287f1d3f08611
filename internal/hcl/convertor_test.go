package hcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/weavergo/internal/config"
)

type guardConfig struct {
	Mode    string `weave:"mode"`
	Handler string `weave:"handler"`
	Marker  string `weave:"marker,optional"`
	Retries int    `weave:"retries,optional"`

	internal string // untagged, never touched
}

func TestDecodePropertiesPopulatesTaggedFields(t *testing.T) {
	props := config.NewProperties(
		config.Property{Name: "mode", Value: cty.StringVal("static")},
		config.Property{Name: "handler", Value: cty.StringVal("Guard.RequireNotNull")},
		config.Property{Name: "retries", Value: cty.NumberIntVal(3)},
	)

	var cfg guardConfig
	err := NewConverter().DecodeProperties(testContext(), &cfg, "NullCheckInjector", props)
	require.NoError(t, err)

	assert.Equal(t, "static", cfg.Mode)
	assert.Equal(t, "Guard.RequireNotNull", cfg.Handler)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, "", cfg.Marker, "optional property stays at its zero value")
	assert.Equal(t, "", cfg.internal)
}

func TestDecodePropertiesMissingRequired(t *testing.T) {
	props := config.NewProperties(
		config.Property{Name: "mode", Value: cty.StringVal("static")},
	)

	var cfg guardConfig
	err := NewConverter().DecodeProperties(testContext(), &cfg, "NullCheckInjector", props)

	var missing *config.MissingPropertyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "NullCheckInjector", missing.Processor)
	assert.Equal(t, "handler", missing.Property)
}

func TestDecodePropertiesInvalidValue(t *testing.T) {
	props := config.NewProperties(
		config.Property{Name: "mode", Value: cty.StringVal("static")},
		config.Property{Name: "handler", Value: cty.StringVal("h")},
		config.Property{Name: "retries", Value: cty.StringVal("many")},
	)

	var cfg guardConfig
	err := NewConverter().DecodeProperties(testContext(), &cfg, "NullCheckInjector", props)

	var invalid *config.InvalidPropertyValueError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "retries", invalid.Property)
}

func TestDecodePropertiesConvertsCompatibleTypes(t *testing.T) {
	// HCL numbers decode into string fields via cty conversion.
	props := config.NewProperties(
		config.Property{Name: "mode", Value: cty.StringVal("static")},
		config.Property{Name: "handler", Value: cty.NumberIntVal(42)},
	)

	var cfg guardConfig
	err := NewConverter().DecodeProperties(testContext(), &cfg, "NullCheckInjector", props)
	require.NoError(t, err)
	assert.Equal(t, "42", cfg.Handler)
}

func TestDecodePropertiesRejectsNonPointerTarget(t *testing.T) {
	err := NewConverter().DecodeProperties(testContext(), guardConfig{}, "X", config.NewProperties())
	assert.ErrorContains(t, err, "must be a non-nil pointer")
}

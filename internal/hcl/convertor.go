package hcl

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/weavergo/internal/config"
	"github.com/vk/weavergo/internal/ctxlog"
)

// Converter is the HCL-specific implementation of config.Converter.
// Fields of the target struct opt in via `weave:"name"` tags; a
// `,optional` suffix makes the property optional.
type Converter struct{}

// NewConverter creates a new property-bag converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeProperties populates the target struct from the property bag
// using reflection and cty type conversion.
func (c *Converter) DecodeProperties(ctx context.Context, target any, processor string, props *config.Properties) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding property bag.", "processor", processor, "properties", props.Len())

	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() {
		return fmt.Errorf("configuration target must be a non-nil pointer, got %T", target)
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		tag := field.Tag.Get("weave")
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		name := parts[0]
		optional := len(parts) > 1 && parts[1] == "optional"

		val, provided := props.Get(name)
		if !provided {
			if optional {
				continue
			}
			return &config.MissingPropertyError{Processor: processor, Property: name}
		}

		if err := c.decode(val, fieldVal.Addr().Interface()); err != nil {
			return &config.InvalidPropertyValueError{Processor: processor, Property: name, Err: err}
		}
	}
	return nil
}

// decode converts and assigns a cty.Value into a Go pointer.
func (c *Converter) decode(val cty.Value, goVal any) error {
	impliedType, err := gocty.ImpliedType(reflect.ValueOf(goVal).Elem().Interface())
	if err != nil {
		return gocty.FromCtyValue(val, goVal)
	}
	converted, err := convert.Convert(val, impliedType)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(converted, goVal)
}

package config

import "strconv"

// MissingPropertyError is returned when a component configuration
// requires a property the processor definition does not carry.
type MissingPropertyError struct {
	Processor string
	Property  string
}

func (e *MissingPropertyError) Error() string {
	return "processor " + strconv.Quote(e.Processor) + ": missing required property " + strconv.Quote(e.Property)
}

// InvalidPropertyValueError is returned when a property value cannot
// be converted to the configuration field's type, or fails the
// configuration's own validation.
type InvalidPropertyValueError struct {
	Processor string
	Property  string
	Err       error
}

func (e *InvalidPropertyValueError) Error() string {
	return "processor " + strconv.Quote(e.Processor) + ": invalid value for property " + strconv.Quote(e.Property) + ": " + e.Err.Error()
}

func (e *InvalidPropertyValueError) Unwrap() error { return e.Err }

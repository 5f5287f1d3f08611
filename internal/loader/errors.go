package loader

import (
	"fmt"
	"strconv"
)

// UnresolvedAliasError is returned when a type alias referenced by a
// processor definition or property is absent from the alias table.
type UnresolvedAliasError struct {
	Alias string
}

func (e *UnresolvedAliasError) Error() string {
	return "type alias " + strconv.Quote(e.Alias) + " is not declared in the configuration"
}

// TypeNotFoundError is returned when an alias resolves to a plugin
// that does not declare the named type.
type TypeNotFoundError struct {
	Plugin   string
	TypeName string
}

func (e *TypeNotFoundError) Error() string {
	return "plugin " + strconv.Quote(e.Plugin) + " does not declare type " + strconv.Quote(e.TypeName)
}

// PluginNotFoundError is returned when a plugin alias is undeclared,
// or its binary could not be loaded.
type PluginNotFoundError struct {
	Alias string
	Err   error
}

func (e *PluginNotFoundError) Error() string {
	if e.Err != nil {
		return "plugin " + strconv.Quote(e.Alias) + " could not be loaded: " + e.Err.Error()
	}
	return "plugin " + strconv.Quote(e.Alias) + " is not declared in the configuration"
}

func (e *PluginNotFoundError) Unwrap() error { return e.Err }

// ComponentNotFoundError is returned when a plugin does not register a
// component under the requested name.
type ComponentNotFoundError struct {
	Plugin    string
	Component string
}

func (e *ComponentNotFoundError) Error() string {
	return "plugin " + strconv.Quote(e.Plugin) + " does not provide component " + strconv.Quote(e.Component)
}

// GenericArityMismatchError is returned when a processor definition
// supplies a different number of type-argument aliases than the
// component declares type parameters.
type GenericArityMismatchError struct {
	Component string
	Want      int
	Got       int
}

func (e *GenericArityMismatchError) Error() string {
	return fmt.Sprintf("component %q declares %d generic type parameter(s) but the definition supplies %d", e.Component, e.Want, e.Got)
}

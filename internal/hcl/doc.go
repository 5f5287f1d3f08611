// Package hcl implements the config.Loader and config.Converter
// interfaces for HCL configuration files: parsing, translation into
// the format-agnostic model, and reflection-based binding of property
// bags onto component configuration structs.
package hcl

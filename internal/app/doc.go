// Package app wires one rewrite run together: it configures an
// isolated logger, loads the configuration model, populates the plugin
// catalog, builds the processor pipelines, and drives the rewriter.
package app

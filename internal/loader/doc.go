// Package loader turns declarative processor definitions into
// instantiated processors. It resolves plugin aliases, loads each
// plugin's structural image and runtime component set at most once per
// run, resolves type aliases for generic specialization, binds
// property bags onto component configurations, and produces the five
// ordered pipelines the rewriter executes.
//
// While the loading phase runs, an image resolver is installed on the
// shared image cache so that a plugin's own dependencies are located
// relative to the running program's directory; the resolver is removed
// on every exit path and never outlives the loading phase.
package loader

// Package rewriter orchestrates one rewrite run: it loads the input
// image, runs the five processor pipelines over the structure in a
// fixed level order, and serializes the mutated image atomically to
// the output path. Any unhandled failure aborts the run before output
// is written.
package rewriter

// Package inject implements the code-injection engine: deciding
// whether a call should be spliced into a method body, resolving the
// callee across images, computing call arguments, and performing the
// instruction-stream edit.
//
// Edits go through the image package's identity-based instruction
// stream, so existing branch targets and exception regions stay valid
// across insertions. Every edit is followed by a stack-balance
// verification; a violation is an image.EditError and must abort the
// run rather than produce a corrupt image.
package inject

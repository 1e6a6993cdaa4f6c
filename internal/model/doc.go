// Package model wraps the recurrent speech-probability model used by the
// pipeline: a single opaque inference session that owns its hidden state
// tensor exclusively and threads it forward one frame at a time.
package model

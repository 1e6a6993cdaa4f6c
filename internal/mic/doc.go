// Package mic launches and supervises the external microphone-capture
// child process that feeds raw PCM bytes into the pipeline.
package mic

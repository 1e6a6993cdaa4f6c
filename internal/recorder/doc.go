// Package recorder accumulates the frames of one speech segment at a time
// and flushes them to a WAV file atomically on the filesystem.
package recorder

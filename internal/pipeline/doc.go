// Package pipeline runs the single cooperative task that threads the byte
// stream from the microphone through framing, inference, smoothing, the
// hysteresis state machine, and segment recording, in that order.
package pipeline

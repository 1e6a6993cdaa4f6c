// Package smoother averages raw per-frame speech probabilities over a
// trailing window to suppress spurious transitions before they reach the
// hysteresis state machine.
package smoother

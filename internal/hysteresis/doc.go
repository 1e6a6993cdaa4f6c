// Package hysteresis implements the Idle/Recording speech boundary state
// machine: dual thresholds plus consecutive-frame counters debounce the
// smoothed probability stream into speech-start and speech-end edges.
package hysteresis

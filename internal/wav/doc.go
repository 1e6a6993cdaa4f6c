// Package wav encodes and decodes canonical 44-byte-header PCM WAV files:
// mono, 16-bit signed little-endian samples at a fixed sample rate.
package wav

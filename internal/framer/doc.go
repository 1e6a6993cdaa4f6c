// Package framer turns an arbitrary-sized byte stream of little-endian
// signed 16-bit PCM into a lazy sequence of exact 512-sample frames,
// carrying at most one odd trailing byte forward between pushes.
package framer

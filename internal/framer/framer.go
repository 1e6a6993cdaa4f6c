package framer

import "encoding/binary"

// FrameSamples is the fixed analysis frame length required by the model
// runner: 512 samples, ~32ms at 16kHz.
const FrameSamples = 512

// initialRingFrames is the starting capacity of the internal queue, in
// multiples of FrameSamples. It grows (doubling) whenever a single Push
// brings in more samples than the free space left, so samples are never
// dropped; growth itself is not logged.
const initialRingFrames = 8

// warnMultiple is the PendingSamples threshold (in frames) above which
// Backlogged reports true.
const warnMultiple = 32

// Framer accumulates a byte stream into exact FrameSamples-length frames.
// It is not safe for concurrent use; callers confine it to the single
// pipeline task.
type Framer struct {
	leftover    [1]byte
	hasLeftover bool

	ring []int16 // circular buffer of unframed samples
	head int     // index of the oldest unframed sample
	size int     // number of valid samples currently queued
}

// New creates an empty Framer.
func New() *Framer {
	return &Framer{
		ring: make([]int16, initialRingFrames*FrameSamples),
	}
}

// Push appends a chunk of raw bytes to the stream and returns every
// complete 512-sample frame that became available. Each returned frame is
// a freshly allocated, independently owned slice — safe to retain, though
// the Segment Recorder copies it again regardless.
//
// Empty chunks are valid and yield no frames. A trailing odd byte is
// carried forward to the next Push call.
func (f *Framer) Push(chunk []byte) [][]int16 {
	if len(chunk) == 0 {
		return nil
	}

	data := chunk
	if f.hasLeftover {
		data = make([]byte, 0, len(chunk)+1)
		data = append(data, f.leftover[0])
		data = append(data, chunk...)
		f.hasLeftover = false
	}

	if len(data)%2 != 0 {
		f.leftover[0] = data[len(data)-1]
		f.hasLeftover = true
		data = data[:len(data)-1]
	}

	numSamples := len(data) / 2
	f.ensureCapacity(numSamples)

	for i := 0; i < numSamples; i++ {
		sample := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		f.ring[(f.head+f.size)%len(f.ring)] = sample
		f.size++
	}

	var frames [][]int16
	for f.size >= FrameSamples {
		frame := make([]int16, FrameSamples)
		for i := 0; i < FrameSamples; i++ {
			frame[i] = f.ring[(f.head+i)%len(f.ring)]
		}
		frames = append(frames, frame)
		f.head = (f.head + FrameSamples) % len(f.ring)
		f.size -= FrameSamples
	}

	return frames
}

// ensureCapacity grows the ring buffer (doubling) until it can hold size
// plus the currently-queued samples without wrapping over unconsumed data.
func (f *Framer) ensureCapacity(additional int) {
	for f.size+additional > len(f.ring) {
		grown := make([]int16, len(f.ring)*2)
		for i := 0; i < f.size; i++ {
			grown[i] = f.ring[(f.head+i)%len(f.ring)]
		}
		f.ring = grown
		f.head = 0
	}
}

// PendingSamples returns the number of samples currently queued but not yet
// framed. This is always < FrameSamples immediately after a Push call
// returns, because Push drains every complete frame before returning.
func (f *Framer) PendingSamples() int {
	return f.size
}

// Backlogged reports whether PendingSamples exceeds warnMultiple frames.
// Because Push drains every complete frame before returning, this is never
// true between Push calls; a consumer falling behind real time does not
// show up here.
func (f *Framer) Backlogged() bool {
	return f.size > warnMultiple*FrameSamples
}

// HasLeftoverByte reports whether an odd trailing byte is currently held
// over, used by tests asserting invariant 2.
func (f *Framer) HasLeftoverByte() bool {
	return f.hasLeftover
}

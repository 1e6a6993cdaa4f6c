package model

import "fmt"

// FakeRunner is a scripted Runner used by tests elsewhere in the module
// (pipeline, controller, server) that need a deterministic
// probability trace without loading a real model.
type FakeRunner struct {
	Probs    []float32
	pos      int
	resets   int
	closed   bool
	failFrom int // -1 disables; index at which Infer starts returning an error
}

// NewFakeRunner returns a Runner that yields probs in order, one per Infer
// call, then repeats the last value forever once exhausted.
func NewFakeRunner(probs []float32) *FakeRunner {
	return &FakeRunner{Probs: probs, failFrom: -1}
}

// FailFrom makes the runner return ErrInferenceFailed starting at the given
// call index (0-based), for exercising the pipeline's error path.
func (f *FakeRunner) FailFrom(idx int) {
	f.failFrom = idx
}

func (f *FakeRunner) Infer(frame []int16) (float32, error) {
	if len(frame) != frameSamples {
		return 0, fmt.Errorf("%w: expected %d samples, got %d", ErrInferenceFailed, frameSamples, len(frame))
	}
	if f.failFrom >= 0 && f.pos >= f.failFrom {
		f.pos++
		return 0, ErrInferenceFailed
	}
	if len(f.Probs) == 0 {
		f.pos++
		return 0, nil
	}
	idx := f.pos
	if idx >= len(f.Probs) {
		idx = len(f.Probs) - 1
	}
	f.pos++
	return f.Probs[idx], nil
}

func (f *FakeRunner) Reset() {
	f.resets++
	f.pos = 0
}

func (f *FakeRunner) Close() error {
	f.closed = true
	return nil
}

// Resets reports how many times Reset has been called, for assertions.
func (f *FakeRunner) Resets() int { return f.resets }

// Closed reports whether Close has been called, for assertions.
func (f *FakeRunner) Closed() bool { return f.closed }

// CallCount reports how many Infer calls have been made since the last
// Reset.
func (f *FakeRunner) CallCount() int { return f.pos }

package model

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrModelUnavailable is returned when the model artifact cannot be loaded
// or the inference session cannot be created.
var ErrModelUnavailable = errors.New("model: unavailable")

// ErrInferenceFailed is returned when a previously-loaded session fails to
// run on a specific frame.
var ErrInferenceFailed = errors.New("model: inference failed")

const frameSamples = 512

// Runner exposes one operation: feed a frame, get back a speech
// probability. A Runner owns its hidden state exclusively; nothing outside
// it ever reads or writes the tensor directly.
type Runner interface {
	Infer(frame []int16) (float32, error)
	Reset()
	Close() error
}

// Session is a Runner backed by an ONNX Runtime inference session. It is
// not safe for concurrent use; callers confine it to a single pipeline
// task.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession

	inputAudio *ort.Tensor[float32]
	inputRate  *ort.Tensor[int64]
	inputState *ort.Tensor[float32]

	outputProb  *ort.Tensor[float32]
	outputState *ort.Tensor[float32]

	sampleRate int64
}

// NewSession loads the ONNX model at modelPath and initializes a zeroed
// hidden state.
func NewSession(modelPath string, sampleRate int) (*Session, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: initialize onnxruntime: %v", ErrModelUnavailable, err)
		}
	}

	s := &Session{sampleRate: int64(sampleRate)}

	audioTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, frameSamples))
	if err != nil {
		return nil, fmt.Errorf("%w: allocate audio tensor: %v", ErrModelUnavailable, err)
	}
	s.inputAudio = audioTensor

	rateTensor, err := ort.NewTensor(ort.NewShape(1), []int64{s.sampleRate})
	if err != nil {
		s.inputAudio.Destroy()
		return nil, fmt.Errorf("%w: allocate rate tensor: %v", ErrModelUnavailable, err)
	}
	s.inputRate = rateTensor

	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128))
	if err != nil {
		s.inputAudio.Destroy()
		s.inputRate.Destroy()
		return nil, fmt.Errorf("%w: allocate state tensor: %v", ErrModelUnavailable, err)
	}
	s.inputState = stateTensor

	probTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		s.destroyInputs()
		return nil, fmt.Errorf("%w: allocate output tensor: %v", ErrModelUnavailable, err)
	}
	s.outputProb = probTensor

	outStateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128))
	if err != nil {
		s.destroyInputs()
		s.outputProb.Destroy()
		return nil, fmt.Errorf("%w: allocate output state tensor: %v", ErrModelUnavailable, err)
	}
	s.outputState = outStateTensor

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input", "sr", "state"},
		[]string{"output", "stateN"},
		[]ort.Value{s.inputAudio, s.inputRate, s.inputState},
		[]ort.Value{s.outputProb, s.outputState},
		nil,
	)
	if err != nil {
		s.destroyInputs()
		s.outputProb.Destroy()
		s.outputState.Destroy()
		return nil, fmt.Errorf("%w: create session for %s: %v", ErrModelUnavailable, modelPath, err)
	}
	s.session = session

	return s, nil
}

func (s *Session) destroyInputs() {
	s.inputAudio.Destroy()
	s.inputRate.Destroy()
	s.inputState.Destroy()
}

// Infer runs one forward pass: normalizes the frame to float32 in [-1, 1],
// runs the session, and replaces the hidden state with the model's output
// before returning the scalar speech probability.
func (s *Session) Infer(frame []int16) (float32, error) {
	if len(frame) != frameSamples {
		return 0, fmt.Errorf("%w: expected %d samples, got %d", ErrInferenceFailed, frameSamples, len(frame))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	audioData := s.inputAudio.GetData()
	for i, sample := range frame {
		audioData[i] = float32(sample) / 32768.0
	}

	if err := s.session.Run(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	prob := s.outputProb.GetData()[0]

	// The returned hidden state becomes the next call's input; no aliasing,
	// no shared ownership.
	copy(s.inputState.GetData(), s.outputState.GetData())

	return prob, nil
}

// Reset zeroes the hidden state, used at the start of a new run.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.inputState.GetData()
	for i := range data {
		data[i] = 0
	}
}

// Close releases the session and all tensors it holds.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Destroy()
	}
	s.destroyInputs()
	s.outputProb.Destroy()
	s.outputState.Destroy()
	return nil
}

package hysteresis

import "log/slog"

// State is one of the two stable states of the machine.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Recorder receives segment boundary and frame events from the state
// machine. Implementations must copy frame data they intend to keep; the
// slice passed to AppendFrame is only valid for the duration of the call.
// EndSegment reports the write failure, if any, of the segment it just
// closed.
type Recorder interface {
	BeginSegment()
	AppendFrame(frame []int16)
	EndSegment() error
}

// Config holds the thresholds and debounce counts that parameterize the
// machine.
type Config struct {
	SpeechThreshold       float64
	SilenceThreshold      float64
	RequiredSpeechFrames  int
	RequiredSilenceFrames int
}

// Machine evaluates one smoothed probability at a time against Config and
// drives a Recorder through speech-start/speech-end edges. It is not safe
// for concurrent use; callers confine it to a single pipeline task.
type Machine struct {
	cfg      Config
	recorder Recorder
	logger   *slog.Logger

	state      State
	speechRun  int
	silenceRun int
}

// New returns a Machine starting in Idle. The segment write failures logged
// against logger; it may be nil in tests that don't care about log output.
func New(cfg Config, recorder Recorder, logger *slog.Logger) *Machine {
	return &Machine{cfg: cfg, recorder: recorder, logger: logger}
}

// endSegment closes the current segment and logs a write failure, if any.
// Segment metrics are the recorder's own concern; this only satisfies the
// logging requirement on the one path that can see the error.
func (m *Machine) endSegment() {
	if err := m.recorder.EndSegment(); err != nil {
		if m.logger != nil {
			m.logger.Error("segment write failed", slog.String("error", err.Error()))
		}
	}
}

// State reports the machine's current state.
func (m *Machine) State() State {
	return m.state
}

// Evaluate feeds one smoothed probability, paired with the raw frame it
// was computed from, through the per-frame hysteresis logic.
func (m *Machine) Evaluate(smoothed float32, frame []int16) {
	switch m.state {
	case Idle:
		m.evaluateIdle(smoothed, frame)
	case Recording:
		m.evaluateRecording(smoothed, frame)
	}
}

func (m *Machine) evaluateIdle(smoothed float32, frame []int16) {
	if float64(smoothed) > m.cfg.SpeechThreshold {
		m.speechRun++
		if m.speechRun >= m.cfg.RequiredSpeechFrames {
			m.speechRun = 0
			m.state = Recording
			m.recorder.BeginSegment()
			// The frame that confirmed the transition is the first frame of
			// the segment; it was evaluated in Idle, so Recording's
			// every-frame append does not see it on its own.
			m.recorder.AppendFrame(frame)
		}
		return
	}
	m.speechRun = 0
}

func (m *Machine) evaluateRecording(smoothed float32, frame []int16) {
	m.recorder.AppendFrame(frame)

	if float64(smoothed) < m.cfg.SilenceThreshold {
		m.silenceRun++
		if m.silenceRun >= m.cfg.RequiredSilenceFrames {
			m.silenceRun = 0
			m.state = Idle
			m.endSegment()
		}
		return
	}
	m.silenceRun = 0
}

// Flush invokes EndSegment exactly once if a segment is in progress,
// guaranteeing in-progress speech is not lost on shutdown.
func (m *Machine) Flush() {
	if m.state == Recording {
		m.state = Idle
		m.speechRun = 0
		m.silenceRun = 0
		m.endSegment()
	}
}

// Reset returns the machine to Idle with both counters zeroed, without
// notifying the recorder. Used when starting a fresh run.
func (m *Machine) Reset() {
	m.state = Idle
	m.speechRun = 0
	m.silenceRun = 0
}

package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/skypro1111/vad-segmenter/internal/metrics"
	"github.com/skypro1111/vad-segmenter/internal/wav"
)

// ErrIOFailed is returned when a segment WAV could not be written. The
// specific segment is lost but the pipeline continues.
var ErrIOFailed = errors.New("recorder: io failed")

// nowFunc is overridable in tests to pin the timestamp used in filenames.
var nowFunc = time.Now

// Recorder buffers the frames of one in-progress segment and writes it to
// outDir as a canonical WAV file on EndSegment. It exclusively owns its
// buffers; callers must not retain references to appended frames. Not
// safe for concurrent use; confined to the single pipeline task.
type Recorder struct {
	outDir     string
	sampleRate int
	metrics    *metrics.Metrics

	recording bool
	buf       []int16

	index           int64
	segmentsSaved   int64
	lastSegmentPath atomic.Value // string
}

// New returns a Recorder that writes WAV files into outDir at sampleRate. m
// may be nil, in which case segment metrics are not recorded.
func New(outDir string, sampleRate int, m *metrics.Metrics) *Recorder {
	r := &Recorder{outDir: outDir, sampleRate: sampleRate, metrics: m}
	r.lastSegmentPath.Store("")
	return r
}

// BeginSegment allocates an empty frame buffer. No-op if already recording.
func (r *Recorder) BeginSegment() {
	if r.recording {
		return
	}
	r.recording = true
	r.buf = r.buf[:0]
}

// AppendFrame copies frame's samples into the buffer. No-op if not
// recording.
func (r *Recorder) AppendFrame(frame []int16) {
	if !r.recording {
		return
	}
	r.buf = append(r.buf, frame...)
}

// EndSegment encodes the buffered samples as WAV and writes them to
// outDir, then discards the buffer. No-op if not recording. I/O failures
// are logged by the caller via the returned error; the segment is lost but
// the recorder remains usable for the next segment.
func (r *Recorder) EndSegment() error {
	if !r.recording {
		return nil
	}
	r.recording = false
	samples := r.buf
	r.buf = nil

	if len(samples) == 0 {
		// Asserted impossible given framing: a segment always contains at
		// least the frame that confirmed Recording.
		return nil
	}

	r.index++
	path, err := r.write(samples, r.index)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordSegmentIOError()
		}
		return fmt.Errorf("%w: %v", ErrIOFailed, err)
	}

	atomic.AddInt64(&r.segmentsSaved, 1)
	r.lastSegmentPath.Store(path)
	if r.metrics != nil {
		r.metrics.RecordSegmentSaved(float64(len(samples)) / float64(r.sampleRate))
	}
	return nil
}

func (r *Recorder) write(samples []int16, index int64) (string, error) {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}

	data, err := wav.Encode(samples, r.sampleRate)
	if err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}

	name := fmt.Sprintf("segment_%s_%d.wav", nowFunc().Format("2006-01-02_15-04-05"), index)
	finalPath := filepath.Join(r.outDir, name)

	tmp, err := os.CreateTemp(r.outDir, ".tmp-segment-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename temp file to %s: %w", finalPath, err)
	}

	return finalPath, nil
}

// IsRecording reports whether a segment is currently in progress.
func (r *Recorder) IsRecording() bool {
	return r.recording
}

// SegmentsSaved returns the number of segments successfully written so far.
func (r *Recorder) SegmentsSaved() int64 {
	return atomic.LoadInt64(&r.segmentsSaved)
}

// LastSegmentPath returns the path of the most recently written segment,
// or "" if none has been written yet.
func (r *Recorder) LastSegmentPath() string {
	return r.lastSegmentPath.Load().(string)
}

// Reset clears counters and any in-progress buffer, used at the start of a
// new run. SegmentsSaved and index restart from zero.
func (r *Recorder) Reset() {
	r.recording = false
	r.buf = nil
	r.index = 0
	atomic.StoreInt64(&r.segmentsSaved, 0)
	r.lastSegmentPath.Store("")
}

// ResetIndex restarts the per-run filename counter at zero, so the first
// segment of a fresh run is numbered 1. SegmentsSaved and LastSegmentPath
// are cumulative across runs within a process and are left untouched.
func (r *Recorder) ResetIndex() {
	r.index = 0
}

package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skypro1111/vad-segmenter/internal/wav"
)

func frameOf(v int16) []int16 {
	f := make([]int16, 512)
	for i := range f {
		f[i] = v
	}
	return f
}

func TestBeginAppendEndWritesWAVFile(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 16000, nil)

	r.BeginSegment()
	r.AppendFrame(frameOf(1))
	r.AppendFrame(frameOf(2))
	if err := r.EndSegment(); err != nil {
		t.Fatalf("EndSegment failed: %v", err)
	}

	if r.SegmentsSaved() != 1 {
		t.Fatalf("expected 1 segment saved, got %d", r.SegmentsSaved())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 file in out dir, got %d", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("failed to read written segment: %v", err)
	}
	samples, rate, err := wav.Decode(data)
	if err != nil {
		t.Fatalf("failed to decode written segment: %v", err)
	}
	if rate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", rate)
	}
	if len(samples) != 1024 {
		t.Errorf("expected 1024 samples (2 frames), got %d", len(samples))
	}

	if r.LastSegmentPath() == "" {
		t.Error("expected LastSegmentPath to be set")
	}
}

func TestAppendFrameCopiesData(t *testing.T) {
	// Ownership: mutating the frame after AppendFrame must not
	// affect the buffered segment.
	dir := t.TempDir()
	r := New(dir, 16000, nil)

	frame := frameOf(5)
	r.BeginSegment()
	r.AppendFrame(frame)
	for i := range frame {
		frame[i] = 999
	}
	if err := r.EndSegment(); err != nil {
		t.Fatalf("EndSegment failed: %v", err)
	}

	data, _ := os.ReadFile(r.LastSegmentPath())
	samples, _, _ := wav.Decode(data)
	for i, s := range samples {
		if s != 5 {
			t.Fatalf("sample %d was mutated through retained frame reference: got %d, want 5", i, s)
		}
	}
}

func TestBeginSegmentIsNoOpWhenAlreadyRecording(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 16000, nil)

	r.BeginSegment()
	r.AppendFrame(frameOf(1))
	r.BeginSegment() // must not discard the buffer already accumulated
	r.AppendFrame(frameOf(2))
	if err := r.EndSegment(); err != nil {
		t.Fatalf("EndSegment failed: %v", err)
	}

	data, _ := os.ReadFile(r.LastSegmentPath())
	samples, _, _ := wav.Decode(data)
	if len(samples) != 1024 {
		t.Fatalf("expected both frames retained across redundant BeginSegment, got %d samples", len(samples))
	}
}

func TestEndSegmentIsNoOpWhenNotRecording(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 16000, nil)

	if err := r.EndSegment(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if r.SegmentsSaved() != 0 {
		t.Fatalf("expected no segments saved, got %d", r.SegmentsSaved())
	}
}

func TestAppendFrameIsNoOpWhenNotRecording(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 16000, nil)
	r.AppendFrame(frameOf(1)) // must be silently ignored
	r.BeginSegment()
	if err := r.EndSegment(); err != nil {
		t.Fatalf("EndSegment failed: %v", err)
	}
	if r.SegmentsSaved() != 0 {
		t.Fatalf("expected the stray pre-BeginSegment frame to produce no output, got %d segments", r.SegmentsSaved())
	}
}

func TestFilenameContainsMonotonicIndex(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 16000, nil)
	nowFunc = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	defer func() { nowFunc = time.Now }()

	r.BeginSegment()
	r.AppendFrame(frameOf(1))
	r.EndSegment()
	first := r.LastSegmentPath()

	r.BeginSegment()
	r.AppendFrame(frameOf(2))
	r.EndSegment()
	second := r.LastSegmentPath()

	if filepath.Base(first) == filepath.Base(second) {
		t.Fatal("expected distinct filenames for successive segments")
	}
	wantFirst := "segment_2024-01-02_03-04-05_1.wav"
	wantSecond := "segment_2024-01-02_03-04-05_2.wav"
	if filepath.Base(first) != wantFirst {
		t.Errorf("got filename %q, want %q", filepath.Base(first), wantFirst)
	}
	if filepath.Base(second) != wantSecond {
		t.Errorf("got filename %q, want %q", filepath.Base(second), wantSecond)
	}
}

func TestResetIndexRestartsFilenameCounterWithoutTouchingCumulativeCounters(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 16000, nil)

	r.BeginSegment()
	r.AppendFrame(frameOf(1))
	r.EndSegment()

	r.ResetIndex()
	if r.SegmentsSaved() != 1 {
		t.Fatalf("expected SegmentsSaved to remain cumulative across runs, got %d", r.SegmentsSaved())
	}
	firstRunPath := r.LastSegmentPath()
	if firstRunPath == "" {
		t.Fatal("expected LastSegmentPath to remain set after ResetIndex")
	}

	r.BeginSegment()
	r.AppendFrame(frameOf(2))
	r.EndSegment()
	suffix := "_1.wav"
	if got := filepath.Base(r.LastSegmentPath()); len(got) < len(suffix) || got[len(got)-len(suffix):] != suffix {
		t.Fatalf("expected the new run's first segment to restart its index at 1, got %q", r.LastSegmentPath())
	}
	if r.SegmentsSaved() != 2 {
		t.Fatalf("expected SegmentsSaved to keep accumulating across runs, got %d", r.SegmentsSaved())
	}
}

func TestResetClearsCountersAndBuffer(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, 16000, nil)

	r.BeginSegment()
	r.AppendFrame(frameOf(1))
	r.EndSegment()

	r.Reset()
	if r.SegmentsSaved() != 0 {
		t.Fatalf("expected SegmentsSaved reset to 0, got %d", r.SegmentsSaved())
	}
	if r.LastSegmentPath() != "" {
		t.Fatalf("expected LastSegmentPath reset to empty, got %q", r.LastSegmentPath())
	}
	if r.IsRecording() {
		t.Fatal("expected IsRecording false after Reset")
	}

	r.BeginSegment()
	r.AppendFrame(frameOf(9))
	r.EndSegment()
	suffix := "_1.wav"
	if got := filepath.Base(r.LastSegmentPath()); len(got) < len(suffix) || got[len(got)-len(suffix):] != suffix {
		t.Fatalf("expected segment index to restart at 1 after Reset, got %q", r.LastSegmentPath())
	}
}

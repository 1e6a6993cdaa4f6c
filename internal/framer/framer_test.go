package framer

import (
	"encoding/binary"
	"math/rand"
	"testing"
)

func int16sToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestPushEmptyChunkYieldsNoFrames(t *testing.T) {
	f := New()
	frames := f.Push(nil)
	if len(frames) != 0 {
		t.Fatalf("expected no frames from empty chunk, got %d", len(frames))
	}
	frames = f.Push([]byte{})
	if len(frames) != 0 {
		t.Fatalf("expected no frames from empty chunk, got %d", len(frames))
	}
}

func TestFramingCompleteness(t *testing.T) {
	// number of frames == floor(L / 2 / 512).
	samples := make([]int16, 512*7+300) // 7 complete frames plus a partial one
	for i := range samples {
		samples[i] = int16(i)
	}
	data := int16sToBytes(samples)

	f := New()
	frames := f.Push(data)

	wantFrames := len(data) / 2 / FrameSamples
	if len(frames) != wantFrames {
		t.Fatalf("expected %d frames, got %d", wantFrames, len(frames))
	}

	for fi, frame := range frames {
		for si, sample := range frame {
			want := samples[fi*FrameSamples+si]
			if sample != want {
				t.Fatalf("frame %d sample %d: got %d, want %d", fi, si, sample, want)
			}
		}
	}
}

func TestOddBytePreservedAcrossChunks(t *testing.T) {
	// splitting a stream at any point must produce the
	// same frames as feeding it whole.
	samples := make([]int16, 1024)
	for i := range samples {
		samples[i] = int16(i * 3)
	}
	whole := int16sToBytes(samples)

	whole_framer := New()
	wantFrames := whole_framer.Push(whole)

	for split := 0; split <= len(whole); split++ {
		f := New()
		got := f.Push(whole[:split])
		got = append(got, f.Push(whole[split:])...)

		if len(got) != len(wantFrames) {
			t.Fatalf("split at %d: got %d frames, want %d", split, len(got), len(wantFrames))
		}
		for i := range got {
			for j := range got[i] {
				if got[i][j] != wantFrames[i][j] {
					t.Fatalf("split at %d: frame %d sample %d mismatch: got %d want %d",
						split, i, j, got[i][j], wantFrames[i][j])
				}
			}
		}
	}
}

func TestSplitChunkScenarioS6(t *testing.T) {
	// feed 1023 bytes then 1 byte; expect exactly one frame and
	// an empty queue afterward.
	data := make([]byte, 1024)
	rand.New(rand.NewSource(1)).Read(data)

	f := New()
	frames := f.Push(data[:1023])
	if len(frames) != 0 {
		t.Fatalf("expected no frames after 1023 bytes, got %d", len(frames))
	}
	if !f.HasLeftoverByte() {
		t.Fatal("expected a leftover byte after an odd-length push")
	}

	frames = f.Push(data[1023:])
	if len(frames) != 1 {
		t.Fatalf("expected exactly one frame after the final byte, got %d", len(frames))
	}
	if f.PendingSamples() != 0 {
		t.Fatalf("expected empty queue after exactly 512 samples consumed, got %d pending", f.PendingSamples())
	}
	if f.HasLeftoverByte() {
		t.Fatal("expected no leftover byte once 1024 bytes have all paired up")
	}
}

func TestPartialFrameAtEndOfStreamIsDiscarded(t *testing.T) {
	samples := make([]int16, FrameSamples+100)
	data := int16sToBytes(samples)

	f := New()
	frames := f.Push(data)
	if len(frames) != 1 {
		t.Fatalf("expected exactly 1 full frame, got %d", len(frames))
	}
	if f.PendingSamples() != 100 {
		t.Fatalf("expected 100 leftover samples held for the next frame, got %d", f.PendingSamples())
	}
}

func TestBacklogGrowsRingWithoutDroppingSamples(t *testing.T) {
	f := New()
	// Push far more than the initial ring capacity in one call, without
	// draining in between, to force growth; samples must never be dropped.
	total := initialRingFrames*FrameSamples*3 + 17
	samples := make([]int16, total)
	for i := range samples {
		samples[i] = int16(i % 30000)
	}

	frames := f.Push(int16sToBytes(samples))

	wantFrames := total / FrameSamples
	if len(frames) != wantFrames {
		t.Fatalf("expected %d frames after backlog growth, got %d", wantFrames, len(frames))
	}
	for fi, frame := range frames {
		for si, s := range frame {
			want := samples[fi*FrameSamples+si]
			if s != want {
				t.Fatalf("frame %d sample %d corrupted across ring growth: got %d want %d", fi, si, s, want)
			}
		}
	}
}

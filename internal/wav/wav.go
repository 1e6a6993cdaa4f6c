package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the length in bytes of the canonical WAV header this package
// produces and expects: RIFF/WAVE, a 16-byte fmt chunk, and a data chunk
// header, with no extra chunks.
const HeaderSize = 44

// header mirrors the canonical 44-byte PCM WAV layout.
type header struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// Encode serializes mono 16-bit PCM samples into a canonical WAV file at the
// given sample rate. An empty segment is rejected; the recorder never calls
// this with zero frames.
func Encode(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("wav: cannot encode zero samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wav: sample rate must be positive, got %d", sampleRate)
	}

	const numChannels = uint16(1)
	const bitsPerSample = uint16(16)
	dataSize := uint32(len(samples) * 2)

	h := header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("wav: write samples: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a canonical WAV file back into its samples and sample rate.
// Used only by tests to round-trip Encode's output.
func Decode(data []byte) ([]int16, int, error) {
	if err := Validate(data); err != nil {
		return nil, 0, err
	}

	var h header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, 0, fmt.Errorf("wav: read header: %w", err)
	}
	if h.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("wav: unsupported audio format %d", h.AudioFormat)
	}
	if h.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("wav: unsupported bit depth %d", h.BitsPerSample)
	}
	if h.NumChannels != 1 {
		return nil, 0, fmt.Errorf("wav: unsupported channel count %d", h.NumChannels)
	}

	numSamples := int(h.Subchunk2Size) / 2
	samples := make([]int16, numSamples)
	if err := binary.Read(bytes.NewReader(data[HeaderSize:]), binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("wav: read samples: %w", err)
	}
	return samples, int(h.SampleRate), nil
}

// Validate checks the RIFF/WAVE/fmt/data structure without decoding samples.
func Validate(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("wav: data too short, need at least %d bytes, got %d", HeaderSize, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("wav: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("wav: missing WAVE format")
	}
	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("wav: missing fmt chunk")
	}
	if string(data[36:40]) != "data" {
		return fmt.Errorf("wav: missing data chunk")
	}
	return nil
}

package tts

import (
	"context"
	"fmt"
	"math"
	"os"
	"unicode/utf8"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	mockSampleRate = 24000
	mockBitDepth   = 16
	beepSeconds    = 0.1
	// Rough speaking pace used to size the placeholder clip.
	charsPerSecond = 5.0
)

// speakerTones gives each debater a distinct pitch so mixed output is
// audibly attributable even without real voices.
var speakerTones = map[string]float64{
	"chatgpt": 440.0,
	"gemini":  523.0,
	"claude":  349.0,
	"host":    293.0,
}

// Mock synthesizes a short tone followed by silence sized to the text
// length. Output is a real PCM WAV file, so everything downstream of
// synthesis can run without any cloud credentials.
type Mock struct {
	sampleRate int
}

// NewMock returns a mock provider. A non-positive sampleRate selects
// the default 24 kHz.
func NewMock(sampleRate int) *Mock {
	if sampleRate <= 0 {
		sampleRate = mockSampleRate
	}
	return &Mock{sampleRate: sampleRate}
}

func (m *Mock) Synthesize(ctx context.Context, text, speaker, outputPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	seconds := float64(utf8.RuneCountInString(text)) / charsPerSecond
	if seconds < 1.0 {
		seconds = 1.0
	}
	total := int(seconds * float64(m.sampleRate))
	beep := int(beepSeconds * float64(m.sampleRate))
	if beep > total {
		beep = total
	}

	freq, ok := speakerTones[speaker]
	if !ok {
		freq = speakerTones["host"]
	}

	data := make([]int, total)
	for i := 0; i < beep; i++ {
		v := 0.3 * math.Sin(2*math.Pi*freq*float64(i)/float64(m.sampleRate))
		data[i] = int(v * math.MaxInt16)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create wav: %w", err)
	}
	enc := wav.NewEncoder(f, m.sampleRate, mockBitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: m.sampleRate},
		Data:           data,
		SourceBitDepth: mockBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return "", fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("finalize wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close wav: %w", err)
	}
	return outputPath, nil
}

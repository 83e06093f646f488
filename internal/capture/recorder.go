package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// Recorder produces one audio blob per recording session together with its
// quality assessment.
type Recorder interface {
	Record(ctx context.Context) (Recording, error)
}

// Recording is an encoded audio container and its assessment.
type Recording struct {
	Audio   []byte
	Quality AudioQuality
}

// AudioQuality describes a recording; Amplitude and Clarity are in [0,1].
type AudioQuality struct {
	Amplitude  float64
	Clarity    float64
	Acceptable bool
}

const (
	// MinAmplitude is the RMS level below which speech is too quiet.
	MinAmplitude = 0.02
	// MinClarity is the lowest acceptable share of unclipped samples.
	MinClarity = 0.99

	clipLevel = 0.99
)

// AssessAudio scores normalised PCM samples in [-1,1]. Amplitude is the RMS
// level and clarity the share of samples below the clipping level.
func AssessAudio(samples []float32) AudioQuality {
	if len(samples) == 0 {
		return AudioQuality{}
	}
	var sq float64
	clipped := 0
	for _, s := range samples {
		v := math.Abs(float64(s))
		sq += v * v
		if v >= clipLevel {
			clipped++
		}
	}
	q := AudioQuality{
		Amplitude: math.Min(1, math.Sqrt(sq/float64(len(samples)))),
		Clarity:   1 - float64(clipped)/float64(len(samples)),
	}
	q.Acceptable = q.Amplitude >= MinAmplitude && q.Clarity >= MinClarity
	return q
}

// ErrNotWAV is returned by DecodeWAV for input that is not a RIFF/WAVE file.
var ErrNotWAV = errors.New("not a wav file")

// DecodeWAV returns the PCM samples of a 16, 24 or 32 bit WAV file scaled to
// [-1,1]. Channels stay interleaved.
func DecodeWAV(data []byte) ([]float32, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	switch dec.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	divisor := float32(int64(1) << (dec.BitDepth - 1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / divisor
	}
	return samples, nil
}

// FileRecorder returns an existing audio file as a recording. WAV input is
// decoded and assessed; other containers are kept as is with a zero Quality.
type FileRecorder struct {
	Path        string
	Permissions Permissions
}

// Record implements Recorder.
func (r FileRecorder) Record(ctx context.Context) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return Recording{}, err
	}
	if err := Require(r.Permissions, DeviceMicrophone); err != nil {
		return Recording{}, err
	}
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return Recording{}, fmt.Errorf("read audio: %w", err)
	}
	rec := Recording{Audio: data}
	samples, err := DecodeWAV(data)
	switch {
	case err == nil:
		rec.Quality = AssessAudio(samples)
	case !errors.Is(err, ErrNotWAV):
		return Recording{}, err
	}
	return rec, nil
}

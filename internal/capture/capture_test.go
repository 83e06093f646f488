package capture_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"specimencore/internal/capture"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, fill func(x, y int) uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: fill(x, y)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func checkerboard(x, y int) uint8 {
	if (x+y)%2 == 0 {
		return 255
	}
	return 0
}

func TestAssessImageScoresSharpAndBlurry(t *testing.T) {
	sharp, err := capture.AssessImage(encodePNG(t, checkerboard))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sharp.Sharpness, 1e-9)
	assert.InDelta(t, 0.5, sharp.Brightness, 0.01)
	assert.True(t, sharp.Acceptable)
	assert.Empty(t, sharp.Recommendations)

	flat, err := capture.AssessImage(encodePNG(t, func(int, int) uint8 { return 128 }))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, flat.Sharpness, 1e-9)
	assert.False(t, flat.Acceptable)
	require.Len(t, flat.Recommendations, 1)
	assert.Contains(t, flat.Recommendations[0], "blurry")
}

func TestAssessImageFlagsExposure(t *testing.T) {
	dark, err := capture.AssessImage(encodePNG(t, func(x, y int) uint8 { return checkerboard(x, y) / 8 }))
	require.NoError(t, err)
	assert.Less(t, dark.Brightness, capture.MinBrightness)
	assert.False(t, dark.Acceptable)

	bright, err := capture.AssessImage(encodePNG(t, func(int, int) uint8 { return 250 }))
	require.NoError(t, err)
	assert.Greater(t, bright.Brightness, capture.MaxBrightness)
	joined := strings.Join(bright.Recommendations, " ")
	assert.Contains(t, joined, "overexposed")
}

func TestAssessImageRejectsGarbage(t *testing.T) {
	_, err := capture.AssessImage([]byte("not an image"))
	require.Error(t, err)
}

func TestFileCameraReadsJPEG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	path := filepath.Join(t.TempDir(), "drawer.jpg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	photo, err := capture.FileCamera{Path: path}.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), photo.JPEG)
	assert.Less(t, photo.Quality.Brightness, capture.MinBrightness)

	denied := capture.FileCamera{Path: path, Permissions: capture.StaticPermissions{capture.DeviceCamera: capture.PermissionDenied}}
	_, err = denied.Capture(context.Background())
	require.ErrorIs(t, err, capture.ErrPermissionDenied)
}

func TestPermissionUsable(t *testing.T) {
	assert.True(t, capture.PermissionGranted.Usable())
	assert.False(t, capture.PermissionDenied.Usable())
	assert.False(t, capture.PermissionUndetermined.Usable())
	assert.Equal(t, "undetermined", capture.PermissionUndetermined.String())

	perms := capture.StaticPermissions{capture.DeviceMicrophone: capture.PermissionGranted}
	require.NoError(t, capture.Require(perms, capture.DeviceMicrophone))
	require.ErrorIs(t, capture.Require(perms, capture.DeviceSpeech), capture.ErrPermissionDenied)
	require.NoError(t, capture.Require(nil, capture.DeviceCamera))
}

func TestOCRResultVerificationThreshold(t *testing.T) {
	assert.True(t, capture.NewOCRResult("x", 0.79).NeedsVerification)
	assert.False(t, capture.NewOCRResult("x", 0.8).NeedsVerification)
	assert.Equal(t, 1.0, capture.NewOCRResult("x", 3).Confidence)
	assert.Equal(t, 0.0, capture.NewOCRResult("x", -1).Confidence)

	res, err := capture.StaticRecognizer{Text: "SB-001 Shark Bay", Confidence: 0.93}.Recognize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "SB-001 Shark Bay", res.Text)
	assert.False(t, res.NeedsVerification)
}

func TestStaticTranscriberStreamsIncrementally(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	updates, err := capture.StaticTranscriber{Text: "domal stromatolite near jetty"}.Transcribe(ctx, strings.NewReader("pcm"))
	require.NoError(t, err)

	var seen []capture.Transcript
	for u := range updates {
		seen = append(seen, u)
	}
	require.Len(t, seen, 4)
	assert.Equal(t, "domal", seen[0].Text)
	assert.False(t, seen[0].Final)
	assert.Equal(t, "domal stromatolite near jetty", seen[3].Text)
	assert.True(t, seen[3].Final)
}

func TestCollectReturnsFinalText(t *testing.T) {
	ctx := context.Background()
	updates, err := capture.StaticTranscriber{Text: "laminated dome"}.Transcribe(ctx, nil)
	require.NoError(t, err)
	text, err := capture.Collect(ctx, updates)
	require.NoError(t, err)
	assert.Equal(t, "laminated dome", text)

	ch := make(chan capture.Transcript, 1)
	ch <- capture.Transcript{Text: "partial"}
	close(ch)
	text, err = capture.Collect(ctx, ch)
	assert.True(t, errors.Is(err, capture.ErrNoFinalTranscript))
	assert.Equal(t, "partial", text)
}

func TestAssessAudio(t *testing.T) {
	assert.Equal(t, capture.AudioQuality{}, capture.AssessAudio(nil))

	speech := make([]float32, 1000)
	for i := range speech {
		speech[i] = 0.3
		if i%2 == 1 {
			speech[i] = -0.3
		}
	}
	q := capture.AssessAudio(speech)
	assert.InDelta(t, 0.3, q.Amplitude, 1e-6)
	assert.Equal(t, 1.0, q.Clarity)
	assert.True(t, q.Acceptable)

	clipped := append([]float32(nil), speech...)
	for i := 0; i < 100; i++ {
		clipped[i] = 1
	}
	assert.False(t, capture.AssessAudio(clipped).Acceptable)

	quiet := make([]float32, 100)
	assert.False(t, capture.AssessAudio(quiet).Acceptable)
}

func TestFileRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.m4a")
	require.NoError(t, os.WriteFile(path, []byte("m4a"), 0o600))
	rec, err := capture.FileRecorder{Path: path}.Record(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("m4a"), rec.Audio)
	assert.Equal(t, capture.AudioQuality{}, rec.Quality)

	_, err = capture.FileRecorder{Path: filepath.Join(t.TempDir(), "missing")}.Record(context.Background())
	require.Error(t, err)
}

// writeTone writes one second of a mono 16 bit sine wave at the given peak.
func writeTone(t *testing.T, path string, peak float64) {
	t.Helper()
	const rate = 8000
	f, err := os.Create(path)
	require.NoError(t, err)
	data := make([]int, rate)
	for i := range data {
		data[i] = int(peak * 32767 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{Data: data, Format: &audio.Format{SampleRate: rate, NumChannels: 1}, SourceBitDepth: 16}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func TestFileRecorderAssessesWAV(t *testing.T) {
	dir := t.TempDir()
	loud := filepath.Join(dir, "loud.wav")
	writeTone(t, loud, 0.5)
	rec, err := capture.FileRecorder{Path: loud}.Record(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Audio)
	assert.InDelta(t, 0.5/math.Sqrt2, rec.Quality.Amplitude, 0.01)
	assert.Equal(t, 1.0, rec.Quality.Clarity)
	assert.True(t, rec.Quality.Acceptable)

	quiet := filepath.Join(dir, "quiet.wav")
	writeTone(t, quiet, 0.01)
	rec, err = capture.FileRecorder{Path: quiet}.Record(context.Background())
	require.NoError(t, err)
	assert.False(t, rec.Quality.Acceptable)

	_, err = capture.DecodeWAV([]byte("m4a"))
	assert.ErrorIs(t, err, capture.ErrNotWAV)
}

package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
)

// Camera supplies one JPEG image per capture together with its assessment.
type Camera interface {
	Capture(ctx context.Context) (Photo, error)
}

// Photo is a captured JPEG and its quality assessment.
type Photo struct {
	JPEG    []byte
	Quality ImageQuality
}

// ImageQuality scores sharpness and brightness in [0,1].
type ImageQuality struct {
	Sharpness       float64
	Brightness      float64
	Acceptable      bool
	Recommendations []string
}

// Assessment thresholds.
const (
	MinSharpness  = 0.3
	MinBrightness = 0.2
	MaxBrightness = 0.85

	// laplacian variance at which sharpness saturates at 1
	sharpnessScale = 400.0
	// longest edge sampled during assessment
	assessEdge = 512
)

// AssessImage decodes a JPEG or PNG and scores it. Sharpness is the variance
// of the 4-neighbour Laplacian over luminance, brightness is mean luminance.
func AssessImage(data []byte) (ImageQuality, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ImageQuality{}, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	step := max(1, max(b.Dx(), b.Dy())/assessEdge)
	w, h := (b.Dx()+step-1)/step, (b.Dy()+step-1)/step
	if w < 3 || h < 3 {
		return ImageQuality{}, fmt.Errorf("image too small to assess: %dx%d", b.Dx(), b.Dy())
	}
	lum := make([]float64, w*h)
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x*step, b.Min.Y+y*step).RGBA()
			l := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257
			lum[y*w+x] = l
			sum += l
		}
	}
	var lapSum, lapSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			v := lum[i-1] + lum[i+1] + lum[i-w] + lum[i+w] - 4*lum[i]
			lapSum += v
			lapSq += v * v
			n++
		}
	}
	mean := lapSum / float64(n)
	variance := lapSq/float64(n) - mean*mean

	q := ImageQuality{
		Sharpness:  math.Min(1, variance/sharpnessScale),
		Brightness: sum / float64(len(lum)) / 255,
	}
	if q.Sharpness < MinSharpness {
		q.Recommendations = append(q.Recommendations, "Image is blurry: hold the camera steady and tap to focus.")
	}
	if q.Brightness < MinBrightness {
		q.Recommendations = append(q.Recommendations, "Image is too dark: add light or move out of shadow.")
	}
	if q.Brightness > MaxBrightness {
		q.Recommendations = append(q.Recommendations, "Image is overexposed: reduce glare or direct light.")
	}
	q.Acceptable = len(q.Recommendations) == 0
	return q, nil
}

// FileCamera "captures" an image file from disk.
type FileCamera struct {
	Path        string
	Permissions Permissions
}

// Capture implements Camera.
func (c FileCamera) Capture(ctx context.Context) (Photo, error) {
	if err := ctx.Err(); err != nil {
		return Photo{}, err
	}
	if err := Require(c.Permissions, DeviceCamera); err != nil {
		return Photo{}, err
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return Photo{}, fmt.Errorf("read image: %w", err)
	}
	q, err := AssessImage(data)
	if err != nil {
		return Photo{}, err
	}
	return Photo{JPEG: data, Quality: q}, nil
}

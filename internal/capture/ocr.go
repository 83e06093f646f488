package capture

import (
	"context"
	"math"
)

// VerificationThreshold is the confidence below which OCR text needs review.
const VerificationThreshold = 0.8

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (OCRResult, error)
}

// OCRResult is recognised text with a confidence in [0,1].
type OCRResult struct {
	Text              string
	Confidence        float64
	NeedsVerification bool
}

// NewOCRResult clamps confidence and derives NeedsVerification.
func NewOCRResult(text string, confidence float64) OCRResult {
	if math.IsNaN(confidence) {
		confidence = 0
	}
	confidence = math.Max(0, math.Min(1, confidence))
	return OCRResult{Text: text, Confidence: confidence, NeedsVerification: confidence < VerificationThreshold}
}

// StaticRecognizer returns the same result for every image.
type StaticRecognizer struct {
	Text       string
	Confidence float64
}

// Recognize implements Recognizer.
func (s StaticRecognizer) Recognize(ctx context.Context, _ []byte) (OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return OCRResult{}, err
	}
	return NewOCRResult(s.Text, s.Confidence), nil
}

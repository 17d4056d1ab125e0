package scan

import (
	"context"
	"errors"
	"strings"

	"github.com/mamadbah2/epharmacy/internal/apperr"
)

// NoTextDetected replaces an empty OCR result.
const NoTextDetected = "No text detected"

// DefaultPageSegMode treats the image as a single uniform block of text.
const DefaultPageSegMode = 6

// Engine is the OCR backend. Implementations may ignore ctx if the
// underlying call cannot be interrupted.
type Engine interface {
	Recognize(ctx context.Context, image []byte, language string, pageSegMode int) (string, error)
}

// Extractor turns a binarized image into trimmed text.
type Extractor struct {
	engine      Engine
	language    string
	pageSegMode int
}

// NewExtractor wires an extractor around engine.
func NewExtractor(engine Engine, language string, pageSegMode int) *Extractor {
	if pageSegMode <= 0 {
		pageSegMode = DefaultPageSegMode
	}
	return &Extractor{engine: engine, language: language, pageSegMode: pageSegMode}
}

// Extract runs OCR on image. Empty output becomes NoTextDetected; engine
// errors and deadlines surface as OcrFailure.
func (e *Extractor) Extract(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.OCRFailure("ocr aborted before start", err)
	}

	text, err := e.engine.Recognize(ctx, image, e.language, e.pageSegMode)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.OCRFailure("ocr engine timed out", err)
		}
		return "", apperr.OCRFailure("ocr engine failed", err)
	}

	return Sentinel(text), nil
}

// Sentinel trims text and substitutes NoTextDetected when nothing remains.
func Sentinel(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NoTextDetected
	}
	return trimmed
}

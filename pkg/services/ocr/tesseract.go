package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer runs the local Tesseract engine through gosseract.
type TesseractRecognizer struct {
	language       string
	tessdataPrefix string
}

// NewTesseract creates a recognizer for language ("eng" when empty).
func NewTesseract(language, tessdataPrefix string) *TesseractRecognizer {
	if language == "" {
		language = "eng"
	}
	return &TesseractRecognizer{language: language, tessdataPrefix: tessdataPrefix}
}

// Name implements Recognizer.
func (t *TesseractRecognizer) Name() string {
	return EngineTesseract
}

// Recognize implements Recognizer. A client is created per page; gosseract
// clients are not safe for concurrent use.
func (t *TesseractRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		client.TessdataPrefix = t.tessdataPrefix
	}
	if err := client.SetLanguage(strings.Split(t.language, "+")...); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to load image into tesseract: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		if isInitError(err) {
			return "", fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
		}
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return text, nil
}

// isInitError reports whether err comes from Tesseract failing to start,
// usually a missing tessdata directory or language pack.
func isInitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "initialize") || strings.Contains(msg, "tessdata")
}

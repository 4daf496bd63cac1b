// Package ocr wraps the text recognition engines used to read scanned pages.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrRecognitionUnavailable is returned when an engine is not installed or not
// configured. Callers surface it as a warning and leave the dataset alone.
var ErrRecognitionUnavailable = errors.New("recognition engine unavailable")

// Engine names.
const (
	EngineTesseract = "tesseract"
	EngineAzure     = "azure"
)

// Recognizer turns one page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Name() string
}

// Options selects and configures an engine.
type Options struct {
	Engine         string
	Language       string
	TessdataPrefix string
	AzureEndpoint  string
	AzureKey       string
	// Enhance runs Enhance on every page before recognition.
	Enhance bool
}

// New returns the recognizer named by opts.Engine.
func New(opts Options) (Recognizer, error) {
	var rec Recognizer
	switch strings.ToLower(opts.Engine) {
	case "", EngineTesseract:
		rec = NewTesseract(opts.Language, opts.TessdataPrefix)
	case EngineAzure:
		rec = NewAzure(opts.AzureEndpoint, opts.AzureKey)
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", opts.Engine)
	}
	if opts.Enhance {
		rec = Enhanced(rec)
	}
	return rec, nil
}

// Enhanced wraps rec so that every page goes through Enhance first.
func Enhanced(rec Recognizer) Recognizer {
	return enhanced{next: rec}
}

type enhanced struct {
	next Recognizer
}

func (e enhanced) Recognize(ctx context.Context, img image.Image) (string, error) {
	return e.next.Recognize(ctx, Enhance(img))
}

func (e enhanced) Name() string {
	return e.next.Name()
}

// encodePNG serializes img for engines that take raw bytes.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

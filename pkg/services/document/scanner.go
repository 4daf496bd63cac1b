// Package document turns uploaded scans (images or PDFs) into recognized text.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"scan-fill/pkg/services/ocr"
)

var (
	// ErrUnsupportedType is returned for uploads that are neither an image nor a PDF.
	ErrUnsupportedType = errors.New("unsupported scan type")
	// ErrUnreadable is returned when an image upload cannot be decoded.
	ErrUnreadable = errors.New("unreadable scan")
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true, ".bmp": true, ".gif": true,
}

// Upload is a scanned file as received from the user.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsPDF reports whether the upload should go through the rasterizer.
func (u Upload) IsPDF() bool {
	return u.ContentType == "application/pdf" || strings.EqualFold(filepath.Ext(u.Name), ".pdf")
}

// IsImage reports whether the upload is a supported image.
func (u Upload) IsImage() bool {
	return strings.HasPrefix(u.ContentType, "image/") || imageExtensions[strings.ToLower(filepath.Ext(u.Name))]
}

// Scan is the recognized text of one upload.
type Scan struct {
	FileName string `json:"file_name"`
	Engine   string `json:"engine"`
	Pages    int    `json:"pages"`
	Text     string `json:"text"`
}

// Scanner recognizes uploads page by page.
type Scanner struct {
	recognizer ocr.Recognizer
	rasterizer Rasterizer
}

// NewScanner creates a scanner.
func NewScanner(recognizer ocr.Recognizer, rasterizer Rasterizer) *Scanner {
	return &Scanner{recognizer: recognizer, rasterizer: rasterizer}
}

// Engine returns the name of the recognition engine in use.
func (s *Scanner) Engine() string {
	return s.recognizer.Name()
}

// Scan recognizes u. For a PDF every page is recognized in order and each
// page's text is followed by a newline. Errors wrapping
// ocr.ErrRecognitionUnavailable or ErrConverterUnavailable mean the engine
// could not run at all.
func (s *Scanner) Scan(ctx context.Context, u Upload) (Scan, error) {
	result := Scan{FileName: u.Name, Engine: s.recognizer.Name()}

	switch {
	case u.IsPDF():
		pages, err := s.pdfPages(ctx, u)
		if err != nil {
			return result, err
		}
		var text strings.Builder
		for i, page := range pages {
			pageText, err := s.recognizer.Recognize(ctx, page)
			if err != nil {
				return result, fmt.Errorf("page %d: %w", i+1, err)
			}
			text.WriteString(pageText)
			text.WriteString("\n")
		}
		result.Pages = len(pages)
		result.Text = text.String()

	case u.IsImage():
		img, err := imaging.Decode(bytes.NewReader(u.Data), imaging.AutoOrientation(true))
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		text, err := s.recognizer.Recognize(ctx, img)
		if err != nil {
			return result, err
		}
		result.Pages = 1
		result.Text = text

	default:
		return result, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, u.Name, u.ContentType)
	}

	log.Printf("[scan] %s: %d page(s), %d chars via %s", u.Name, result.Pages, len(result.Text), result.Engine)
	return result, nil
}

func (s *Scanner) pdfPages(ctx context.Context, u Upload) ([]image.Image, error) {
	tmp, err := os.CreateTemp("", "scanfill-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to stage pdf: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(u.Data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to stage pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to stage pdf: %w", err)
	}

	return s.rasterizer.Pages(ctx, tmp.Name())
}

// Unavailable reports whether err means scanning could not run at all, as
// opposed to a bad upload.
func Unavailable(err error) bool {
	return errors.Is(err, ocr.ErrRecognitionUnavailable) || errors.Is(err, ErrConverterUnavailable)
}

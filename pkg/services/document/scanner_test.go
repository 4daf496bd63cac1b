package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scan-fill/pkg/services/ocr"
)

// pageRecognizer returns texts in order, one per call.
type pageRecognizer struct {
	texts []string
	calls int
	err   error
}

func (p *pageRecognizer) Recognize(_ context.Context, _ image.Image) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	text := p.texts[p.calls]
	p.calls++
	return text, nil
}

func (p *pageRecognizer) Name() string { return "fake" }

type fakeRasterizer struct {
	pages   int
	err     error
	gotPath string
	existed bool
}

func (f *fakeRasterizer) Pages(_ context.Context, path string) ([]image.Image, error) {
	f.gotPath = path
	_, statErr := os.Stat(path)
	f.existed = statErr == nil
	if f.err != nil {
		return nil, f.err
	}
	out := make([]image.Image, f.pages)
	for i := range out {
		out[i] = image.NewGray(image.Rect(0, 0, 2, 2))
	}
	return out, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(8, 8, color.White), imaging.PNG))
	return buf.Bytes()
}

func TestScanImage(t *testing.T) {
	rec := &pageRecognizer{texts: []string{"1,Bob,20"}}
	s := NewScanner(rec, &fakeRasterizer{})

	got, err := s.Scan(context.Background(), Upload{Name: "page.PNG", Data: pngBytes(t)})

	require.NoError(t, err)
	assert.Equal(t, Scan{FileName: "page.PNG", Engine: "fake", Pages: 1, Text: "1,Bob,20"}, got)
}

func TestScanPDFJoinsPages(t *testing.T) {
	rec := &pageRecognizer{texts: []string{"1,Bob,20", "2,Carol,30"}}
	raster := &fakeRasterizer{pages: 2}
	s := NewScanner(rec, raster)

	got, err := s.Scan(context.Background(), Upload{Name: "doc", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})

	require.NoError(t, err)
	assert.Equal(t, "1,Bob,20\n2,Carol,30\n", got.Text)
	assert.Equal(t, 2, got.Pages)
	assert.True(t, raster.existed, "pdf must be staged on disk for the rasterizer")
	_, err = os.Stat(raster.gotPath)
	assert.True(t, os.IsNotExist(err), "staged pdf must be removed")
}

func TestScanUnsupported(t *testing.T) {
	s := NewScanner(&pageRecognizer{}, &fakeRasterizer{})

	_, err := s.Scan(context.Background(), Upload{Name: "notes.docx", ContentType: "application/msword"})

	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, Unavailable(err))
}

func TestScanRecognitionUnavailable(t *testing.T) {
	rec := &pageRecognizer{err: ocr.ErrRecognitionUnavailable}
	s := NewScanner(rec, &fakeRasterizer{pages: 1})

	_, err := s.Scan(context.Background(), Upload{Name: "a.pdf", Data: []byte("x")})
	assert.True(t, Unavailable(err))

	_, err = s.Scan(context.Background(), Upload{Name: "a.jpg", Data: pngBytes(t)})
	assert.True(t, Unavailable(err))
}

func TestScanConverterUnavailable(t *testing.T) {
	s := NewScanner(&pageRecognizer{}, &fakeRasterizer{err: ErrConverterUnavailable})

	_, err := s.Scan(context.Background(), Upload{Name: "a.pdf", Data: []byte("x")})

	assert.True(t, Unavailable(err))
}

func TestScanCorruptImage(t *testing.T) {
	s := NewScanner(&pageRecognizer{texts: []string{""}}, &fakeRasterizer{})

	_, err := s.Scan(context.Background(), Upload{Name: "a.png", Data: []byte("not an image")})

	assert.ErrorIs(t, err, ErrUnreadable)
	assert.False(t, Unavailable(err))
}

func TestPopplerMissingBinary(t *testing.T) {
	p := NewPopplerRasterizer(150, 0)
	p.Binary = "definitely-not-pdftoppm"

	_, err := p.Pages(context.Background(), "x.pdf")

	assert.True(t, errors.Is(err, ErrConverterUnavailable))
}

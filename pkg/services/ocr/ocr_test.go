package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func ocrLine(box string, words ...string) computervision.OcrLine {
	ws := make([]computervision.OcrWord, len(words))
	for i, w := range words {
		ws[i] = computervision.OcrWord{Text: strPtr(w)}
	}
	return computervision.OcrLine{BoundingBox: strPtr(box), Words: &ws}
}

func TestExtractTextFromOCRResultOrdersLines(t *testing.T) {
	regionA := []computervision.OcrLine{
		ocrLine("10,50,100,12", "2,Carol,30"),
		ocrLine("10,10,100,12", "ID,Name,Amount"),
	}
	regionB := []computervision.OcrLine{
		ocrLine("10,30,100,12", "1,Bob,", "20"),
		ocrLine("bogus", "dropped"),
	}
	regions := []computervision.OcrRegion{{Lines: &regionA}, {Lines: &regionB}}

	lines := extractTextFromOCRResult(computervision.OcrResult{Regions: &regions})

	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Name,Amount", lines[0].Text)
	assert.Equal(t, "1,Bob, 20", lines[1].Text)
	assert.Equal(t, "2,Carol,30", lines[2].Text)
	assert.Equal(t, 30, lines[1].Y)
}

func TestExtractTextFromOCRResultEmpty(t *testing.T) {
	assert.Empty(t, extractTextFromOCRResult(computervision.OcrResult{}))
}

func TestAzureWithoutCredentialsIsUnavailable(t *testing.T) {
	rec := NewAzure("", "")

	_, err := rec.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))

	assert.True(t, errors.Is(err, ErrRecognitionUnavailable))
}

func TestNewSelectsEngine(t *testing.T) {
	rec, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, EngineTesseract, rec.Name())

	rec, err = New(Options{Engine: "Azure", Enhance: true})
	require.NoError(t, err)
	assert.Equal(t, EngineAzure, rec.Name())
	assert.IsType(t, enhanced{}, rec)

	_, err = New(Options{Engine: "abbyy"})
	assert.Error(t, err)
}

type captureRecognizer struct {
	got image.Image
}

func (c *captureRecognizer) Recognize(_ context.Context, img image.Image) (string, error) {
	c.got = img
	return "ok", nil
}

func (c *captureRecognizer) Name() string { return "capture" }

func TestEnhancedPassesProcessedImage(t *testing.T) {
	src := imaging.New(20, 10, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	capture := &captureRecognizer{}

	text, err := Enhanced(capture).Recognize(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	require.NotNil(t, capture.got)
	r, g, b, _ := capture.got.At(5, 5).RGBA()
	assert.Equal(t, r, g, "page should be grayscale")
	assert.Equal(t, g, b, "page should be grayscale")
}

func TestEnhanceFitsLargePages(t *testing.T) {
	src := imaging.New(maxEdge*2, 100, color.White)

	out := Enhance(src)

	assert.LessOrEqual(t, out.Bounds().Dx(), maxEdge)
}

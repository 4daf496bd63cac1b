package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"scan-fill/pkg/models"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

// AzureRecognizer reads pages with the Azure Computer Vision OCR API
type AzureRecognizer struct {
	client      *computervision.BaseClient
	apiEndpoint string
}

// NewAzure creates a recognizer for the given Computer Vision resource. An
// empty endpoint or key yields a recognizer that always reports
// ErrRecognitionUnavailable.
func NewAzure(endpoint, apiKey string) *AzureRecognizer {
	if endpoint == "" || apiKey == "" {
		return &AzureRecognizer{apiEndpoint: endpoint}
	}

	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return &AzureRecognizer{
		client:      &client,
		apiEndpoint: endpoint,
	}
}

// Name implements Recognizer.
func (s *AzureRecognizer) Name() string {
	return EngineAzure
}

// Recognize performs OCR on a page and returns its lines joined by newlines
func (s *AzureRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("%w: azure endpoint or key not configured", ErrRecognitionUnavailable)
	}

	imageData, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	result, err := s.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(imageData)),
		computervision.OcrLanguages(computervision.En),
	)
	if err != nil {
		var detailed autorest.DetailedError
		if errors.As(err, &detailed) &&
			(detailed.StatusCode == http.StatusUnauthorized || detailed.StatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
		}
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	lines := extractTextFromOCRResult(result)
	text := make([]string, len(lines))
	for i, l := range lines {
		text[i] = l.Text
	}
	return strings.Join(text, "\n"), nil
}

// extractTextFromOCRResult extracts text lines with position information from
// an OCR result, ordered top to bottom.
func extractTextFromOCRResult(result computervision.OcrResult) []models.TextLine {
	var textLines []models.TextLine
	if result.Regions == nil {
		return textLines
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			var lineText strings.Builder
			var boundingBox []int

			// left,top,width,height
			if line.BoundingBox != nil {
				for _, part := range strings.Split(*line.BoundingBox, ",") {
					val, _ := strconv.Atoi(part)
					boundingBox = append(boundingBox, val)
				}
			}

			if line.Words != nil {
				for _, word := range *line.Words {
					if word.Text == nil {
						continue
					}
					lineText.WriteString(*word.Text)
					lineText.WriteString(" ")
				}
			}

			if len(boundingBox) >= 4 {
				textLines = append(textLines, models.TextLine{
					Text:   strings.TrimSpace(lineText.String()),
					X:      boundingBox[0],
					Y:      boundingBox[1],
					Width:  boundingBox[2],
					Height: boundingBox[3],
				})
			}
		}
	}

	sort.SliceStable(textLines, func(i, j int) bool {
		if textLines[i].Y != textLines[j].Y {
			return textLines[i].Y < textLines[j].Y
		}
		return textLines[i].X < textLines[j].X
	})
	return textLines
}

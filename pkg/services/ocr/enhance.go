package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// maxEdge bounds the longest side of a page handed to an engine.
const maxEdge = 4200

// Enhance prepares a scanned page for recognition
func Enhance(src image.Image) image.Image {
	// 1. Convert to grayscale for better contrast
	img := imaging.Grayscale(src)

	// 2. Increase contrast
	img = imaging.AdjustContrast(img, 30)

	// 3. Sharpen the image to make text more readable
	img = imaging.Sharpen(img, 1.5)

	// 4. Brightness and gamma to lift faint print
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	// Oversized phone photos slow the engines down without helping accuracy
	b := img.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	return img
}

package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
)

// ErrConverterUnavailable is returned when the PDF rasterizer is not installed.
var ErrConverterUnavailable = errors.New("pdf converter unavailable")

// Rasterizer turns a PDF into page images, in page order.
type Rasterizer interface {
	Pages(ctx context.Context, pdfPath string) ([]image.Image, error)
}

// PopplerRasterizer renders pages with poppler's pdftoppm.
type PopplerRasterizer struct {
	Binary  string
	DPI     int
	Timeout time.Duration
}

// NewPopplerRasterizer returns a rasterizer rendering at dpi.
func NewPopplerRasterizer(dpi int, timeout time.Duration) *PopplerRasterizer {
	return &PopplerRasterizer{Binary: "pdftoppm", DPI: dpi, Timeout: timeout}
}

// Pages implements Rasterizer.
func (p *PopplerRasterizer) Pages(ctx context.Context, pdfPath string) ([]image.Image, error) {
	bin, err := exec.LookPath(p.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConverterUnavailable, err)
	}

	dir, err := os.MkdirTemp("", "scanfill-pages-")
	if err != nil {
		return nil, fmt.Errorf("failed to create page dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	dpi := p.DPI
	if dpi <= 0 {
		dpi = 300
	}
	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(dpi), pdfPath, filepath.Join(dir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, out)
	}

	// pdftoppm zero-pads page numbers to a common width, so names sort in
	// page order.
	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	pages := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := imaging.Open(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode page %s: %w", filepath.Base(f), err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

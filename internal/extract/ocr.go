package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	_ "golang.org/x/image/tiff"
)

// OCR recovers text from image-based PDFs. It pulls the embedded page
// images out of the PDF, normalizes each to PNG, and feeds them to a
// recognition Engine in page order.
//
// Scanned PDFs carry one full-page raster image per page, so extracting
// the embedded images is equivalent to rasterizing the pages, without
// needing a renderer.
type OCR struct {
	engine Engine
}

// NewOCR returns the OCR extractor backed by the given Engine.
func NewOCR(engine Engine) *OCR {
	return &OCR{engine: engine}
}

// Name implements Extractor.
func (o *OCR) Name() string { return "ocr" }

// Description implements Extractor.
func (o *OCR) Description() string {
	return "optical character recognition over embedded page images"
}

// SupportsOCR implements Extractor.
func (o *OCR) SupportsOCR() bool { return true }

// Extract implements Extractor.
func (o *OCR) Extract(ctx context.Context, path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "pdf2txt-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create image staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if err := api.ExtractImagesFile(path, tmpDir, nil, nil); err != nil {
		return "", fmt.Errorf("failed to extract images from %s: %w", path, err)
	}

	images, err := listImages(tmpDir)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", fmt.Errorf("%s contains no embedded images to OCR", path)
	}

	var pages []string
	for _, imgPath := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		pngBytes, err := normalizePNG(imgPath)
		if err != nil {
			return "", err
		}

		text, err := o.engine.Recognize(pngBytes)
		if err != nil {
			return "", fmt.Errorf("recognition failed on %s: %w", filepath.Base(imgPath), err)
		}
		pages = append(pages, strings.TrimRight(text, "\n"))
	}

	return strings.Join(pages, "\n"), nil
}

// imagePagePattern pulls the page number out of pdfcpu's
// <basename>_<page>_<object>.<ext> image file names.
var imagePagePattern = regexp.MustCompile(`_(\d+)_[^_]+\.[^.]+$`)

// listImages returns the extracted image files in page order. The page
// numbers in pdfcpu's file names are not zero-padded, so a plain lexical
// sort would put page 10 before page 2; the page number is parsed out
// and compared numerically, with the full name as the tie-breaker for
// multiple images on one page.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image staging directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sortImagePaths(paths)
	return paths, nil
}

// sortImagePaths orders image paths by parsed page number, then name.
// Names without a recognizable page number sort after numbered ones.
func sortImagePaths(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		pi, oki := imagePageNumber(paths[i])
		pj, okj := imagePageNumber(paths[j])
		if oki != okj {
			return oki
		}
		if oki && pi != pj {
			return pi < pj
		}
		return paths[i] < paths[j]
	})
}

// imagePageNumber parses the page number from an extracted image path.
func imagePageNumber(path string) (int, bool) {
	m := imagePagePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// normalizePNG decodes an extracted image (PNG, JPEG, or TIFF) and
// re-encodes it as PNG, the one format every Tesseract build accepts.
func normalizePNG(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image %s as png: %w", path, err)
	}
	return buf.Bytes(), nil
}

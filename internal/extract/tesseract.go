package extract

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text in one raster image. The OCR extractor depends
// on this interface rather than on gosseract directly so tests can run
// without a Tesseract installation (gosseract is a cgo binding).
type Engine interface {
	// Recognize returns the text found in the encoded image bytes.
	Recognize(image []byte) (string, error)
}

// defaultLanguages is the Tesseract language set for Korean documents
// with mixed Latin content.
const defaultLanguages = "kor+eng"

// TesseractEngine is the production Engine backed by gosseract.
type TesseractEngine struct {
	languages string
}

// NewTesseractEngine returns an Engine using the given Tesseract language
// codes ("kor+eng" style). Empty means the default Korean+English set.
func NewTesseractEngine(languages string) *TesseractEngine {
	if languages == "" {
		languages = defaultLanguages
	}
	return &TesseractEngine{languages: languages}
}

// Recognize implements Engine. A fresh client per image keeps the call
// safe for concurrent use; gosseract clients are not goroutine-safe.
func (t *TesseractEngine) Recognize(image []byte) (string, error) {
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(strings.Split(t.languages, "+")...); err != nil {
		return "", fmt.Errorf("failed to set OCR languages %q: %w", t.languages, err)
	}
	// Extracted page images carry no DPI metadata; without this Tesseract
	// warns and guesses badly on small text.
	if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), "300"); err != nil {
		return "", fmt.Errorf("failed to set OCR dpi: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

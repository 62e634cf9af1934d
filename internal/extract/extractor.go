// Package extract runs PDF text extractors and times them.
//
// Extractors implement a small interface so the compare command can run a
// set of them over the same inputs uniformly. Each extraction is wrapped
// in Run, which produces a model.ExtractionResult with timing and derived
// text statistics; a panicking or failing extractor yields a failed result
// rather than aborting the run, because a comparison harness that dies on
// the first bad extractor cannot compare anything.
package extract

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// Extractor converts one PDF file to plain text.
type Extractor interface {
	// Name is the short identifier used in file names and report tables.
	Name() string

	// Description is a one-line human-readable summary.
	Description() string

	// SupportsOCR reports whether the extractor can recover text from
	// image-only pages.
	SupportsOCR() bool

	// Extract returns the plain text of the PDF at path.
	Extract(ctx context.Context, path string) (string, error)
}

// Run executes one extractor over one PDF, capturing timing, normalizing
// the text, and converting any failure (including a panic inside a parser
// library) into a failed result.
func Run(ctx context.Context, e Extractor, path string) model.ExtractionResult {
	result := model.ExtractionResult{ExtractorName: e.Name()}

	start := time.Now()
	text, err := safeExtract(ctx, e, path)
	result.Duration = time.Since(start)

	if err != nil {
		result.ErrorMessage = err.Error()
	} else {
		// Normalize to NFC so character counts and diffs are stable
		// across extractors that emit decomposed Hangul jamo.
		result.Text = norm.NFC.String(text)
		result.Success = true
	}

	result.Finalize()
	return result
}

// safeExtract calls the extractor with panic recovery. PDF parsers
// routinely panic on malformed cross-reference tables.
func safeExtract(ctx context.Context, e Extractor, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor %s panicked: %v", e.Name(), r)
		}
	}()
	return e.Extract(ctx, path)
}

// ForKind returns the extractors applicable to a PDF of the given kind,
// drawn from the available set. Scanned PDFs only get OCR-capable
// extractors; text PDFs get every extractor, since OCR on a text layer is
// a useful comparison baseline.
func ForKind(kind model.PDFKind, available []Extractor) []Extractor {
	if kind != model.KindScanned {
		return available
	}
	var out []Extractor
	for _, e := range available {
		if e.SupportsOCR() {
			out = append(out, e)
		}
	}
	return out
}

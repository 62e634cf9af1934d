package extract

import (
	"context"
	"fmt"
	"io"

	altpdf "github.com/dslipak/pdf"
)

// NativeAlt extracts the embedded text layer with a second, independently
// maintained parser. Different parsers disagree on ligatures, CJK font
// encodings, and reading order, which is exactly what the comparison
// harness exists to surface.
type NativeAlt struct{}

// NewNativeAlt returns the alternative text-layer extractor.
func NewNativeAlt() *NativeAlt {
	return &NativeAlt{}
}

// Name implements Extractor.
func (n *NativeAlt) Name() string { return "native-alt" }

// Description implements Extractor.
func (n *NativeAlt) Description() string {
	return "embedded text layer, alternative parser"
}

// SupportsOCR implements Extractor.
func (n *NativeAlt) SupportsOCR() bool { return false }

// Extract implements Extractor.
func (n *NativeAlt) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r, err := altpdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted text of %s: %w", path, err)
	}

	return string(data), nil
}

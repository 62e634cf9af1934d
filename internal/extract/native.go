package extract

import (
	"context"
	"fmt"
	"strings"

	gopdf "github.com/ledongthuc/pdf"
)

// Native extracts the embedded text layer page by page. It is the primary
// extractor for text-kind PDFs: per-page extraction keeps page boundaries
// as newlines and isolates per-page parse failures.
type Native struct{}

// NewNative returns the primary text-layer extractor.
func NewNative() *Native {
	return &Native{}
}

// Name implements Extractor.
func (n *Native) Name() string { return "native" }

// Description implements Extractor.
func (n *Native) Description() string {
	return "embedded text layer, page by page"
}

// SupportsOCR implements Extractor.
func (n *Native) SupportsOCR() bool { return false }

// Extract implements Extractor.
func (n *Native) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := gopdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			// A single unparseable page loses that page's text only.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

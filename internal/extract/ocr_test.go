package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSortImagePaths verifies extracted page images are ordered by the
// numeric page component, not lexically.
func TestSortImagePaths(t *testing.T) {
	paths := []string{
		"/tmp/x/doc_10_Im0.png",
		"/tmp/x/doc_2_Im0.png",
		"/tmp/x/doc_1_Im0.png",
		"/tmp/x/doc_1_Im1.png",
	}

	sortImagePaths(paths)

	assert.Equal(t, []string{
		"/tmp/x/doc_1_Im0.png",
		"/tmp/x/doc_1_Im1.png",
		"/tmp/x/doc_2_Im0.png",
		"/tmp/x/doc_10_Im0.png",
	}, paths)
}

// TestSortImagePaths_UnrecognizedNames verifies names without a page
// number sort after numbered ones, in name order.
func TestSortImagePaths_UnrecognizedNames(t *testing.T) {
	paths := []string{
		"/tmp/x/zz-extra.png",
		"/tmp/x/doc_3_Im0.png",
		"/tmp/x/aa-extra.png",
		"/tmp/x/doc_1_Im0.png",
	}

	sortImagePaths(paths)

	assert.Equal(t, []string{
		"/tmp/x/doc_1_Im0.png",
		"/tmp/x/doc_3_Im0.png",
		"/tmp/x/aa-extra.png",
		"/tmp/x/zz-extra.png",
	}, paths)
}

// TestImagePageNumber verifies page-number parsing of pdfcpu file names.
func TestImagePageNumber(t *testing.T) {
	tests := []struct {
		path string
		page int
		ok   bool
	}{
		{"/tmp/x/doc_1_Im0.png", 1, true},
		{"/tmp/x/doc_42_Im3.jpg", 42, true},
		{"/tmp/x/my_doc_7_Im0.tiff", 7, true},
		{"/tmp/x/cover.png", 0, false},
		{"/tmp/x/doc_Im0.png", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			page, ok := imagePageNumber(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.page, page)
		})
	}
}

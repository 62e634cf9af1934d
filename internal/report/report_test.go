package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// makeResult builds a finalized extraction result for tests.
func makeResult(name, text string, success bool, seconds float64) model.ExtractionResult {
	r := model.ExtractionResult{
		ExtractorName: name,
		Text:          text,
		Success:       success,
		Duration:      time.Duration(seconds * float64(time.Second)),
	}
	if !success {
		r.ErrorMessage = "parse error"
	}
	r.Finalize()
	return r
}

// TestDocumentResult_Stem verifies output file prefix derivation.
func TestDocumentResult_Stem(t *testing.T) {
	doc := &DocumentResult{Path: "/data/samples/법령집.pdf"}
	assert.Equal(t, "법령집", doc.Stem())

	doc = &DocumentResult{Path: "report.pdf"}
	assert.Equal(t, "report", doc.Stem())
}

// TestWriteTexts verifies one text file per successful extraction.
func TestWriteTexts(t *testing.T) {
	out := t.TempDir()
	doc := &DocumentResult{
		Path: "/in/sample.pdf",
		Kind: model.KindText,
		Results: []model.ExtractionResult{
			makeResult("native", "extracted text", true, 0.5),
			makeResult("ocr", "", false, 1.0),
		},
	}

	require.NoError(t, WriteTexts(out, doc))

	data, err := os.ReadFile(filepath.Join(out, "sample_native.txt"))
	require.NoError(t, err)
	assert.Equal(t, "extracted text", string(data))

	// Failed extractions leave no text file behind.
	_, err = os.Stat(filepath.Join(out, "sample_ocr.txt"))
	assert.True(t, os.IsNotExist(err))
}

// TestWriteSummary verifies the per-document JSON summary shape.
func TestWriteSummary(t *testing.T) {
	out := t.TempDir()
	doc := &DocumentResult{
		Path:    "/in/sample.pdf",
		Kind:    model.KindScanned,
		Results: []model.ExtractionResult{makeResult("ocr", "text here", true, 2.0)},
	}

	require.NoError(t, WriteSummary(out, doc))

	data, err := os.ReadFile(filepath.Join(out, "sample_summary.json"))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "scanned", decoded["kind"])
	assert.NotEmpty(t, decoded["generated_at"])

	results, ok := decoded["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "ocr", first["extractor"])
	assert.InDelta(t, 2.0, first["execution_time_seconds"], 0.001)
	// The raw text is deliberately excluded from the summary.
	assert.NotContains(t, first, "text")
}

// TestRenderReport verifies the per-document tables and the aggregate.
func TestRenderReport(t *testing.T) {
	docs := []*DocumentResult{
		{
			Path: "/in/a.pdf",
			Kind: model.KindText,
			Results: []model.ExtractionResult{
				makeResult("native", "one two three", true, 1.0),
				makeResult("ocr", "", false, 4.0),
			},
		},
		{
			Path: "/in/b.pdf",
			Kind: model.KindText,
			Results: []model.ExtractionResult{
				makeResult("native", "four five six", true, 3.0),
				makeResult("ocr", "six", true, 2.0),
			},
		},
	}

	md := RenderReport(docs)

	assert.Contains(t, md, "# PDF Text Extraction Comparison")
	assert.Contains(t, md, "## a.pdf (text)")
	assert.Contains(t, md, "## b.pdf (text)")
	assert.Contains(t, md, "| Extractor | Success | Time | Words | Chars | Lines |")
	assert.Contains(t, md, "| native | yes | 1.00s | 3 | 13 | 1 |")
	assert.Contains(t, md, "| ocr | no (parse error) | 4.00s | - | - | - |")

	// Aggregate: native 2/2 at avg 2.0s and 2.5 words; ocr 1/2.
	assert.Contains(t, md, "## Aggregate")
	assert.Contains(t, md, "| native | 100% (2/2) | 2.00s | 3 |")
	assert.Contains(t, md, "| ocr | 50% (1/2) | 2.00s | 1 |")
}

// TestRenderReport_UnclassifiedDocument verifies a document whose
// classification failed still gets a section with its failure row.
func TestRenderReport_UnclassifiedDocument(t *testing.T) {
	docs := []*DocumentResult{
		{
			Path: "/in/broken.pdf",
			Results: []model.ExtractionResult{
				{ExtractorName: "classification", ErrorMessage: "failed to read page count"},
			},
		},
	}

	md := RenderReport(docs)

	assert.Contains(t, md, "## broken.pdf (unclassified)")
	assert.Contains(t, md, "| classification | no (failed to read page count) |")
}

// TestWriteReport verifies the report lands at the expected path.
func TestWriteReport(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, WriteReport(out, nil))

	data, err := os.ReadFile(filepath.Join(out, reportFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# PDF Text Extraction Comparison")
}

// TestSanitizeCell verifies markdown-breaking characters are escaped and
// truncation never splits a multibyte character.
func TestSanitizeCell(t *testing.T) {
	assert.Equal(t, `a\|b`, sanitizeCell("a|b"))
	assert.Equal(t, "line one line two", sanitizeCell("line one\nline two"))

	long := sanitizeCell(strings.Repeat("x", 200))
	assert.Equal(t, strings.Repeat("x", 77)+"...", long)

	// Korean error messages must truncate on a rune boundary and stay
	// valid UTF-8.
	korean := sanitizeCell(strings.Repeat("한", 200))
	assert.Equal(t, strings.Repeat("한", 77)+"...", korean)
	assert.True(t, utf8.ValidString(korean))
}

// Package report writes comparison artifacts: the per-extractor text
// dumps, the per-document JSON summary, and the aggregated markdown
// report.
//
// All output files are written atomically (write-to-temp, rename) so an
// interrupted run never leaves a half-written report that a later run or
// a reader could mistake for a complete one.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// reportFileName is the aggregated markdown report written at the output
// directory root.
const reportFileName = "comparison_report.md"

// DocumentResult groups every extractor's result for one input PDF.
type DocumentResult struct {
	// Path is the input PDF path.
	Path string `json:"path"`

	// Kind is the classification verdict for the document.
	Kind model.PDFKind `json:"kind"`

	// Results holds one entry per extractor, in run order.
	Results []model.ExtractionResult `json:"results"`
}

// Stem returns the document's base name without the extension, used as
// the prefix for all its output files.
func (d *DocumentResult) Stem() string {
	base := filepath.Base(d.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteTexts writes one <stem>_<extractor>.txt per successful extraction
// into outDir. Failed extractions produce no text file; the summary and
// report record the failure.
func WriteTexts(outDir string, doc *DocumentResult) error {
	for _, r := range doc.Results {
		if !r.Success {
			continue
		}
		name := fmt.Sprintf("%s_%s.txt", doc.Stem(), r.ExtractorName)
		path := filepath.Join(outDir, name)
		if err := atomic.WriteFile(path, strings.NewReader(r.Text)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// summaryEnvelope adds the generation timestamp to a document summary.
type summaryEnvelope struct {
	GeneratedAt string `json:"generated_at"`
	*DocumentResult
}

// WriteSummary writes the <stem>_summary.json file for one document.
func WriteSummary(outDir string, doc *DocumentResult) error {
	envelope := summaryEnvelope{
		GeneratedAt:    time.Now().Format(time.RFC3339),
		DocumentResult: doc,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary for %s: %w", doc.Path, err)
	}

	path := filepath.Join(outDir, doc.Stem()+"_summary.json")
	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteReport writes the aggregated markdown comparison report covering
// all documents in the run.
func WriteReport(outDir string, docs []*DocumentResult) error {
	content := RenderReport(docs)
	path := filepath.Join(outDir, reportFileName)
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// RenderReport produces the markdown report: one results table per
// document, followed by a per-extractor aggregate table across the run.
func RenderReport(docs []*DocumentResult) string {
	var b strings.Builder

	b.WriteString("# PDF Text Extraction Comparison\n")

	for _, doc := range docs {
		fmt.Fprintf(&b, "\n## %s (%s)\n\n", filepath.Base(doc.Path), kindLabel(doc.Kind))
		b.WriteString("| Extractor | Success | Time | Words | Chars | Lines |\n")
		b.WriteString("|-----------|---------|------|-------|-------|-------|\n")
		for _, r := range doc.Results {
			if r.Success {
				fmt.Fprintf(&b, "| %s | yes | %.2fs | %d | %d | %d |\n",
					r.ExtractorName, r.Seconds, r.WordCount, r.CharCount, r.LineCount)
			} else {
				fmt.Fprintf(&b, "| %s | no (%s) | %.2fs | - | - | - |\n",
					r.ExtractorName, sanitizeCell(r.ErrorMessage), r.Seconds)
			}
		}
	}

	b.WriteString("\n## Aggregate\n\n")
	b.WriteString("| Extractor | Success Rate | Avg Time | Avg Words |\n")
	b.WriteString("|-----------|--------------|----------|-----------|\n")
	for _, row := range aggregate(docs) {
		fmt.Fprintf(&b, "| %s | %.0f%% (%d/%d) | %.2fs | %.0f |\n",
			row.name, row.successRate*100, row.successes, row.runs, row.avgSeconds, row.avgWords)
	}

	return b.String()
}

// kindLabel renders the classification verdict for report headings. A
// document whose classification failed has no kind; it still appears in
// the report with its failure row.
func kindLabel(kind model.PDFKind) string {
	if !kind.IsValid() {
		return "unclassified"
	}
	return kind.String()
}

// aggRow is one extractor's aggregate statistics over a run.
type aggRow struct {
	name        string
	runs        int
	successes   int
	successRate float64
	avgSeconds  float64
	avgWords    float64
}

// aggregate folds every document's results into per-extractor rows,
// sorted by extractor name. Averages cover successful runs only; a
// failed run has no meaningful word count.
func aggregate(docs []*DocumentResult) []aggRow {
	byName := map[string]*aggRow{}
	sumSeconds := map[string]float64{}
	sumWords := map[string]float64{}

	for _, doc := range docs {
		for _, r := range doc.Results {
			row, ok := byName[r.ExtractorName]
			if !ok {
				row = &aggRow{name: r.ExtractorName}
				byName[r.ExtractorName] = row
			}
			row.runs++
			if r.Success {
				row.successes++
				sumSeconds[r.ExtractorName] += r.Seconds
				sumWords[r.ExtractorName] += float64(r.WordCount)
			}
		}
	}

	var rows []aggRow
	for _, row := range byName {
		if row.runs > 0 {
			row.successRate = float64(row.successes) / float64(row.runs)
		}
		if row.successes > 0 {
			row.avgSeconds = sumSeconds[row.name] / float64(row.successes)
			row.avgWords = sumWords[row.name] / float64(row.successes)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	return rows
}

// sanitizeCell keeps an error message table-safe: pipes would break the
// markdown layout and multi-line messages would break the row. The
// truncation counts runes, not bytes; error messages carry Korean file
// names and a byte cut could split a character.
func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	if runes := []rune(s); len(runes) > 80 {
		s = string(runes[:77]) + "..."
	}
	return s
}

// Package classify decides whether a PDF carries a usable embedded text
// layer or is a scan that needs OCR.
//
// The decision is made per page and then aggregated. A page's embedded
// text is scored for quality: these documents are Korean, so a page is
// expected to be a meaningful share of Hangul syllables, and a page
// dominated by replacement characters, control characters, or unresolved
// CID references (the telltale output of broken font encodings) scores
// low and is marked for OCR even though it technically "has text". A
// document where most pages need OCR, or whose bytes-per-page is
// characteristic of full-page raster images, is classified as scanned
// outright.
package classify

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"unicode"

	gopdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

const (
	// expectedHangulRatio is the Hangul share of a healthy Korean text
	// page. The quality score scales linearly up to this ratio, so a
	// page with no Hangul at all scores zero and is sent to OCR.
	expectedHangulRatio = 0.20

	// garbagePenaltyWeight scales the replacement/control character
	// ratios. A small amount of mojibake tanks the score quickly.
	garbagePenaltyWeight = 10.0

	// cidPenaltyDivisor scales the absolute count of unresolved CID
	// references; ten or more hits on a page zero the score.
	cidPenaltyDivisor = 10.0

	// minPageScore is the quality score below which a page's embedded
	// text is considered unusable and OCR is forced for it.
	minPageScore = 0.35

	// minPageChars is the minimum non-whitespace character count for a
	// page to count as having a text layer at all.
	minPageChars = 50

	// scannedForceRatio is the share of force-OCR pages above which the
	// whole document is classified as scanned.
	scannedForceRatio = 0.85

	// scannedBytesPerPage is the average file bytes per page above which
	// the document is assumed to be image-based. Text-layer PDFs rarely
	// exceed a few KiB per page; full-page scans run an order of
	// magnitude larger.
	scannedBytesPerPage = 10 * 1024
)

// cidPattern matches unresolved character ID references that some
// extractors emit for fonts without a ToUnicode map.
var cidPattern = regexp.MustCompile(`\(cid:\d+\)`)

// openPDF opens the text-layer parser; a package variable so tests can
// substitute a failing or panicking opener.
var openPDF = gopdf.Open

// PageInfo is the classification verdict for one page.
type PageInfo struct {
	// Number is the 1-based page number.
	Number int `json:"page"`

	// Chars is the non-whitespace character count of the embedded text
	// layer.
	Chars int `json:"chars"`

	// Score is the text quality score in [0, 1].
	Score float64 `json:"score"`

	// ForceOCR is true when the embedded text is absent or unusable.
	ForceOCR bool `json:"force_ocr"`
}

// Result is the whole-document classification.
type Result struct {
	// Kind is the aggregate verdict.
	Kind model.PDFKind `json:"kind"`

	// Pages holds the per-page detail.
	Pages []PageInfo `json:"pages"`

	// ForceRatio is the share of pages marked ForceOCR.
	ForceRatio float64 `json:"force_ratio"`

	// BytesPerPage is the file size divided by the page count.
	BytesPerPage float64 `json:"bytes_per_page"`
}

// TextQuality scores extracted page text in [0, 1]. High scores mean the
// text looks like genuine Korean document content; low scores mean
// mojibake or no Hangul at all.
//
// The score starts at 1 and is scaled down multiplicatively: by the
// Hangul shortfall against the expected ratio, by the replacement and
// control character ratios (weighted so ~10% garbage zeroes the score),
// and by the absolute count of unresolved CID references. Ratios are
// computed over the non-whitespace characters only.
func TextQuality(text string) float64 {
	var n, hangul, replacement, control int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		n++
		switch {
		case r >= 0xAC00 && r <= 0xD7A3:
			hangul++
		case r == unicode.ReplacementChar:
			replacement++
		case unicode.In(r, unicode.C):
			control++
		}
	}
	if n == 0 {
		return 0
	}

	hangulRatio := float64(hangul) / float64(n)
	replRatio := float64(replacement) / float64(n)
	ctrlRatio := float64(control) / float64(n)
	cidHits := len(cidPattern.FindAllStringIndex(text, -1))

	score := 1.0
	score *= math.Min(1, hangulRatio/expectedHangulRatio)
	score *= 1 - math.Min(1, replRatio*garbagePenaltyWeight)
	score *= 1 - math.Min(1, ctrlRatio*garbagePenaltyWeight)
	score *= 1 - math.Min(1, float64(cidHits)/cidPenaltyDivisor)

	return math.Max(0, math.Min(1, score))
}

// classifyPage scores one page's embedded text.
func classifyPage(number int, text string) PageInfo {
	chars := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			chars++
		}
	}

	info := PageInfo{
		Number: number,
		Chars:  chars,
		Score:  TextQuality(text),
	}
	info.ForceOCR = info.Chars < minPageChars || info.Score < minPageScore
	return info
}

// Classify inspects a PDF file and returns the document-level verdict
// with per-page detail.
func Classify(path string) (*Result, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page count of %s: %w", path, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%s has no pages", path)
	}

	texts, err := pageTexts(path)
	if err != nil {
		return nil, err
	}

	res := &Result{
		BytesPerPage: float64(stat.Size()) / float64(pageCount),
	}

	forced := 0
	for i, text := range texts {
		info := classifyPage(i+1, text)
		if info.ForceOCR {
			forced++
		}
		res.Pages = append(res.Pages, info)
	}

	if len(res.Pages) > 0 {
		res.ForceRatio = float64(forced) / float64(len(res.Pages))
	} else {
		// The parsers disagree on the page count; without a readable
		// text layer every page would need OCR anyway.
		res.ForceRatio = 1
	}

	if res.ForceRatio > scannedForceRatio || res.BytesPerPage > scannedBytesPerPage {
		res.Kind = model.KindScanned
	} else {
		res.Kind = model.KindText
	}

	return res, nil
}

// pageTexts extracts the embedded text of every page. PDF parsers
// routinely panic on malformed cross-reference tables, and a single bad
// document must not take down a whole comparison batch, so panics are
// converted to errors here.
func pageTexts(path string) (texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			texts = nil
			err = fmt.Errorf("text-layer parser panicked on %s: %v", path, r)
		}
	}()

	f, r, err := openPDF(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		var text string
		if !page.V.IsNull() {
			// A single damaged page loses its text only.
			if t, pageErr := page.GetPlainText(nil); pageErr == nil {
				text = t
			}
		}
		texts = append(texts, text)
	}
	return texts, nil
}

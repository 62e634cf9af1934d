package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"
)

// Options configures the extractor set for one compare run. They are read
// from an optional pdf2txt.jsonc file in the working directory; the file
// allows comments so operators can annotate why an extractor is disabled.
type Options struct {
	// Languages is the Tesseract language set, "kor+eng" style.
	Languages string `json:"languages"`

	// TimeoutSeconds bounds one extractor run over one PDF. Zero means
	// no limit.
	TimeoutSeconds int `json:"timeoutSeconds"`

	// Disabled lists extractor names excluded from the run.
	Disabled []string `json:"disabled"`
}

// OptionsFileName is the optional per-directory extractor configuration.
const OptionsFileName = "pdf2txt.jsonc"

// DefaultOptions returns the built-in extractor configuration.
func DefaultOptions() Options {
	return Options{
		Languages:      defaultLanguages,
		TimeoutSeconds: 120,
	}
}

// Timeout returns the per-extraction time limit, or zero when unbounded.
func (o Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// IsDisabled reports whether the named extractor is excluded.
func (o Options) IsDisabled(name string) bool {
	for _, d := range o.Disabled {
		if d == name {
			return true
		}
	}
	return false
}

// LoadOptions reads the options file from dir, merged over the defaults.
// A missing file is not an error.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Strip comments and trailing commas, then parse as plain JSON.
	if err := json.Unmarshal(jsonc.ToJSON(data), &opts); err != nil {
		return opts, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return opts, nil
}

// Available builds the extractor set honoring the options: disabled
// extractors are dropped, and the OCR extractor uses the configured
// language set.
func Available(opts Options) []Extractor {
	all := []Extractor{
		NewNative(),
		NewNativeAlt(),
		NewOCR(NewTesseractEngine(opts.Languages)),
	}

	var out []Extractor
	for _, e := range all {
		if opts.IsDisabled(e.Name()) {
			continue
		}
		out = append(out, e)
	}
	return out
}

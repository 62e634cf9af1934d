// Package cli — extract.go implements the "pdf2txt extract" command,
// which converts a single PDF to plain text with one extractor.
//
// The PDF is classified first (unless --kind overrides it) so scanned
// documents automatically go through OCR while text documents use the
// faster embedded-layer extractor.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pdf2txt/internal/classify"
	"github.com/mmr-tortoise/pdf2txt/internal/extract"
	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// extractFlags holds the flag values for the extract command.
type extractFlags struct {
	// kind overrides classification: "text" or "scanned". Empty means
	// classify automatically.
	kind string

	// extractor selects a specific extractor by name instead of the
	// kind-based default.
	extractor string

	// output is the destination file. Empty means stdout.
	output string
}

// NewExtractCommand creates the "extract" cobra command.
func NewExtractCommand() *cobra.Command {
	flags := &extractFlags{}

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract plain text from one PDF",
		Long: `Extract plain text from a single PDF file.

The document is classified as text-layer or scanned first; text documents
use the embedded-layer extractor and scanned documents use OCR. Use --kind
to skip classification or --extractor to force a specific extractor.

Examples:
  pdf2txt extract report.pdf
  pdf2txt extract --kind scanned report.pdf
  pdf2txt extract --extractor native-alt -o report.txt report.pdf`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.kind, "kind", "", "Force document kind: text or scanned")
	cmd.Flags().StringVar(&flags.extractor, "extractor", "", "Force a specific extractor by name")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write text to file instead of stdout")

	return cmd
}

// runExtract is the main logic function for the extract command.
func runExtract(ctx context.Context, path string, flags *extractFlags) error {
	if _, err := os.Stat(path); err != nil {
		return model.WrapCLIError(model.ExitNoPDFsFound,
			fmt.Sprintf("input file %s not found", path), err)
	}

	opts, err := extract.LoadOptions(filepath.Join(filepath.Dir(path), extract.OptionsFileName))
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load extractor options", err)
	}

	kind, err := resolveKind(path, flags.kind)
	if err != nil {
		return err
	}
	VerboseLog("Classified %s as %s", path, kind)

	extractor, err := pickExtractor(kind, flags.extractor, opts)
	if err != nil {
		return err
	}
	VerboseLog("Using extractor %s (%s)", extractor.Name(), extractor.Description())

	if timeout := opts.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result := extract.Run(ctx, extractor, path)
	if !result.Success {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("extraction failed with %s: %s", result.ExtractorName, result.ErrorMessage))
	}

	if flags.output != "" {
		if err := os.WriteFile(flags.output, []byte(result.Text), 0o644); err != nil {
			return model.WrapCLIError(model.ExitGeneralError,
				fmt.Sprintf("failed to write %s", flags.output), err)
		}
		printExtractResult(path, kind, &result, flags.output)
		return nil
	}

	if IsJSONOutput() {
		printExtractResult(path, kind, &result, "")
		return nil
	}
	fmt.Print(result.Text)
	return nil
}

// resolveKind applies the --kind override or runs classification.
func resolveKind(path, override string) (model.PDFKind, error) {
	if override != "" {
		kind, err := model.ParsePDFKind(override)
		if err != nil {
			return "", model.WrapCLIError(model.ExitGeneralError, "invalid --kind value", err)
		}
		return kind, nil
	}

	res, err := classify.Classify(path)
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to classify %s", path), err)
	}
	return res.Kind, nil
}

// pickExtractor selects the extractor to run: an explicit --extractor by
// name, or the first kind-appropriate one from the available set.
func pickExtractor(kind model.PDFKind, name string, opts extract.Options) (extract.Extractor, error) {
	available := extract.Available(opts)

	if name != "" {
		for _, e := range available {
			if e.Name() == name {
				return e, nil
			}
		}
		var names []string
		for _, e := range available {
			names = append(names, e.Name())
		}
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("unknown extractor %q (available: %s)", name, strings.Join(names, ", ")))
	}

	candidates := extract.ForKind(kind, available)
	if len(candidates) == 0 {
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("no extractor available for %s documents", kind))
	}
	return candidates[0], nil
}

// printExtractResult outputs the extraction metadata in text or JSON.
func printExtractResult(path string, kind model.PDFKind, result *model.ExtractionResult, outFile string) {
	if IsJSONOutput() {
		out := map[string]interface{}{
			"path":   path,
			"kind":   kind,
			"result": result,
		}
		if outFile != "" {
			out["output"] = outFile
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Extracted %s (%s) with %s in %.2fs: %d words, %d chars → %s\n",
		filepath.Base(path), kind, result.ExtractorName, result.Seconds,
		result.WordCount, result.CharCount, outFile)
}

// Package cli — compare.go implements the "pdf2txt compare" command,
// which runs every applicable extractor over a directory of PDFs and
// writes comparison artifacts:
//
//	<out>/<stem>_<extractor>.txt   extracted text per extractor
//	<out>/<stem>_summary.json      per-document result summary
//	<out>/comparison_report.md     aggregated markdown report
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pdf2txt/internal/classify"
	"github.com/mmr-tortoise/pdf2txt/internal/extract"
	"github.com/mmr-tortoise/pdf2txt/internal/model"
	"github.com/mmr-tortoise/pdf2txt/internal/report"
)

// compareFlags holds the flag values for the compare command.
type compareFlags struct {
	// out is the output directory for comparison artifacts.
	out string

	// yes skips the overwrite confirmation for a non-empty output
	// directory.
	yes bool
}

// defaultOutDir is the output directory when --out is not given.
const defaultOutDir = "comparison_results"

// NewCompareCommand creates the "compare" cobra command.
func NewCompareCommand() *cobra.Command {
	flags := &compareFlags{}

	cmd := &cobra.Command{
		Use:   "compare <dir>",
		Short: "Run all extractors over a directory of PDFs and compare",
		Long: `Run every applicable extractor over each PDF in a directory, timing
them and writing per-extractor text dumps, per-document JSON summaries,
and an aggregated markdown comparison report.

Scanned documents only run OCR-capable extractors; text documents run
everything. An optional ` + extract.OptionsFileName + ` in the input
directory configures languages, timeouts, and disabled extractors.

Examples:
  pdf2txt compare ./samples
  pdf2txt compare --out ./results --yes ./samples`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.out, "out", "o", defaultOutDir, "Output directory for comparison artifacts")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Overwrite a non-empty output directory without prompting")

	return cmd
}

// runCompare is the main logic function for the compare command.
func runCompare(ctx context.Context, inDir string, flags *compareFlags) error {
	pdfs, err := listPDFs(inDir)
	if err != nil {
		return err
	}
	if len(pdfs) == 0 {
		return model.NewCLIError(model.ExitNoPDFsFound,
			fmt.Sprintf("no PDF files found in %s", inDir))
	}
	VerboseLog("Found %d PDFs in %s", len(pdfs), inDir)

	opts, err := extract.LoadOptions(filepath.Join(inDir, extract.OptionsFileName))
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load extractor options", err)
	}
	available := extract.Available(opts)
	if len(available) == 0 {
		return model.NewCLIError(model.ExitGeneralError, "all extractors are disabled")
	}

	if err := prepareOutDir(flags.out, flags.yes); err != nil {
		return err
	}

	var docs []*report.DocumentResult
	for _, path := range pdfs {
		doc := compareOne(ctx, path, available, opts)
		docs = append(docs, doc)

		if err := report.WriteTexts(flags.out, doc); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to write extracted text", err)
		}
		if err := report.WriteSummary(flags.out, doc); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to write document summary", err)
		}
	}

	if err := report.WriteReport(flags.out, docs); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write comparison report", err)
	}

	printCompareResult(flags.out, docs)
	return nil
}

// compareOne classifies one PDF and runs every applicable extractor.
//
// A document that cannot be classified does not abort the batch: it is
// recorded as a failed classification result and the run continues with
// the remaining PDFs, so one malformed file cannot cost the report for
// everything else.
func compareOne(ctx context.Context, path string, available []extract.Extractor, opts extract.Options) *report.DocumentResult {
	cls, err := classify.Classify(path)
	if err != nil {
		doc := &report.DocumentResult{
			Path: path,
			Results: []model.ExtractionResult{{
				ExtractorName: "classification",
				ErrorMessage:  err.Error(),
			}},
		}
		if !IsJSONOutput() {
			fmt.Printf("%s %s: classification (%s)\n",
				color.RedString("[fail]"), filepath.Base(path), err)
		}
		return doc
	}
	VerboseLog("%s classified as %s (force ratio %.2f, %.0f bytes/page)",
		filepath.Base(path), cls.Kind, cls.ForceRatio, cls.BytesPerPage)

	doc := &report.DocumentResult{Path: path, Kind: cls.Kind}

	for _, e := range extract.ForKind(cls.Kind, available) {
		runCtx := ctx
		var cancel context.CancelFunc
		if timeout := opts.Timeout(); timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		VerboseLog("Running %s on %s...", e.Name(), filepath.Base(path))
		result := extract.Run(runCtx, e, path)
		if cancel != nil {
			cancel()
		}

		doc.Results = append(doc.Results, result)

		if !IsJSONOutput() {
			if result.Success {
				fmt.Printf("%s %s: %s (%.2fs, %d words)\n",
					color.GreenString("[ok]"), filepath.Base(path), e.Name(),
					result.Seconds, result.WordCount)
			} else {
				fmt.Printf("%s %s: %s (%s)\n",
					color.RedString("[fail]"), filepath.Base(path), e.Name(),
					result.ErrorMessage)
			}
		}
	}

	return doc
}

// listPDFs returns the sorted paths of PDF files directly in dir.
// Subdirectories are not descended into; a comparison run is one flat
// batch of documents.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to read input directory %s", dir), err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// prepareOutDir creates the output directory, prompting before writing
// into a non-empty one so a previous run's artifacts are not silently
// mixed with new ones.
func prepareOutDir(dir string, yes bool) error {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) > 0 && !yes {
		confirmed, promptErr := confirmFunc(fmt.Sprintf(
			"Output directory %s is not empty. Continue and overwrite? [y/N] ", dir))
		if promptErr != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", promptErr)
		}
		if !confirmed {
			return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to create output directory %s", dir), err)
	}
	return nil
}

// printCompareResult outputs the run summary in text or JSON format.
func printCompareResult(outDir string, docs []*report.DocumentResult) {
	if IsJSONOutput() {
		out := map[string]interface{}{
			"outputDir": outDir,
			"documents": docs,
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	total, failed := 0, 0
	for _, doc := range docs {
		for _, r := range doc.Results {
			total++
			if !r.Success {
				failed++
			}
		}
	}

	fmt.Println()
	color.Green("Comparison complete.")
	fmt.Printf("  Documents:   %d\n", len(docs))
	fmt.Printf("  Extractions: %d (%d failed)\n", total, failed)
	fmt.Printf("  Report:      %s\n", filepath.Join(outDir, "comparison_report.md"))
}

// Package cli implements the cobra-based CLI commands for pdf2txt.
//
// Each subcommand lives in its own file (install.go, envs.go,
// extract.go, compare.go). This file holds the root command, the global
// flags, and the error/exit-code plumbing shared by all of them.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// Flag values bound to the root command's persistent flags, so every
// subcommand sees them without re-declaring anything.
var (
	// jsonOutput switches successful output and error output to
	// structured JSON for machine consumption; off means human-readable
	// text.
	jsonOutput bool

	// verbose turns on progress/trace lines to stderr.
	verbose bool
)

// Build identification, injected from main via the exported variables
// below; shown by --version.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand builds the command tree. The root command carries no
// behavior of its own beyond help, version, and the persistent flags;
// everything real happens in the subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pdf2txt",
		Short: "Offline PDF text-extraction toolkit provisioner and comparison harness",
		Long: `pdf2txt provisions a Python PDF-processing environment on machines with
no network access, using a bundle of pre-downloaded packages, and runs a
set of text extractors over PDFs to compare their output.

The install command finds the offline bundle next to the binary, creates
a conda environment, installs the bundled packages with pip in offline
mode, and verifies the key imports.`,

		// Errors and usage are printed by printError/Execute below, in
		// the format --json selects, so cobra's automatic output is
		// suppressed on both counts.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewEnvsCommand())
	rootCmd.AddCommand(NewExtractCommand())
	rootCmd.AddCommand(NewCompareCommand())

	return rootCmd
}

// Execute runs the command tree and maps the returned error onto a
// process exit code: a CLIError exits with its own code, anything else
// exits 1. Called once from main.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError writes an error to stderr, as a JSON object when --json is
// set and as "Error: <message>" text otherwise. Stderr is used in both
// modes; stdout stays reserved for successful command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog writes a progress line to stderr when --verbose is set.
// Subcommands use it to narrate the pipeline steps.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput reports whether --json is set; subcommands branch on it
// for their success output.
func IsJSONOutput() bool {
	return jsonOutput
}

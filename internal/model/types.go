// Package model defines the domain types for the pdf2txt CLI.
//
// All entities here are transient: the install pipeline reconstructs its
// state from the filesystem (bundle layout, conda environment directories)
// on every run, and extraction results live only for the duration of a
// single command invocation. Nothing in this package touches the disk.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PDFKind classifies a PDF by how its text should be extracted.
//
// A "text" PDF carries an embedded text layer produced by a word processor
// or typesetter; a "scanned" PDF is a stack of page images whose text only
// exists as pixels and must be recovered by OCR.
type PDFKind string

const (
	// KindText indicates the PDF has a usable embedded text layer.
	KindText PDFKind = "text"

	// KindScanned indicates the PDF is image-based and needs OCR.
	KindScanned PDFKind = "scanned"
)

// String returns the string representation of PDFKind.
func (k PDFKind) String() string {
	return string(k)
}

// IsValid checks whether the PDFKind value is one of the defined kinds.
func (k PDFKind) IsValid() bool {
	switch k {
	case KindText, KindScanned:
		return true
	default:
		return false
	}
}

// ParsePDFKind converts a string to a PDFKind.
// Returns an error if the string does not match any valid kind.
func ParsePDFKind(s string) (PDFKind, error) {
	kind := PDFKind(strings.ToLower(s))
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid PDF kind: %q (valid: text, scanned)", s)
	}
	return kind, nil
}

// Bundle describes the offline package bundle resolved relative to the
// binary's location. It is the implicit filesystem input of the install
// command: a directory of pre-downloaded wheel archives, an optional
// pinned-requirements manifest, and the bundled Python source tree.
type Bundle struct {
	// Root is the absolute path to the offline_packages directory.
	Root string `json:"root"`

	// WheelDir is the directory containing *.whl / *.tar.gz archives.
	WheelDir string `json:"wheelDir"`

	// ManifestPath is the path to requirements.txt, or empty if the
	// manifest does not exist. Callers fall back to installing every
	// local archive in that case.
	ManifestPath string `json:"manifestPath"`

	// SourceDir is the directory holding the bundled application source
	// (compare.py and the extractors subpackage) to be provisioned into
	// the project root.
	SourceDir string `json:"sourceDir"`

	// ProjectRoot is the directory the bundled source is copied into.
	ProjectRoot string `json:"projectRoot"`

	// ArchiveCount is the number of installable archives found in WheelDir.
	// Populated by bundle.Resolve; zero archives is a fatal condition.
	ArchiveCount int `json:"archiveCount"`
}

// HasManifest reports whether the pinned-requirements manifest exists.
func (b *Bundle) HasManifest() bool {
	return b.ManifestPath != ""
}

// EnvPaths holds the resolved executable paths of a named conda environment.
//
// Paths are computed directly from the environment directory rather than
// relying on shell activation, which keeps the pipeline robust to whatever
// shell (or lack of one) the operator runs it from.
type EnvPaths struct {
	// Name is the environment's unique identifier (e.g., "pdf2txt").
	Name string `json:"name"`

	// Dir is the absolute path to the environment directory under the
	// package manager's envs storage location.
	Dir string `json:"dir"`

	// Python is the absolute path to the environment's interpreter.
	Python string `json:"python"`

	// Pip is the absolute path to the environment's package installer.
	Pip string `json:"pip"`
}

// VerifyResult records the outcome of importing one key package in the
// freshly provisioned environment. Verification is diagnostic only: a
// failed import is reported but never aborts the pipeline.
type VerifyResult struct {
	// Package is the import name that was probed.
	Package string `json:"package"`

	// OK is true if the import succeeded.
	OK bool `json:"ok"`

	// Detail carries the interpreter's error output when OK is false.
	Detail string `json:"detail,omitempty"`
}

// ExtractionResult is the outcome of running one extractor over one PDF.
// Count fields are derived from the text by Finalize.
type ExtractionResult struct {
	// ExtractorName identifies which extractor produced this result.
	ExtractorName string `json:"extractor"`

	// Text is the extracted plain text. Empty on failure.
	Text string `json:"-"`

	// Success is true if extraction completed without error.
	Success bool `json:"success"`

	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string `json:"error,omitempty"`

	// Duration is the wall-clock time the extraction took.
	Duration time.Duration `json:"-"`

	// Seconds is Duration expressed as float seconds for JSON summaries.
	Seconds float64 `json:"execution_time_seconds"`

	// CharCount, WordCount, and LineCount summarize the extracted text.
	CharCount int `json:"char_count"`
	WordCount int `json:"word_count"`
	LineCount int `json:"line_count"`
}

// Finalize derives the count fields and the Seconds field. It must be
// called after Text and Duration are set; extract.Run does this for every
// result it produces.
func (r *ExtractionResult) Finalize() {
	r.Seconds = r.Duration.Seconds()
	if !r.Success || r.Text == "" {
		return
	}
	r.CharCount = len([]rune(r.Text))
	r.WordCount = len(strings.Fields(r.Text))
	r.LineCount = len(strings.Split(strings.TrimRight(r.Text, "\n"), "\n"))
}

// envNameRegex validates environment names: alphanumeric + hyphens +
// underscores, must start and end with alphanumeric. Conda itself is
// permissive, but restricting the charset keeps generated paths and
// manual remediation commands copy-pasteable on every shell.
var envNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateEnvName checks if the given name is a valid environment name.
func ValidateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name must not be empty")
	}
	if !envNameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: must contain only alphanumeric characters, hyphens, and underscores, and start/end with alphanumeric", name)
	}
	return nil
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitBundleNotFound indicates the offline package bundle could not be
	// located relative to the binary, or it contains no installable archives.
	ExitBundleNotFound ExitCode = 2

	// ExitCondaNotFound indicates no conda executable was found at any of
	// the conventional installation paths or on PATH.
	ExitCondaNotFound ExitCode = 3

	// ExitEnvCreateFailed indicates environment creation failed both
	// offline and online, or the environment directory was missing after
	// an apparently successful creation.
	ExitEnvCreateFailed ExitCode = 4

	// ExitInstallerMissing indicates the environment's pip executable was
	// not found at its expected location.
	ExitInstallerMissing ExitCode = 5

	// ExitUserCancelled indicates the user cancelled an interactive prompt.
	ExitUserCancelled ExitCode = 6

	// ExitNoPDFsFound indicates the extract/compare input contained no
	// PDF files.
	ExitNoPDFsFound ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

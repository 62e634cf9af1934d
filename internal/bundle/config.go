package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the bundle-level settings read from bundle.yaml at the
// bundle root. Every field is optional; absent fields keep the built-in
// defaults, so a bundle without the file behaves exactly like the
// original hard-coded installer.
type Config struct {
	// EnvName is the default name for the conda environment.
	EnvName string `yaml:"envName"`

	// PythonVersion is the interpreter version pinned at environment
	// creation (e.g., "3.10").
	PythonVersion string `yaml:"pythonVersion"`

	// KeyPackages lists the import names probed by post-install
	// verification.
	KeyPackages []string `yaml:"keyPackages"`

	// CopyFiles lists the top-level files copied from the bundle's
	// source directory into the project root.
	CopyFiles []string `yaml:"copyFiles"`

	// CopyDirs lists the subdirectories copied from the bundle's source
	// directory into the project root.
	CopyDirs []string `yaml:"copyDirs"`

	// SkippedExtractors names the optional extractors that are
	// intentionally not installed offline; they are listed in the
	// completion summary so the operator knows what is missing and why.
	SkippedExtractors []string `yaml:"skippedExtractors"`
}

// configFileName is the optional per-bundle configuration file.
const configFileName = "bundle.yaml"

// DefaultConfig returns the built-in bundle configuration, matching the
// values the original installer hard-coded.
func DefaultConfig() Config {
	return Config{
		EnvName:       "pdf2txt",
		PythonVersion: "3.10",
		KeyPackages:   []string{"fitz", "paddleocr", "PIL", "numpy"},
		CopyFiles:     []string{"compare.py", "pyproject.toml", "README.md"},
		CopyDirs:      []string{"extractors", "utils"},
		SkippedExtractors: []string{
			"pdfminer", "pdfplumber", "pypdf", "pytesseract", "marker", "docling",
		},
	}
}

// LoadConfig reads bundle.yaml from the bundle root and merges it over the
// defaults. A missing file is not an error. A malformed file is, because
// silently ignoring operator-written configuration would be worse than
// failing loudly.
func LoadConfig(bundleRoot string) (Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(bundleRoot, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var overrides Config
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Merge: non-zero override fields replace the defaults wholesale.
	// List fields replace rather than append so a bundle can shrink a
	// list, not only grow it.
	if overrides.EnvName != "" {
		cfg.EnvName = overrides.EnvName
	}
	if overrides.PythonVersion != "" {
		cfg.PythonVersion = overrides.PythonVersion
	}
	if overrides.KeyPackages != nil {
		cfg.KeyPackages = overrides.KeyPackages
	}
	if overrides.CopyFiles != nil {
		cfg.CopyFiles = overrides.CopyFiles
	}
	if overrides.CopyDirs != nil {
		cfg.CopyDirs = overrides.CopyDirs
	}
	if overrides.SkippedExtractors != nil {
		cfg.SkippedExtractors = overrides.SkippedExtractors
	}

	return cfg, nil
}

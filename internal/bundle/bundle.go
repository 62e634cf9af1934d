// Package bundle locates and validates the offline package bundle.
//
// The bundle is a directory tree of pre-downloaded artifacts that lets the
// install command provision a Python environment on a machine with no
// network access:
//
//	offline_packages/
//	  wheels/             *.whl / *.tar.gz archives
//	  requirements.txt    pinned dependency manifest (optional)
//	  source/             compare.py, utils/, extractors/ subpackage
//	  bundle.yaml         bundle-level overrides (optional)
//
// Two on-disk layouts are supported, depending on where the binary sits:
//
//	Layout A: binary next to the bundle
//	  <dir>/pdf2txt(.exe)
//	  <dir>/offline_packages/
//
//	Layout B: binary in a scripts/ directory one level down
//	  <dir>/scripts/pdf2txt(.exe)
//	  <dir>/offline_packages/
//
// Resolve probes both and fails with ExitBundleNotFound when neither matches.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

const (
	// bundleDirName is the name of the offline bundle directory.
	bundleDirName = "offline_packages"

	// wheelDirName is the archive directory inside the bundle.
	wheelDirName = "wheels"

	// manifestName is the pinned-requirements manifest file name.
	manifestName = "requirements.txt"

	// sourceDirName is the bundled application source directory.
	sourceDirName = "source"

	// scriptsDirName is the directory name that marks Layout B.
	scriptsDirName = "scripts"
)

// archiveExtensions lists the file suffixes counted as installable archives.
// Wheels are the normal case; sdist tarballs appear for packages that ship
// no prebuilt wheel for the target platform.
var archiveExtensions = []string{".whl", ".tar.gz"}

// Resolve locates the offline bundle relative to startDir (normally the
// directory containing the running binary).
//
// Layout detection:
//  1. <startDir>/offline_packages exists → Layout A; the project root is
//     startDir itself.
//  2. startDir is named "scripts" and <parent>/offline_packages exists →
//     Layout B; the project root is the parent directory.
//
// On success the returned Bundle has all paths populated and ArchiveCount
// set. ManifestPath is empty when requirements.txt does not exist.
//
// Returns a CLIError with ExitBundleNotFound if no layout matches.
func Resolve(startDir string) (*model.Bundle, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to resolve start directory %q", startDir), err)
	}

	// Candidate (bundle root, project root) pairs in priority order.
	type layout struct {
		root    string
		project string
	}
	candidates := []layout{
		{root: filepath.Join(absStart, bundleDirName), project: absStart},
	}
	if filepath.Base(absStart) == scriptsDirName {
		parent := filepath.Dir(absStart)
		candidates = append(candidates, layout{
			root:    filepath.Join(parent, bundleDirName),
			project: parent,
		})
	}

	for _, c := range candidates {
		info, statErr := os.Stat(c.root)
		if statErr != nil || !info.IsDir() {
			continue
		}

		b := &model.Bundle{
			Root:        c.root,
			WheelDir:    filepath.Join(c.root, wheelDirName),
			SourceDir:   filepath.Join(c.root, sourceDirName),
			ProjectRoot: c.project,
		}

		// The manifest is optional — record its path only if present so
		// callers can branch on HasManifest without re-statting.
		manifest := filepath.Join(c.root, manifestName)
		if _, statErr := os.Stat(manifest); statErr == nil {
			b.ManifestPath = manifest
		}

		b.ArchiveCount = CountArchives(b.WheelDir)
		return b, nil
	}

	return nil, model.NewCLIError(model.ExitBundleNotFound,
		fmt.Sprintf("offline package bundle not found: expected %s next to the binary or next to its scripts/ parent (searched from %s)",
			bundleDirName, absStart))
}

// CountArchives returns the number of installable package archives in dir.
// Returns 0 if the directory does not exist or cannot be read — the caller
// treats zero as fatal either way, so the distinction doesn't matter here.
func CountArchives(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsArchive(e.Name()) {
			count++
		}
	}
	return count
}

// ListArchives returns the file names of all installable archives in dir,
// in directory order. Used by the no-manifest install fallback, which
// installs every local archive.
func ListArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsArchive(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// IsArchive reports whether the file name looks like an installable
// package archive.
func IsArchive(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

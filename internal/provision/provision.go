// Package provision copies the bundled application source into the
// project root.
//
// The operation is strictly copy-if-absent: an existing destination file
// or directory is never touched, because the operator may have edited the
// provisioned copies (tuned compare.py options, added extractors) and a
// re-run of install must not destroy that work. Re-running against an
// already provisioned project is therefore a no-op, reported as skips.
package provision

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// Result reports what one provisioning pass did.
type Result struct {
	// Copied lists the relative names that were freshly copied.
	Copied []string `json:"copied"`

	// Skipped lists the relative names left alone because the
	// destination already existed.
	Skipped []string `json:"skipped"`

	// Missing lists configured names absent from the bundle source
	// directory. Advisory: a lean bundle may legitimately omit entries.
	Missing []string `json:"missing,omitempty"`
}

// Run copies the configured files and directories from the bundle's
// source directory into the project root, skipping anything that already
// exists at the destination.
func Run(b *model.Bundle, files, dirs []string) (*Result, error) {
	res := &Result{}

	for _, name := range files {
		src := filepath.Join(b.SourceDir, name)
		dst := filepath.Join(b.ProjectRoot, name)

		if _, err := os.Stat(src); err != nil {
			res.Missing = append(res.Missing, name)
			continue
		}
		if _, err := os.Stat(dst); err == nil {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		info, err := os.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", src, err)
		}
		if err := copyFile(src, dst, info.Mode()); err != nil {
			return nil, err
		}
		res.Copied = append(res.Copied, name)
	}

	for _, name := range dirs {
		src := filepath.Join(b.SourceDir, name)
		dst := filepath.Join(b.ProjectRoot, name)

		info, err := os.Stat(src)
		if err != nil || !info.IsDir() {
			res.Missing = append(res.Missing, name)
			continue
		}
		if _, err := os.Stat(dst); err == nil {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		if err := copyDir(src, dst); err != nil {
			return nil, err
		}
		res.Copied = append(res.Copied, name)
	}

	return res, nil
}

// copyDir recursively copies a directory tree, preserving file modes.
// Symbolic links are skipped to keep the copy behavior predictable.
func copyDir(srcDir, dstDir string) error {
	return filepath.Walk(srcDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error walking source directory at %s: %w", path, walkErr)
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		dstPath := filepath.Join(dstDir, relPath)

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		if info.IsDir() {
			if err := os.MkdirAll(dstPath, info.Mode()); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dstPath, err)
			}
			return nil
		}

		return copyFile(path, dstPath, info.Mode())
	})
}

// copyFile streams one file from src to dst, creating dst with the given
// mode.
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	return nil
}

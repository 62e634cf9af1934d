// Package pip drives the environment's package installer in offline mode.
//
// Every install invocation carries --no-index --find-links <wheelDir>, so
// pip can only ever resolve against the local bundle and never attempts a
// network fetch. All pip operations run through the environment's python
// as `python -m pip`, which sidesteps the Windows problem of pip.exe
// locking itself during a self-upgrade.
package pip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/pdf2txt/internal/bundle"
	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// Runner executes external commands. Mirrors the conda package's interface
// so tests can record invocations without a provisioned environment.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) (string, error)
}

// Installer runs pip inside one resolved environment with a scoped process
// environment.
type Installer struct {
	paths  *model.EnvPaths
	env    []string
	runner Runner
}

// New returns an Installer for the given environment. env is the scoped
// process environment (conda's directories on PATH) passed to every child
// process.
func New(paths *model.EnvPaths, env []string, runner Runner) *Installer {
	return &Installer{paths: paths, env: env, runner: runner}
}

// offlineFlags returns the flags that pin pip to the local bundle.
func offlineFlags(wheelDir string) []string {
	return []string{"--no-index", "--find-links", wheelDir}
}

// FindLocalUpgrade looks for a pip wheel in the bundle's archive directory.
// Returns the archive path, or empty string if the bundle does not carry a
// newer pip.
func FindLocalUpgrade(wheelDir string) string {
	entries, err := os.ReadDir(wheelDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.HasPrefix(name, "pip-") && strings.HasSuffix(name, ".whl") {
			return filepath.Join(wheelDir, e.Name())
		}
	}
	return ""
}

// SelfUpgrade upgrades pip itself from a local wheel before anything else
// is installed. Old pip releases reject wheels built with newer metadata
// versions, so the bundled packages may not install at all until pip is
// current.
//
// A failed self-upgrade is advisory: the error is returned for the caller
// to report, but installation proceeds with the existing pip.
func (i *Installer) SelfUpgrade(ctx context.Context, wheelDir, wheelPath string) error {
	args := []string{"-m", "pip", "install"}
	args = append(args, offlineFlags(wheelDir)...)
	args = append(args, "--upgrade", wheelPath)

	out, err := i.runner.Run(ctx, i.env, i.paths.Python, args...)
	if err != nil {
		return fmt.Errorf("pip self-upgrade failed: %s", strings.TrimSpace(out))
	}
	return nil
}

// InstallRequirements installs the bundled packages into the environment.
//
// When the bundle carries a pinned-requirements manifest, that is
// installed with -r, which gives pip the full dependency closure to
// resolve in one pass. Without a manifest, every local archive is passed
// on the command line instead; ordering does not matter because pip
// resolves dependencies among the named archives before installing.
//
// Returns a CLIError with ExitGeneralError on failure; at this stage the
// environment exists but is unusable, and the message includes the exact
// manual command.
func (i *Installer) InstallRequirements(ctx context.Context, b *model.Bundle) error {
	args := []string{"-m", "pip", "install"}
	args = append(args, offlineFlags(b.WheelDir)...)

	var manual string
	if b.HasManifest() {
		args = append(args, "-r", b.ManifestPath)
		manual = fmt.Sprintf("%s -m pip install --no-index --find-links %s -r %s",
			i.paths.Python, b.WheelDir, b.ManifestPath)
	} else {
		archives, err := bundle.ListArchives(b.WheelDir)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError,
				"failed to enumerate bundled archives", err)
		}
		if len(archives) == 0 {
			return model.NewCLIError(model.ExitBundleNotFound,
				fmt.Sprintf("no installable archives found in %s", b.WheelDir))
		}
		for _, name := range archives {
			args = append(args, filepath.Join(b.WheelDir, name))
		}
		manual = fmt.Sprintf("%s -m pip install --no-index --find-links %s <archives...>",
			i.paths.Python, b.WheelDir)
	}

	out, err := i.runner.Run(ctx, i.env, i.paths.Python, args...)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("package installation failed: %s\nRun manually and retry:\n  %s",
				strings.TrimSpace(out), manual),
			err)
	}
	return nil
}

// VerifyImports probes each key package by importing it in the
// environment's interpreter. Failures are isolated: every package is
// probed regardless of earlier results, and nothing here is fatal — the
// results feed the completion summary so the operator can judge whether
// the missing pieces matter for their use.
func (i *Installer) VerifyImports(ctx context.Context, packages []string) []model.VerifyResult {
	results := make([]model.VerifyResult, 0, len(packages))
	for _, pkg := range packages {
		out, err := i.runner.Run(ctx, i.env, i.paths.Python, "-c", "import "+pkg)
		r := model.VerifyResult{Package: pkg, OK: err == nil}
		if err != nil {
			r.Detail = strings.TrimSpace(out)
		}
		results = append(results, r)
	}
	return results
}

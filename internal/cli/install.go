// Package cli — install.go implements the "pdf2txt install" command.
//
// The install command provisions the Python environment from the offline
// bundle next to the binary:
//  1. Resolve the bundle (wheels, manifest, bundled source)
//  2. Locate a conda installation (fixed paths, then PATH)
//  3. Create the conda environment (offline first, online retry)
//  4. Self-upgrade pip from the bundled wheel, if present
//  5. Install the bundled packages with pip in offline mode
//  6. Verify the key package imports
//  7. Copy the bundled source into the project root (never overwriting)
//
// Failures split into fatal (no bundle, no conda, environment cannot be
// created, pip missing) and advisory (pip self-upgrade failed, an import
// probe failed, a configured source entry is missing from the bundle):
// advisory problems are reported in the summary and the command still
// exits zero, because a partially provisioned environment is usually
// usable for the extractors that did install.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/pdf2txt/internal/bundle"
	"github.com/mmr-tortoise/pdf2txt/internal/conda"
	"github.com/mmr-tortoise/pdf2txt/internal/model"
	"github.com/mmr-tortoise/pdf2txt/internal/pip"
	"github.com/mmr-tortoise/pdf2txt/internal/provision"
)

// installFlags holds the flag values for the install command.
type installFlags struct {
	// envName overrides the environment name from bundle.yaml.
	envName string

	// force recreates an existing environment without prompting.
	force bool

	// yes answers yes to every interactive prompt.
	yes bool
}

// confirmFunc asks the user a yes/no question. A package-level variable
// so tests can substitute a canned answer instead of reading stdin.
var confirmFunc = promptConfirm

// NewInstallCommand creates the "install" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewInstallCommand() *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Provision the Python environment from the offline bundle",
		Long: `Provision a conda environment from the offline package bundle located
next to the binary (or next to its scripts/ parent directory).

If the environment already exists, the command asks whether to delete and
recreate it; declining reuses the existing environment and continues with
package installation.

Examples:
  pdf2txt install
  pdf2txt install --env myenv
  pdf2txt install --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.envName, "env", "", "Environment name (default from bundle.yaml)")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Recreate an existing environment without prompting")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Assume yes for all prompts")

	return cmd
}

// installSummary is the machine-readable outcome of one install run.
type installSummary struct {
	EnvName           string               `json:"envName"`
	EnvDir            string               `json:"envDir"`
	Recreated         bool                 `json:"recreated"`
	ArchiveCount      int                  `json:"archiveCount"`
	PipUpgraded       bool                 `json:"pipUpgraded"`
	Verify            []model.VerifyResult `json:"verify"`
	Provision         *provision.Result    `json:"provision"`
	SkippedExtractors []string             `json:"skippedExtractors,omitempty"`
	Warnings          []string             `json:"warnings,omitempty"`
}

// runInstall is the main logic function for the install command.
func runInstall(ctx context.Context, flags *installFlags) error {
	// Step 1: Resolve the offline bundle relative to the binary.
	exe, err := os.Executable()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to locate the running binary", err)
	}

	b, err := bundle.Resolve(filepath.Dir(exe))
	if err != nil {
		return err
	}
	VerboseLog("Found bundle at %s (%d archives)", b.Root, b.ArchiveCount)

	if b.ArchiveCount == 0 {
		return model.NewCLIError(model.ExitBundleNotFound,
			fmt.Sprintf("bundle at %s contains no installable archives in %s", b.Root, b.WheelDir))
	}

	cfg, err := bundle.LoadConfig(b.Root)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load bundle configuration", err)
	}

	envName := cfg.EnvName
	if flags.envName != "" {
		envName = flags.envName
	}
	if err := model.ValidateEnvName(envName); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid environment name", err)
	}

	summary := &installSummary{
		EnvName:           envName,
		ArchiveCount:      b.ArchiveCount,
		SkippedExtractors: cfg.SkippedExtractors,
	}

	// Step 2: Locate conda.
	tool, err := conda.Locate(nil)
	if err != nil {
		return err
	}
	VerboseLog("Using conda at %s (root %s, integration %s)", tool.Exe, tool.Root, tool.Mode)
	stepDone("Found conda at %s", tool.Exe)

	// Step 3: Create or reuse the environment.
	createNeeded, recreated, err := resolveEnvState(ctx, tool, envName, flags)
	if err != nil {
		return err
	}
	summary.Recreated = recreated
	if !createNeeded {
		stepDone("Reusing existing environment %q", envName)
	}

	if createNeeded {
		VerboseLog("Creating environment %q (python=%s)...", envName, cfg.PythonVersion)
		if err := tool.CreateEnv(ctx, envName, cfg.PythonVersion); err != nil {
			return err
		}
		stepDone("Created environment %q (python=%s)", envName, cfg.PythonVersion)
	}

	envDir := tool.EnvDir(envName)
	summary.EnvDir = envDir

	paths, err := conda.ResolveEnvPaths(envName, envDir)
	if err != nil {
		return err
	}

	installer := pip.New(paths, tool.Environ(), conda.NewExecRunner())

	// Step 4: Self-upgrade pip from the bundled wheel, if one is present.
	if wheel := pip.FindLocalUpgrade(b.WheelDir); wheel != "" {
		VerboseLog("Upgrading pip from %s...", wheel)
		if err := installer.SelfUpgrade(ctx, b.WheelDir, wheel); err != nil {
			summary.Warnings = append(summary.Warnings, err.Error())
			stepWarn("pip self-upgrade failed, continuing with the existing pip")
		} else {
			summary.PipUpgraded = true
			stepDone("Upgraded pip from bundled wheel")
		}
	}

	// Step 5: Install the bundled packages.
	VerboseLog("Installing packages from %s...", b.WheelDir)
	if err := installer.InstallRequirements(ctx, b); err != nil {
		return err
	}
	stepDone("Installed %d bundled archives", b.ArchiveCount)

	// Step 6: Verify the key imports.
	summary.Verify = installer.VerifyImports(ctx, cfg.KeyPackages)
	for _, v := range summary.Verify {
		if v.OK {
			stepDone("import %s", v.Package)
		} else {
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("import %s failed: %s", v.Package, v.Detail))
			stepWarn("import %s failed", v.Package)
		}
	}

	// Step 7: Copy the bundled source into the project root.
	prov, err := provision.Run(b, cfg.CopyFiles, cfg.CopyDirs)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to provision bundled source", err)
	}
	summary.Provision = prov
	for _, name := range prov.Missing {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("bundled source entry %q not found in %s", name, b.SourceDir))
	}

	printInstallResult(summary, paths)
	return nil
}

// envManager is the slice of the conda tool the environment
// create-or-reuse decision needs; *conda.Tool satisfies it, and tests
// substitute a recording fake.
type envManager interface {
	EnvExists(ctx context.Context, name string) (bool, error)
	RemoveEnv(ctx context.Context, name string) error
}

// resolveEnvState decides whether the named environment must be created.
//
// A missing environment is simply created. An existing one is removed
// first when --force or --yes is set, or when the user confirms the
// interactive prompt; declining the prompt keeps the environment as-is
// and the rest of the pipeline installs into it.
func resolveEnvState(ctx context.Context, mgr envManager, envName string, flags *installFlags) (createNeeded, recreated bool, err error) {
	exists, err := mgr.EnvExists(ctx, envName)
	if err != nil {
		return false, false, model.WrapCLIError(model.ExitGeneralError,
			"failed to query existing environments", err)
	}
	if !exists {
		return true, false, nil
	}

	recreate := flags.force || flags.yes
	if !recreate {
		confirmed, promptErr := confirmFunc(fmt.Sprintf(
			"Environment %q already exists. Delete and recreate it? [y/N] ", envName))
		if promptErr != nil {
			return false, false, model.WrapCLIError(model.ExitGeneralError,
				"failed to read user input", promptErr)
		}
		recreate = confirmed
	}
	if !recreate {
		return false, false, nil
	}

	VerboseLog("Removing existing environment %q...", envName)
	if err := mgr.RemoveEnv(ctx, envName); err != nil {
		return false, false, model.WrapCLIError(model.ExitEnvCreateFailed,
			fmt.Sprintf("failed to remove existing environment %q", envName), err)
	}
	return true, true, nil
}

// promptConfirm asks the user a yes/no question on stdout and reads a
// single line from stdin. "y" or "yes" (case-insensitive) confirms.
func promptConfirm(prompt string) (bool, error) {
	fmt.Print(prompt)

	// bufio.Scanner handles different line endings across platforms
	// (LF on Unix, CRLF on Windows).
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}

	// If stdin is closed or an error occurred, treat it as "no".
	if err := scanner.Err(); err != nil {
		return false, err
	}

	return false, nil
}

// stepDone prints a green success line for one install step.
func stepDone(format string, args ...interface{}) {
	if IsJSONOutput() {
		return
	}
	fmt.Printf("%s %s\n", color.GreenString("[ok]"), fmt.Sprintf(format, args...))
}

// stepWarn prints a yellow advisory line for one install step.
func stepWarn(format string, args ...interface{}) {
	if IsJSONOutput() {
		return
	}
	fmt.Printf("%s %s\n", color.YellowString("[warn]"), fmt.Sprintf(format, args...))
}

// printInstallResult outputs the install summary in text or JSON format.
func printInstallResult(summary *installSummary, paths *model.EnvPaths) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Println()
	color.Green("Installation complete.")
	fmt.Printf("  Environment: %s (%s)\n", summary.EnvName, summary.EnvDir)
	fmt.Printf("  Python:      %s\n", paths.Python)
	if summary.Provision != nil {
		fmt.Printf("  Provisioned: %d copied, %d skipped (already present)\n",
			len(summary.Provision.Copied), len(summary.Provision.Skipped))
	}
	if len(summary.SkippedExtractors) > 0 {
		fmt.Printf("  Not installed offline: %s\n", strings.Join(summary.SkippedExtractors, ", "))
	}
	if len(summary.Warnings) > 0 {
		fmt.Println()
		color.Yellow("Warnings:")
		for _, w := range summary.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	fmt.Println()
	fmt.Printf("Activate with: conda activate %s\n", summary.EnvName)
}

// Package conda locates a conda installation and manages named environments
// through it.
//
// Discovery probes a fixed ordered list of conventional installation paths
// (per-user and per-machine, miniconda and anaconda naming, Windows and
// Unix layouts) before falling back to a PATH lookup. This mirrors how an
// offline Windows box is typically set up: conda was installed from a USB
// stick into one of a handful of well-known locations and was never added
// to PATH.
//
// Shell integration is deliberately NOT performed by sourcing conda's hook
// into this process's global state. Instead, the resolved Tool carries its
// own environment slice with conda's binary directories prepended to PATH;
// every child process receives that slice explicitly. Repeated or
// concurrent provisioning runs in the same process therefore cannot
// interfere with each other.
package conda

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// IntegrationMode records how the conda installation was made callable.
type IntegrationMode string

const (
	// IntegrationHook means conda's own shell hook script was found; the
	// installation is complete and child processes would also work from
	// an activated shell.
	IntegrationHook IntegrationMode = "hook"

	// IntegrationPathPrepend means no hook script was found and conda's
	// binary directories were prepended to the Tool's scoped PATH instead.
	IntegrationPathPrepend IntegrationMode = "path-prepend"
)

// Tool is a resolved conda installation plus the scoped process
// environment used for every invocation.
type Tool struct {
	// Exe is the absolute path to the conda executable.
	Exe string

	// Root is the conda installation root (the directory containing
	// envs/, condabin/, and Scripts/ or bin/).
	Root string

	// Mode records which integration strategy applied.
	Mode IntegrationMode

	// env is the scoped environment for child processes: the current
	// process environment with conda's directories prepended to PATH.
	env []string

	// runner executes external commands; injectable for tests.
	runner Runner
}

// Locate finds a conda installation by probing conventional paths, then
// falling back to a PATH lookup.
//
// Returns a CLIError with ExitCondaNotFound, including manual-remediation
// instructions, if nothing is found.
func Locate(runner Runner) (*Tool, error) {
	if runner == nil {
		runner = NewExecRunner()
	}

	for _, candidate := range probePaths() {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return newTool(candidate, runner), nil
	}

	// Fall back to PATH. LookPath also resolves conda.bat/conda.exe on
	// Windows via PATHEXT.
	if exe, err := exec.LookPath(condaExeName()); err == nil {
		abs, absErr := filepath.Abs(exe)
		if absErr == nil {
			exe = abs
		}
		return newTool(exe, runner), nil
	}

	return nil, model.NewCLIError(model.ExitCondaNotFound,
		"conda not found at any conventional location or on PATH\n"+
			"Install Miniconda (offline installer) and re-run, or add an existing\n"+
			"conda installation's Scripts/condabin directory to PATH")
}

// newTool builds a Tool from a resolved executable path: derives the
// installation root, picks the integration mode, and assembles the scoped
// environment.
func newTool(exe string, runner Runner) *Tool {
	root := installRoot(exe)

	t := &Tool{
		Exe:    exe,
		Root:   root,
		runner: runner,
	}

	if hookExists(root) {
		t.Mode = IntegrationHook
	} else {
		t.Mode = IntegrationPathPrepend
	}

	// The scoped PATH is built in both modes. Even with a hook present we
	// never source it — direct execution with an explicit environment is
	// what keeps this procedure shell-independent.
	t.env = environWithCondaDirs(root)

	return t
}

// Environ returns the scoped process environment for conda child
// processes. Callers pass it to every pip/python invocation so the
// environment's executables resolve their shared libraries.
func (t *Tool) Environ() []string {
	return t.env
}

// probePaths returns the ordered candidate conda executable paths for the
// current platform.
func probePaths() []string {
	var paths []string

	home, homeErr := os.UserHomeDir()

	if runtime.GOOS == "windows" {
		if homeErr == nil {
			paths = append(paths,
				filepath.Join(home, "miniconda3", "Scripts", "conda.exe"),
				filepath.Join(home, "anaconda3", "Scripts", "conda.exe"),
				filepath.Join(home, "Miniconda3", "Scripts", "conda.exe"),
				filepath.Join(home, "Anaconda3", "Scripts", "conda.exe"),
			)
		}
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			paths = append(paths,
				filepath.Join(localAppData, "miniconda3", "Scripts", "conda.exe"),
				filepath.Join(localAppData, "Continuum", "anaconda3", "Scripts", "conda.exe"),
			)
		}
		paths = append(paths,
			filepath.Join(`C:\`, "ProgramData", "miniconda3", "Scripts", "conda.exe"),
			filepath.Join(`C:\`, "ProgramData", "anaconda3", "Scripts", "conda.exe"),
		)
		return paths
	}

	if homeErr == nil {
		paths = append(paths,
			filepath.Join(home, "miniconda3", "bin", "conda"),
			filepath.Join(home, "anaconda3", "bin", "conda"),
		)
	}
	paths = append(paths,
		"/opt/miniconda3/bin/conda",
		"/opt/anaconda3/bin/conda",
		"/usr/local/miniconda3/bin/conda",
	)
	return paths
}

// condaExeName returns the executable name for PATH lookups.
func condaExeName() string {
	if runtime.GOOS == "windows" {
		return "conda.exe"
	}
	return "conda"
}

// installRoot derives the conda installation root from the executable
// path. The executable lives in <root>/Scripts (Windows), <root>/condabin,
// or <root>/bin (Unix); in all three cases the root is the parent of the
// executable's directory.
func installRoot(exe string) string {
	dir := filepath.Dir(exe)
	switch strings.ToLower(filepath.Base(dir)) {
	case "scripts", "condabin", "bin":
		return filepath.Dir(dir)
	default:
		// Unusual layout (e.g., a symlink farm) — treat the executable's
		// directory as the root so envs/ lookups at least stay relative
		// to something real.
		return dir
	}
}

// hookExists checks for conda's shell integration script under the
// installation root.
func hookExists(root string) bool {
	candidates := []string{
		filepath.Join(root, "etc", "profile.d", "conda.sh"),
		filepath.Join(root, "shell", "condabin", "conda-hook.ps1"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return true
		}
	}
	return false
}

// environWithCondaDirs returns a copy of the current process environment
// with conda's binary directories prepended to PATH. The copy is scoped to
// the returned slice; the process's own environment is never mutated.
func environWithCondaDirs(root string) []string {
	prepend := []string{
		filepath.Join(root, "condabin"),
	}
	if runtime.GOOS == "windows" {
		prepend = append(prepend,
			filepath.Join(root, "Scripts"),
			filepath.Join(root, "Library", "bin"),
			root,
		)
	} else {
		prepend = append(prepend, filepath.Join(root, "bin"))
	}

	environ := os.Environ()
	out := make([]string, 0, len(environ))
	pathSet := false
	for _, kv := range environ {
		key, value, found := strings.Cut(kv, "=")
		if found && strings.EqualFold(key, "PATH") {
			joined := strings.Join(prepend, string(os.PathListSeparator))
			out = append(out, key+"="+joined+string(os.PathListSeparator)+value)
			pathSet = true
			continue
		}
		out = append(out, kv)
	}
	if !pathSet {
		out = append(out, "PATH="+strings.Join(prepend, string(os.PathListSeparator)))
	}
	return out
}

// run executes conda itself with the scoped environment.
func (t *Tool) run(ctx context.Context, args ...string) (string, error) {
	return t.runner.Run(ctx, t.env, t.Exe, args...)
}

// envList is the shape of `conda env list --json` output.
type envList struct {
	Envs []string `json:"envs"`
}

// EnvExists reports whether a named environment already exists.
//
// It asks conda for the machine-readable environment list and matches on
// the path's base name, which is how conda itself maps names to
// directories under envs/.
func (t *Tool) EnvExists(ctx context.Context, name string) (bool, error) {
	out, err := t.run(ctx, "env", "list", "--json")
	if err != nil {
		return false, fmt.Errorf("conda env list failed: %s", out)
	}

	var list envList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return false, fmt.Errorf("failed to parse conda env list output: %w", err)
	}

	for _, envPath := range list.Envs {
		if filepath.Base(envPath) == name {
			return true, nil
		}
	}
	return false, nil
}

// EnvDir returns the expected directory of a named environment under the
// installation's standard envs storage location.
func (t *Tool) EnvDir(name string) string {
	return filepath.Join(t.Root, "envs", name)
}

// CreateEnv creates a named environment with a pinned interpreter version.
//
// Creation is attempted fully offline first (--offline); if that fails —
// typically because the interpreter package is not in the local package
// cache — it retries once allowing network access. If both attempts fail,
// a CLIError with ExitEnvCreateFailed is returned whose message includes
// the exact manual command for the operator to run themselves.
//
// After a successful create, the environment directory is verified to
// exist on disk; conda has been observed to exit zero on partial failures,
// and proceeding on a half-created environment would only fail later with
// a much less actionable error.
func (t *Tool) CreateEnv(ctx context.Context, name, pythonVersion string) error {
	baseArgs := []string{"create", "-n", name, "python=" + pythonVersion, "-y"}

	offlineArgs := append([]string{}, baseArgs...)
	offlineArgs = append(offlineArgs, "--offline")

	out, err := t.run(ctx, offlineArgs...)
	if err != nil {
		// Offline creation failed — retry once allowing network access.
		// On a truly offline machine this fails too, and the operator
		// gets the manual command below.
		out, err = t.run(ctx, baseArgs...)
	}
	if err != nil {
		manual := fmt.Sprintf("%s create -n %s python=%s -y", t.Exe, name, pythonVersion)
		return model.WrapCLIError(model.ExitEnvCreateFailed,
			fmt.Sprintf("failed to create environment %q (offline and online attempts): %s\nRun manually and retry:\n  %s",
				name, strings.TrimSpace(out), manual),
			err)
	}

	if _, statErr := os.Stat(t.EnvDir(name)); statErr != nil {
		return model.WrapCLIError(model.ExitEnvCreateFailed,
			fmt.Sprintf("environment %q reported created but its directory %s does not exist", name, t.EnvDir(name)),
			statErr)
	}

	return nil
}

// RemoveEnv removes a named environment and all its packages.
func (t *Tool) RemoveEnv(ctx context.Context, name string) error {
	out, err := t.run(ctx, "env", "remove", "-n", name, "-y")
	if err != nil {
		return fmt.Errorf("failed to remove environment %q: %s", name, out)
	}
	return nil
}

// ResolveEnvPaths computes the interpreter and installer executable paths
// for an environment directory, without shell activation.
//
// Windows keeps python.exe at the environment root and pip.exe under
// Scripts/; Unix layouts put both under bin/.
//
// Returns a CLIError with ExitInstallerMissing if pip is not at its
// expected location — without a working installer the rest of the
// pipeline cannot proceed.
func ResolveEnvPaths(name, envDir string) (*model.EnvPaths, error) {
	var python, pip string
	if runtime.GOOS == "windows" {
		python = filepath.Join(envDir, "python.exe")
		pip = filepath.Join(envDir, "Scripts", "pip.exe")
	} else {
		python = filepath.Join(envDir, "bin", "python")
		pip = filepath.Join(envDir, "bin", "pip")
	}

	if _, err := os.Stat(pip); err != nil {
		return nil, model.WrapCLIError(model.ExitInstallerMissing,
			fmt.Sprintf("pip not found at %s — the environment %q appears incomplete", pip, name),
			err)
	}

	return &model.EnvPaths{
		Name:   name,
		Dir:    envDir,
		Python: python,
		Pip:    pip,
	}, nil
}

// ListEnvs returns the directories of all environments conda knows about.
// Used by the envs command.
func (t *Tool) ListEnvs(ctx context.Context) ([]string, error) {
	out, err := t.run(ctx, "env", "list", "--json")
	if err != nil {
		return nil, fmt.Errorf("conda env list failed: %s", out)
	}

	var list envList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		return nil, fmt.Errorf("failed to parse conda env list output: %w", err)
	}
	return list.Envs, nil
}

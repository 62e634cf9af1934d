package conda

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/pdf2txt/internal/model"
)

// fakeCall records one invocation the fake runner received.
type fakeCall struct {
	name string
	args []string
}

// fakeRunner is a scripted Runner: each call consumes the next response.
type fakeRunner struct {
	calls     []fakeCall
	responses []fakeResponse
}

type fakeResponse struct {
	out string
	err error
}

func (f *fakeRunner) Run(ctx context.Context, env []string, name string, args ...string) (string, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args})
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp.out, resp.err
}

// newTestTool builds a Tool rooted at a temp directory with a scripted
// runner.
func newTestTool(t *testing.T, runner Runner) *Tool {
	t.Helper()
	return &Tool{
		Exe:    "conda",
		Root:   t.TempDir(),
		Mode:   IntegrationPathPrepend,
		runner: runner,
	}
}

// TestInstallRoot verifies root derivation from the executable location.
func TestInstallRoot(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		exe      string
		expected string
	}{
		{filepath.Join(sep, "opt", "miniconda3", "bin", "conda"), filepath.Join(sep, "opt", "miniconda3")},
		{filepath.Join(sep, "conda", "condabin", "conda"), filepath.Join(sep, "conda")},
		{filepath.Join(sep, "m3", "Scripts", "conda.exe"), filepath.Join(sep, "m3")},
		{filepath.Join(sep, "weird", "conda"), filepath.Join(sep, "weird")},
	}

	for _, tt := range tests {
		t.Run(tt.exe, func(t *testing.T) {
			assert.Equal(t, tt.expected, installRoot(tt.exe))
		})
	}
}

// TestEnvironWithCondaDirs verifies the scoped PATH is prepended without
// touching the process environment.
func TestEnvironWithCondaDirs(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")

	root := filepath.Join(string(filepath.Separator), "opt", "miniconda3")
	env := environWithCondaDirs(root)

	var pathValue string
	for _, kv := range env {
		if strings.HasPrefix(strings.ToUpper(kv), "PATH=") {
			pathValue = kv[len("PATH="):]
			break
		}
	}
	require.NotEmpty(t, pathValue)

	parts := strings.Split(pathValue, string(os.PathListSeparator))
	assert.Equal(t, filepath.Join(root, "condabin"), parts[0])
	assert.Contains(t, parts, "/usr/bin")
	// The last entry is the inherited PATH, so conda dirs take priority.
	assert.Equal(t, "/usr/bin", parts[len(parts)-1])

	// The process environment itself is untouched.
	assert.Equal(t, "/usr/bin", os.Getenv("PATH"))
}

// TestEnvExists verifies parsing of `conda env list --json` and matching
// by base name.
func TestEnvExists(t *testing.T) {
	listJSON := `{"envs": ["/opt/miniconda3", "/opt/miniconda3/envs/pdf2txt"]}`

	tests := []struct {
		name     string
		envName  string
		expected bool
	}{
		{"existing env", "pdf2txt", true},
		{"missing env", "other", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{responses: []fakeResponse{{out: listJSON}}}
			tool := newTestTool(t, runner)

			exists, err := tool.EnvExists(context.Background(), tt.envName)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)

			require.Len(t, runner.calls, 1)
			assert.Equal(t, []string{"env", "list", "--json"}, runner.calls[0].args)
		})
	}
}

// TestEnvExists_BadJSON verifies that unparseable output is an error.
func TestEnvExists_BadJSON(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{{out: "not json"}}}
	tool := newTestTool(t, runner)

	_, err := tool.EnvExists(context.Background(), "pdf2txt")
	assert.Error(t, err)
}

// TestCreateEnv_OfflineSucceeds verifies the first attempt carries
// --offline and no retry happens when it succeeds.
func TestCreateEnv_OfflineSucceeds(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{{out: ""}}}
	tool := newTestTool(t, runner)
	require.NoError(t, os.MkdirAll(tool.EnvDir("pdf2txt"), 0o755))

	err := tool.CreateEnv(context.Background(), "pdf2txt", "3.10")
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t,
		[]string{"create", "-n", "pdf2txt", "python=3.10", "-y", "--offline"},
		runner.calls[0].args)
}

// TestCreateEnv_OnlineFallback verifies the retry drops --offline.
func TestCreateEnv_OnlineFallback(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{out: "PackagesNotFoundError", err: errors.New("exit status 1")},
		{out: ""},
	}}
	tool := newTestTool(t, runner)
	require.NoError(t, os.MkdirAll(tool.EnvDir("pdf2txt"), 0o755))

	err := tool.CreateEnv(context.Background(), "pdf2txt", "3.10")
	require.NoError(t, err)

	require.Len(t, runner.calls, 2)
	assert.Contains(t, runner.calls[0].args, "--offline")
	assert.NotContains(t, runner.calls[1].args, "--offline")
}

// TestCreateEnv_BothFail verifies the fatal error carries the env-create
// exit code and the manual command.
func TestCreateEnv_BothFail(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{out: "offline failed", err: errors.New("exit status 1")},
		{out: "online failed", err: errors.New("exit status 1")},
	}}
	tool := newTestTool(t, runner)

	err := tool.CreateEnv(context.Background(), "pdf2txt", "3.10")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitEnvCreateFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "create -n pdf2txt python=3.10 -y")
}

// TestCreateEnv_DirMissingAfterCreate verifies the post-create existence
// check catches a silently failed creation.
func TestCreateEnv_DirMissingAfterCreate(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{{out: ""}}}
	tool := newTestTool(t, runner)
	// EnvDir is deliberately not created.

	err := tool.CreateEnv(context.Background(), "pdf2txt", "3.10")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitEnvCreateFailed, cliErr.Code)
}

// TestRemoveEnv verifies the remove invocation.
func TestRemoveEnv(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{{out: ""}}}
	tool := newTestTool(t, runner)

	require.NoError(t, tool.RemoveEnv(context.Background(), "pdf2txt"))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"env", "remove", "-n", "pdf2txt", "-y"}, runner.calls[0].args)
}

// TestResolveEnvPaths verifies executable path resolution and the fatal
// error when pip is missing.
func TestResolveEnvPaths(t *testing.T) {
	envDir := t.TempDir()

	var pipPath, pythonPath string
	if runtime.GOOS == "windows" {
		pythonPath = filepath.Join(envDir, "python.exe")
		pipPath = filepath.Join(envDir, "Scripts", "pip.exe")
	} else {
		pythonPath = filepath.Join(envDir, "bin", "python")
		pipPath = filepath.Join(envDir, "bin", "pip")
	}

	t.Run("pip missing", func(t *testing.T) {
		_, err := ResolveEnvPaths("pdf2txt", envDir)
		require.Error(t, err)

		var cliErr *model.CLIError
		require.True(t, errors.As(err, &cliErr))
		assert.Equal(t, model.ExitInstallerMissing, cliErr.Code)
	})

	t.Run("pip present", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Dir(pipPath), 0o755))
		require.NoError(t, os.WriteFile(pipPath, []byte("#!"), 0o755))

		paths, err := ResolveEnvPaths("pdf2txt", envDir)
		require.NoError(t, err)
		assert.Equal(t, "pdf2txt", paths.Name)
		assert.Equal(t, envDir, paths.Dir)
		assert.Equal(t, pythonPath, paths.Python)
		assert.Equal(t, pipPath, paths.Pip)
	})
}

// TestListEnvs verifies environment enumeration.
func TestListEnvs(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{out: `{"envs": ["/opt/miniconda3", "/opt/miniconda3/envs/a"]}`},
	}}
	tool := newTestTool(t, runner)

	envs, err := tool.ListEnvs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/miniconda3", "/opt/miniconda3/envs/a"}, envs)
}
